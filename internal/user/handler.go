package user

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/currency"
)

type Handler struct {
	userService  Service
	currencies   currency.Service
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	userService Service,
	currencies currency.Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if userService == nil || currencies == nil {
		log.Fatal("Services must not be nil")
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Respond functions must not be nil")
	}
	return &Handler{
		userService:  userService,
		currencies:   currencies,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *Handler) HandleGetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.WithError(err).Error("Could not fetch user data")
		h.respondError(w, http.StatusInternalServerError, "Could not fetch user data")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Profile retrieved successfully",
		"data":    user,
	})
}

func (h *Handler) HandleUpdateCurrency(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Currency == "" {
		h.respondError(w, http.StatusBadRequest, "Currency is required")
		return
	}

	err := h.userService.UpdateCurrency(r.Context(), userID, req.Currency)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCurrency):
			h.respondError(w, http.StatusBadRequest, "Invalid currency code")
		case errors.Is(err, ErrUserNotFound):
			h.respondError(w, http.StatusNotFound, "User not found")
		default:
			log.WithError(err).Error("Could not update currency")
			h.respondError(w, http.StatusInternalServerError, "Could not update currency")
		}
		return
	}

	currencyCode, err := h.userService.GetUserCurrency(r.Context(), userID)
	if err != nil {
		log.WithError(err).Error("Could not read updated currency")
		h.respondError(w, http.StatusInternalServerError, "Could not update currency")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Currency updated successfully",
		"data": map[string]string{
			"currency": currencyCode,
		},
	})
}

func (h *Handler) HandleGetCurrencies(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Supported currencies retrieved successfully",
		"data":    h.currencies.Supported(),
	})
}
