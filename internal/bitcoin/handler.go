package bitcoin

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/user"
)

type PriceService interface {
	PriceForDate(ctx context.Context, date time.Time, currency string) float64
	CurrentPrice(ctx context.Context, currency string) float64
}

type CurrencyPreference interface {
	GetUserCurrency(ctx context.Context, userID int64) (string, error)
}

type Handler struct {
	prices       PriceService
	preferences  CurrencyPreference
	now          func() time.Time
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	prices PriceService,
	preferences CurrencyPreference,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if prices == nil || preferences == nil {
		log.Fatal("Services must not be nil")
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Respond functions must not be nil")
	}
	return &Handler{
		prices:       prices,
		preferences:  preferences,
		now:          time.Now,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type quote struct {
	currency string
	date     time.Time
	price    float64
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// lookup resolves the currency (falling back to the user's preference) and
// the date, and prices them. It writes the error response itself.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (quote, bool) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return quote{}, false
	}

	query := r.URL.Query()
	code := strings.ToUpper(strings.TrimSpace(query.Get("currency")))
	if code == "" {
		preferred, err := h.preferences.GetUserCurrency(r.Context(), userID)
		if err != nil {
			log.WithError(err).Error("Could not load user currency")
			h.respondError(w, http.StatusInternalServerError, "Failed to retrieve Bitcoin price")
			return quote{}, false
		}
		code = preferred
	}
	if !isCurrencyCode(code) {
		h.respondError(w, http.StatusBadRequest, "Invalid currency code")
		return quote{}, false
	}

	rawDate := strings.TrimSpace(query.Get("date"))
	if rawDate == "" {
		// the cache keys today by the local date of the same clock
		today := h.now()
		return quote{currency: code, date: today, price: h.prices.CurrentPrice(r.Context(), code)}, true
	}
	date, err := time.Parse(DateLayout, rawDate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return quote{}, false
	}
	return quote{currency: code, date: date, price: h.prices.PriceForDate(r.Context(), date, code)}, true
}

func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	q, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Bitcoin price retrieved successfully",
		"data": map[string]interface{}{
			"currency": q.currency,
			"date":     q.date.Format(DateLayout),
			"price":    q.price,
		},
	})
}

func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("amount")), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		h.respondError(w, http.StatusBadRequest, "Amount must be a number greater than 0")
		return
	}
	q, ok := h.lookup(w, r)
	if !ok {
		return
	}

	satoshis, err := ConvertToSatoshis(amount, q.price)
	if errors.Is(err, ErrSatoshiOverflow) {
		h.respondError(w, http.StatusBadRequest, "Amount is too large")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Amount converted successfully",
		"data": map[string]interface{}{
			"amount":    amount,
			"currency":  q.currency,
			"date":      q.date.Format(DateLayout),
			"price":     q.price,
			"satoshis":  satoshis,
			"formatted": FormatSatoshis(satoshis),
		},
	})
}
