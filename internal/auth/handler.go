package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/user"
)

type Handler struct {
	authService  Service
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewHandler(
	authService Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if authService == nil {
		log.Fatal("Service must not be nil")
	}
	if respondJSON == nil {
		log.Fatal("RespondJSON function must not be nil")
	}
	if respondError == nil {
		log.Fatal("RespondError function must not be nil")
	}
	return &Handler{
		authService:  authService,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func success(message string, data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	}
}

// writeError maps auth and user errors onto statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error, fallbackMessage string) {
	switch {
	case errors.Is(err, ErrRegistrationDisabled), errors.Is(err, ErrAutoLoginDisabled):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidPassword),
		errors.Is(err, ErrInvalid2FACode), errors.Is(err, ErrInvalidSessionToken),
		errors.Is(err, ErrExpiredSessionToken):
		h.respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrPasswordTooShort), errors.Is(err, ErrPasswordNotSet),
		errors.Is(err, ErrPasswordAlreadySet), errors.Is(err, ErrUser2FANotEnabled),
		errors.Is(err, ErrUser2FAAlreadyEnabled),
		errors.Is(err, user.ErrMissingFields), errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrNameLength), errors.Is(err, user.ErrEmailAlreadyExists),
		errors.Is(err, user.ErrInvalidCurrency), errors.Is(err, user.ErrInvalidOrExpiredToken),
		errors.Is(err, user.ErrTwoFactorNotConfigured):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrUserNotFound):
		h.respondError(w, http.StatusNotFound, "User not found")
	default:
		log.WithError(err).Error(fallbackMessage)
		h.respondError(w, http.StatusInternalServerError, fallbackMessage)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.writeError(w, err, "Could not register user")
		return
	}
	h.respondJSON(w, http.StatusCreated, success("User registered successfully", result))
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success(loginMessage(result), result))
}

func loginMessage(result *AuthResult) string {
	if result.TwoFactorRequired {
		return "Two-factor authentication required"
	}
	return "Login successful"
}

func (h *Handler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	token, err := h.authService.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}

	var data interface{}
	if token != "" {
		data = map[string]string{"resetToken": token}
	}
	h.respondJSON(w, http.StatusOK, success("If the email exists, a reset link has been sent", data))
}

func (h *Handler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		h.respondError(w, http.StatusBadRequest, "Token and new password are required")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Password reset successful", nil))
}

func (h *Handler) HandleCheckSetup(w http.ResponseWriter, r *http.Request) {
	hasPassword, err := h.authService.CheckSetup(r.Context())
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Setup status retrieved successfully", map[string]bool{
		"hasPassword": hasPassword,
	}))
}

func (h *Handler) HandleSetupPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
		Currency string `json:"currency"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.authService.SetupPassword(r.Context(), req.Password, req.Currency)
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Password set successfully", result))
}

func (h *Handler) HandleLoginWithPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "Password is required")
		return
	}

	result, err := h.authService.LoginWithPassword(r.Context(), req.Password)
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success(loginMessage(result), result))
}

func (h *Handler) HandleAutoLogin(w http.ResponseWriter, r *http.Request) {
	result, err := h.authService.AutoLogin(r.Context())
	if err != nil {
		h.writeError(w, err, "Internal server error")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Auto-login successful", result))
}

func (h *Handler) HandleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
		Code         string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.SessionToken == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Session token and code are required")
		return
	}

	result, err := h.authService.VerifyTwoFactor(r.Context(), req.SessionToken, req.Code)
	if err != nil {
		h.writeError(w, err, "Could not verify two-factor authentication")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Login successful", result))
}

func (h *Handler) HandleRegisterTwoFactor(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	otpURI, err := h.authService.RegisterTwoFactor(r.Context(), userID)
	if err != nil {
		h.writeError(w, err, "Could not register two-factor authentication")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Two-factor authentication initiated. Please verify to enable.", map[string]string{
		"otpUri": otpURI,
	}))
}

func (h *Handler) HandleConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	h.handleTwoFactorCode(w, r, h.authService.ConfirmTwoFactor, "Two-factor authentication enabled successfully")
}

func (h *Handler) HandleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	h.handleTwoFactorCode(w, r, h.authService.DisableTwoFactor, "Two-factor authentication disabled successfully")
}

type twoFactorAction func(ctx context.Context, userID int64, code string) error

func (h *Handler) handleTwoFactorCode(w http.ResponseWriter, r *http.Request, action twoFactorAction, message string) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Code is required")
		return
	}

	if err := action(r.Context(), userID, req.Code); err != nil {
		h.writeError(w, err, "Could not update two-factor authentication")
		return
	}
	h.respondJSON(w, http.StatusOK, success(message, nil))
}
