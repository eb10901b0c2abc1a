package interfaces

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type respondErrorFunc func(w http.ResponseWriter, status int, message string, errors ...[]string)

func success(message string, data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	}
}

// writeServiceError maps service errors onto statuses. Unexpected errors
// are logged and answered with fallbackMessage.
func writeServiceError(respondError respondErrorFunc, w http.ResponseWriter, err error, fallbackMessage string) {
	switch {
	case financeErrors.IsValidationErrors(err):
		var validationErrors *financeErrors.ValidationErrors
		errors.As(err, &validationErrors)
		respondError(w, http.StatusBadRequest, "Validation errors occurred", validationErrors.Messages())
	case financeErrors.IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, financeErrors.ErrTransactionNotFound), errors.Is(err, financeErrors.ErrCategoryNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, financeErrors.ErrAccessDenied):
		respondError(w, http.StatusForbidden, err.Error())
	default:
		log.WithError(err).Error(fallbackMessage)
		respondError(w, http.StatusInternalServerError, fallbackMessage)
	}
}

func parseDateParam(r *http.Request, name string, errs *financeErrors.ValidationErrors) *domain.Date {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		errs.Add(financeErrors.NewValidationError("Invalid " + name + ", expected YYYY-MM-DD"))
		return nil
	}
	return &date
}

func parseIntParam(r *http.Request, name string, fallback int, errs *financeErrors.ValidationErrors) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		errs.Add(financeErrors.NewValidationError("Invalid " + name + " value"))
		return fallback
	}
	return value
}
