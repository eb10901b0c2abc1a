package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/export"
	"github.com/Flashmaxi/expense-tracker/internal/finance/application"
	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error)
	GetTransactions(ctx context.Context, userID int64, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, transactionID int64) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID int64, update domain.TransactionUpdate) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID int64) error
	GetSummary(ctx context.Context, userID int64, startDate, endDate *domain.Date) (domain.Summary, error)
	GetCategorySummary(ctx context.Context, userID int64, transactionType string, startDate, endDate *domain.Date) ([]domain.CategorySummary, error)
	GetMonthlyTrends(ctx context.Context, userID int64, months int) ([]domain.MonthlyTrend, error)
	ExportTransactions(ctx context.Context, userID int64, startDate, endDate *domain.Date) ([]domain.Transaction, string, error)
}

type TransactionHandler struct {
	service      TransactionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewTransactionHandler(
	service TransactionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *TransactionHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
	}
	if respondJSON == nil {
		log.Fatal("RespondJSON function must not be nil")
	}
	if respondError == nil {
		log.Fatal("RespondError function must not be nil")
	}
	return &TransactionHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

// TransactionIDMiddleware validates the {id} path parameter of transaction
// routes.
func (h *TransactionHandler) TransactionIDMiddleware(next http.Handler) http.Handler {
	return ValidateIDPathParamMiddleware(next, h.respondError, "id", "Transaction not found")
}

type createTransactionRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	CategoryID  *int64  `json:"categoryId"`
	Date        string  `json:"date"`
}

type updateTransactionRequest struct {
	Amount      *float64        `json:"amount"`
	Description *string         `json:"description"`
	CategoryID  json.RawMessage `json:"categoryId"`
	Date        *string         `json:"date"`
}

func (req updateTransactionRequest) toUpdate() (domain.TransactionUpdate, error) {
	update := domain.TransactionUpdate{
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Amount != nil && *req.Amount <= 0 {
		return update, financeErrors.NewValidationError("Amount must be greater than 0")
	}
	if req.Date != nil {
		date, err := domain.ParseDate(*req.Date)
		if err != nil {
			return update, financeErrors.NewValidationError("Invalid date, expected YYYY-MM-DD")
		}
		update.Date = &date
	}
	// absent leaves the category alone, null detaches it
	if len(req.CategoryID) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.CategoryID), []byte("null")) {
			update.ClearCategory = true
		} else {
			var categoryID int64
			if err := json.Unmarshal(req.CategoryID, &categoryID); err != nil {
				return update, financeErrors.NewValidationError("Invalid categoryId")
			}
			update.CategoryID = &categoryID
		}
	}
	return update, nil
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == 0 || req.Type == "" || req.Date == "" {
		h.respondError(w, http.StatusBadRequest, "Amount, type, and date are required")
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	transaction, err := h.service.CreateTransaction(r.Context(), &domain.Transaction{
		Amount:      req.Amount,
		Description: req.Description,
		Type:        req.Type,
		CategoryID:  req.CategoryID,
		UserID:      userID,
		Date:        date,
	})
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to create transaction")
		return
	}
	h.respondJSON(w, http.StatusCreated, success("Transaction created successfully", transaction))
}

func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	errs := &financeErrors.ValidationErrors{}
	filter := domain.TransactionFilter{
		Type:      r.URL.Query().Get("type"),
		Page:      parseIntParam(r, "page", 1, errs),
		Limit:     parseIntParam(r, "limit", application.DefaultPageLimit, errs),
		StartDate: parseDateParam(r, "startDate", errs),
		EndDate:   parseDateParam(r, "endDate", errs),
	}
	if filter.Type != "" && !domain.IsValidTransactionType(filter.Type) {
		errs.Add(financeErrors.NewValidationError("Invalid transaction type"))
	}
	if len(errs.Errors) > 0 {
		writeServiceError(h.respondError, w, errs, "")
		return
	}
	if filter.Limit > application.MaxPageLimit {
		filter.Limit = application.MaxPageLimit
	}

	transactions, err := h.service.GetTransactions(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transactions retrieved successfully", map[string]interface{}{
		"transactions": transactions,
		"pagination": map[string]interface{}{
			"page":    filter.Page,
			"limit":   filter.Limit,
			"hasMore": len(transactions) == filter.Limit,
		},
	}))
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	transactionID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	transaction, err := h.service.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction retrieved successfully", transaction))
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	transactionID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeServiceError(h.respondError, w, err, "")
		return
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), userID, transactionID, update)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to update transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction updated successfully", transaction))
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	transactionID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), userID, transactionID); err != nil {
		writeServiceError(h.respondError, w, err, "Failed to delete transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction deleted successfully", nil))
}

func (h *TransactionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	errs := &financeErrors.ValidationErrors{}
	startDate := parseDateParam(r, "startDate", errs)
	endDate := parseDateParam(r, "endDate", errs)
	if len(errs.Errors) > 0 {
		writeServiceError(h.respondError, w, errs, "")
		return
	}

	summary, err := h.service.GetSummary(r.Context(), userID, startDate, endDate)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve transaction summary")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction summary retrieved successfully", summary))
}

func (h *TransactionHandler) GetCategorySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	transactionType := r.URL.Query().Get("type")
	if !domain.IsValidTransactionType(transactionType) {
		h.respondError(w, http.StatusBadRequest, "Type must be either income or expense")
		return
	}
	errs := &financeErrors.ValidationErrors{}
	startDate := parseDateParam(r, "startDate", errs)
	endDate := parseDateParam(r, "endDate", errs)
	if len(errs.Errors) > 0 {
		writeServiceError(h.respondError, w, errs, "")
		return
	}

	summary, err := h.service.GetCategorySummary(r.Context(), userID, transactionType, startDate, endDate)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve category summary")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Category summary retrieved successfully", summary))
}

func (h *TransactionHandler) GetMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	errs := &financeErrors.ValidationErrors{}
	months := parseIntParam(r, "months", 12, errs)
	if len(errs.Errors) > 0 || months > application.MaxTrendMonths {
		h.respondError(w, http.StatusBadRequest, "Months must be between 1 and 120")
		return
	}

	trends, err := h.service.GetMonthlyTrends(r.Context(), userID, months)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve monthly trends")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Monthly trends retrieved successfully", trends))
}

// ExportTransactions streams every matching transaction as a CSV or XLSX
// attachment.
func (h *TransactionHandler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Format must be csv or xlsx")
		return
	}
	errs := &financeErrors.ValidationErrors{}
	startDate := parseDateParam(r, "startDate", errs)
	endDate := parseDateParam(r, "endDate", errs)
	if len(errs.Errors) > 0 {
		writeServiceError(h.respondError, w, errs, "")
		return
	}

	transactions, currency, err := h.service.ExportTransactions(r.Context(), userID, startDate, endDate)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to export transactions")
		return
	}

	filename := format.Filename("transactions-" + time.Now().Format(domain.DateLayout))
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	if err := export.Write(w, format, transactions, currency); err != nil {
		// headers are already out, so the client sees a truncated file
		log.WithError(err).WithField("format", strings.ToUpper(string(format))).Error("Failed to write export")
	}
}
