package interfaces

import (
	"bytes"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

func int64Ptr(v int64) *int64 { return &v }

func seededTransactionService() *MockTransactionService {
	return &MockTransactionService{transactions: map[int64]domain.Transaction{
		1: {ID: 1, Amount: 20, Type: domain.TypeExpense, UserID: 1, CategoryID: int64Ptr(3), Date: domain.NewDate(2024, 1, 2)},
		2: {ID: 2, Amount: 80, Type: domain.TypeIncome, UserID: 2, Date: domain.NewDate(2024, 1, 3)},
	}}
}

// routed registers the handler behind the id middleware so PathValue works.
func routed(h *TransactionHandler, pattern string, fn http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(pattern, h.TransactionIDMiddleware(fn))
	return mux
}

func TestCreateTransaction_Success(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	body := bytes.NewBufferString(`{"amount": 45000, "type": "expense", "date": "2024-01-10", "description": "laptop"}`)
	w := httptest.NewRecorder()
	handler.CreateTransaction(w, authedRequest(http.MethodPost, "/api/transactions", body, 1))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	response := decodeBody(t, res)
	assert.Equal(t, "success", response["status"])
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(100_000_000), data["satoshiAmount"])
	assert.Equal(t, "2024-01-10", data["date"])
}

func TestCreateTransaction_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `not json`, "Invalid request body"},
		{"missing amount", `{"type": "expense", "date": "2024-01-10"}`, "Amount, type, and date are required"},
		{"missing date", `{"amount": 5, "type": "expense"}`, "Amount, type, and date are required"},
		{"malformed date", `{"amount": 5, "type": "expense", "date": "10/01/2024"}`, "Invalid date, expected YYYY-MM-DD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)
			w := httptest.NewRecorder()
			handler.CreateTransaction(w, authedRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(tt.body), 1))

			res := w.Result()
			defer res.Body.Close()
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			response := decodeBody(t, res)
			assert.Equal(t, tt.message, response["message"])
			assert.Equal(t, float64(http.StatusBadRequest), response["code"])
		})
	}
}

func TestCreateTransaction_ServiceErrors(t *testing.T) {
	service := seededTransactionService()
	handler := NewTransactionHandler(service, respondJSON, respondError)
	body := `{"amount": 5, "type": "expense", "date": "2024-01-10", "categoryId": 9}`

	service.err = financeErrors.ErrInvalidCategory
	w := httptest.NewRecorder()
	handler.CreateTransaction(w, authedRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(body), 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	service.err = errors.New("connection reset")
	w = httptest.NewRecorder()
	handler.CreateTransaction(w, authedRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(body), 1))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCreateTransaction_Unauthorized(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", bytes.NewBufferString(`{}`))
	handler.CreateTransaction(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetTransactions_Pagination(t *testing.T) {
	service := seededTransactionService()
	handler := NewTransactionHandler(service, respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions", nil, 1))
	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	data := decodeBody(t, res)["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["page"])
	assert.Equal(t, float64(50), pagination["limit"])
	assert.Equal(t, false, pagination["hasMore"])
	assert.Len(t, data["transactions"], 1)

	w = httptest.NewRecorder()
	handler.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions?limit=1&page=1", nil, 1))
	data = decodeBody(t, w.Result())["data"].(map[string]interface{})
	assert.Equal(t, true, data["pagination"].(map[string]interface{})["hasMore"])

	w = httptest.NewRecorder()
	handler.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions?limit=5000&type=income&startDate=2024-01-01", nil, 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 500, service.lastFilter.Limit)
	assert.Equal(t, domain.TypeIncome, service.lastFilter.Type)
	require.NotNil(t, service.lastFilter.StartDate)
	assert.Equal(t, "2024-01-01", service.lastFilter.StartDate.String())
}

func TestGetTransactions_InvalidQuery(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.GetTransactions(w, authedRequest(http.MethodGet, "/api/transactions?page=0&type=transfer&endDate=yesterday", nil, 1))

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	response := decodeBody(t, res)
	assert.Equal(t, "Validation errors occurred", response["message"])
	assert.ElementsMatch(t, []interface{}{
		"Invalid page value",
		"Invalid endDate, expected YYYY-MM-DD",
		"Invalid transaction type",
	}, response["errors"])
}

func TestGetTransaction_PathAndOwnership(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)
	router := routed(handler, "GET /api/transactions/{id}", handler.GetTransaction)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/transactions/1", http.StatusOK},
		{"/api/transactions/2", http.StatusForbidden},
		{"/api/transactions/99", http.StatusNotFound},
		{"/api/transactions/abc", http.StatusNotFound},
		{"/api/transactions/-4", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authedRequest(http.MethodGet, tt.path, nil, 1))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestUpdateTransaction_CategoryField(t *testing.T) {
	service := seededTransactionService()
	handler := NewTransactionHandler(service, respondJSON, respondError)
	router := routed(handler, "PUT /api/transactions/{id}", handler.UpdateTransaction)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/transactions/1", bytes.NewBufferString(`{"categoryId": null}`), 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, service.lastUpdate.ClearCategory)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/transactions/1", bytes.NewBufferString(`{"description": "tea", "date": "2024-02-01"}`), 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, service.lastUpdate.ClearCategory)
	assert.Nil(t, service.lastUpdate.CategoryID)
	assert.Equal(t, "tea", *service.lastUpdate.Description)
	assert.Equal(t, "2024-02-01", service.lastUpdate.Date.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/transactions/1", bytes.NewBufferString(`{"categoryId": 3}`), 1))
	assert.Equal(t, int64(3), *service.lastUpdate.CategoryID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodPut, "/api/transactions/1", bytes.NewBufferString(`{"amount": -1}`), 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTransaction(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)
	router := routed(handler, "DELETE /api/transactions/{id}", handler.DeleteTransaction)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/transactions/2", nil, 1))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(http.MethodDelete, "/api/transactions/1", nil, 1))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetMonthlyTrends_MonthsBounds(t *testing.T) {
	service := seededTransactionService()
	handler := NewTransactionHandler(service, respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.GetMonthlyTrends(w, authedRequest(http.MethodGet, "/api/transactions/monthly-trends", nil, 1))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, service.lastMonths)

	for _, months := range []string{"0", "121", "twelve"} {
		w = httptest.NewRecorder()
		handler.GetMonthlyTrends(w, authedRequest(http.MethodGet, "/api/transactions/monthly-trends?months="+months, nil, 1))
		assert.Equal(t, http.StatusBadRequest, w.Code, months)
	}
}

func TestGetCategorySummary_RequiresType(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.GetCategorySummary(w, authedRequest(http.MethodGet, "/api/transactions/category-summary", nil, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	handler.GetCategorySummary(w, authedRequest(http.MethodGet, "/api/transactions/category-summary?type=expense", nil, 1))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetSummary(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.GetSummary(w, authedRequest(http.MethodGet, "/api/transactions/summary?startDate=2024-01-01&endDate=2024-12-31", nil, 1))
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w.Result())["data"].(map[string]interface{})
	assert.Equal(t, float64(60), data["balance"])
	assert.Equal(t, float64(2), data["transactionCount"])
}

func TestExportTransactions_CSV(t *testing.T) {
	handler := NewTransactionHandler(seededTransactionService(), respondJSON, respondError)

	w := httptest.NewRecorder()
	handler.ExportTransactions(w, authedRequest(http.MethodGet, "/api/transactions/export?format=csv", nil, 1))

	res := w.Result()
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "attachment; filename=\"transactions-")

	records, err := csv.NewReader(res.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Date", records[0][0])
	assert.Equal(t, "2024-01-02", records[1][0])

	w = httptest.NewRecorder()
	handler.ExportTransactions(w, authedRequest(http.MethodGet, "/api/transactions/export?format=pdf", nil, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
