package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flashmaxi/expense-tracker/internal/config"
	"github.com/Flashmaxi/expense-tracker/internal/currency"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, _ ...[]string) {
	respondJSON(w, status, map[string]interface{}{
		"status":  "error",
		"message": message,
		"code":    status,
	})
}

func newTestHandler(t *testing.T) (*Handler, *User) {
	t.Helper()
	s := newTestService(t)
	owner, _, err := s.EnsureOwner(context.Background(), config.OwnerConfig{Email: "owner@example.com", FirstName: "Default", LastName: "User"})
	require.NoError(t, err)
	return NewHandler(s, currency.NewService(noRates{}), respondJSON, respondError), owner
}

func asUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(WithUserID(req.Context(), userID))
}

func TestHandleGetUserProfile(t *testing.T) {
	handler, owner := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleGetUserProfile(w, asUser(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), owner.ID))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "owner@example.com", body.Data["email"])
	assert.Equal(t, "USD", body.Data["currency"])
	assert.NotContains(t, body.Data, "passwordHash")

	w = httptest.NewRecorder()
	handler.HandleGetUserProfile(w, httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	handler.HandleGetUserProfile(w, asUser(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), 404))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdateCurrency(t *testing.T) {
	handler, owner := newTestHandler(t)

	tests := []struct {
		body   string
		status int
	}{
		{`{"currency": "EUR"}`, http.StatusOK},
		{`{"currency": ""}`, http.StatusBadRequest},
		{`{"currency": "XYZ"}`, http.StatusBadRequest},
		{`{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/api/auth/currency", bytes.NewBufferString(tt.body))
			handler.HandleUpdateCurrency(w, asUser(req, owner.ID))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandleGetCurrencies(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	handler.HandleGetCurrencies(w, httptest.NewRequest(http.MethodGet, "/api/auth/currencies", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []currency.Info `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data, 3)
	assert.Equal(t, "USD", body.Data[0].Code)
}
