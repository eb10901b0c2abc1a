package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

type CategoryServiceInterface interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategories(ctx context.Context, userID int64, categoryType string) ([]domain.Category, error)
	GetCategory(ctx context.Context, userID, categoryID int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID int64, update domain.CategoryUpdate) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID int64) error
}

type CategoryHandler struct {
	service      CategoryServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewCategoryHandler(
	service CategoryServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *CategoryHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal("Response functions must not be nil")
	}
	return &CategoryHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

// CategoryIDMiddleware validates the {id} path parameter of category routes.
func (h *CategoryHandler) CategoryIDMiddleware(next http.Handler) http.Handler {
	return ValidateIDPathParamMiddleware(next, h.respondError, "id", "Category not found")
}

type createCategoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.service.CreateCategory(r.Context(), &domain.Category{
		Name:   req.Name,
		Type:   req.Type,
		Color:  req.Color,
		UserID: userID,
	})
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to create category")
		return
	}
	h.respondJSON(w, http.StatusCreated, success("Category created successfully", category))
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	categoryType := r.URL.Query().Get("type")
	if categoryType != "" && !domain.IsValidTransactionType(categoryType) {
		h.respondError(w, http.StatusBadRequest, "Invalid category type")
		return
	}

	categories, err := h.service.GetCategories(r.Context(), userID, categoryType)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve categories")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Categories retrieved successfully", categories))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	categoryID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Category not found")
		return
	}

	category, err := h.service.GetCategory(r.Context(), userID, categoryID)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to retrieve category")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Category retrieved successfully", category))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	categoryID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Category not found")
		return
	}
	var update domain.CategoryUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), userID, categoryID, update)
	if err != nil {
		writeServiceError(h.respondError, w, err, "Failed to update category")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Category updated successfully", category))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user.UserIDFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	categoryID, ok := pathID(r, "id")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Category not found")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), userID, categoryID); err != nil {
		writeServiceError(h.respondError, w, err, "Failed to delete category")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Category deleted successfully", nil))
}
