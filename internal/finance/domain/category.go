package domain

import (
	"context"
	"time"

	"github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

const DefaultCategoryColor = "#3B82F6"

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Color     string    `json:"color"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Category) Validate() error {
	if c.Name == "" || c.Type == "" {
		return errors.NewValidationError("Name and type are required")
	}
	if !IsValidTransactionType(c.Type) {
		return errors.NewValidationError("Type must be either income or expense")
	}
	if len(c.Name) > 100 {
		return errors.NewValidationError("Name must be of length less than 100")
	}
	return nil
}

// CategoryUpdate carries the mutable category fields; nil means unchanged.
type CategoryUpdate struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (u CategoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Color == nil
}

type DefaultCategory struct {
	Name  string
	Type  string
	Color string
}

var DefaultCategories = []DefaultCategory{
	{Name: "Food & Dining", Type: TypeExpense, Color: "#EF4444"},
	{Name: "Transportation", Type: TypeExpense, Color: "#F97316"},
	{Name: "Shopping", Type: TypeExpense, Color: "#EAB308"},
	{Name: "Entertainment", Type: TypeExpense, Color: "#8B5CF6"},
	{Name: "Bills & Utilities", Type: TypeExpense, Color: "#06B6D4"},
	{Name: "Healthcare", Type: TypeExpense, Color: "#EC4899"},
	{Name: "Salary", Type: TypeIncome, Color: "#10B981"},
	{Name: "Freelance", Type: TypeIncome, Color: "#059669"},
	{Name: "Investment", Type: TypeIncome, Color: "#0D9488"},
	{Name: "Other Income", Type: TypeIncome, Color: "#0891B2"},
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	FindByID(ctx context.Context, id int64) (*Category, error)
	FindByUser(ctx context.Context, userID int64, categoryType string) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
}
