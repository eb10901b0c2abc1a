package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// MaxAmount keeps satoshi amounts inside int64 at any realistic price.
const MaxAmount = 1_000_000_000_000

func IsValidTransactionType(t string) bool {
	return t == TypeIncome || t == TypeExpense
}

type Transaction struct {
	ID            int64     `json:"id"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	CategoryID    *int64    `json:"categoryId"`
	UserID        int64     `json:"userId"`
	Date          Date      `json:"date"`
	BitcoinPrice  float64   `json:"bitcoinPrice"`
	SatoshiAmount int64     `json:"satoshiAmount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// filled in from the category when reading
	CategoryName  *string `json:"categoryName"`
	CategoryColor *string `json:"categoryColor"`
}

func (t *Transaction) Validate() error {
	if t.Amount <= 0 {
		return errors.NewValidationError("Amount must be greater than 0")
	}
	if t.Amount > MaxAmount {
		return errors.NewValidationError("Amount must not exceed 1,000,000,000,000")
	}
	if !IsValidTransactionType(t.Type) {
		return errors.NewValidationError("Type must be either income or expense")
	}
	if t.Date.IsZero() {
		return errors.NewValidationError("Date is required")
	}
	if len(t.Description) > 200 {
		return errors.NewValidationError("Description must be of length less than 200")
	}
	return nil
}

func (t *Transaction) RoundToTwoDecimalPlaces() {
	t.Amount = RoundAmount(t.Amount)
}

func RoundAmount(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// TransactionUpdate carries the mutable transaction fields; nil means
// unchanged. ClearCategory detaches the transaction from its category.
type TransactionUpdate struct {
	Amount        *float64
	Description   *string
	CategoryID    *int64
	ClearCategory bool
	Date          *Date
}

type TransactionFilter struct {
	Type      string
	StartDate *Date
	EndDate   *Date
	Limit     int
	Page      int
}

func (f TransactionFilter) Offset() int {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

type Summary struct {
	TotalIncome      float64 `json:"totalIncome"`
	TotalExpenses    float64 `json:"totalExpenses"`
	Balance          float64 `json:"balance"`
	TransactionCount int     `json:"transactionCount"`
}

type CategorySummary struct {
	CategoryID    int64   `json:"categoryId"`
	CategoryName  string  `json:"categoryName"`
	CategoryColor string  `json:"categoryColor"`
	Total         float64 `json:"total"`
	Count         int     `json:"count"`
	Percentage    float64 `json:"percentage"`
}

type MonthlyTrend struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error
	FindByID(ctx context.Context, id int64) (*Transaction, error)
	FindByUser(ctx context.Context, userID int64, filter TransactionFilter) ([]Transaction, error)
	Update(ctx context.Context, transaction *Transaction) error
	Delete(ctx context.Context, id int64) error
	GetSummary(ctx context.Context, userID int64, startDate, endDate *Date) (Summary, error)
	GetSummaryByCategory(ctx context.Context, userID int64, transactionType string, startDate, endDate *Date) ([]CategorySummary, error)
}
