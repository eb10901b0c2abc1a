package application

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/bitcoin"
	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
	MaxTrendMonths   = 120
)

// PriceSource yields the BTC price for a day in a currency. It never fails;
// degraded prices come back as fallbacks.
type PriceSource interface {
	PriceForDate(ctx context.Context, date time.Time, currency string) float64
}

type CurrencyPreference interface {
	GetUserCurrency(ctx context.Context, userID int64) (string, error)
}

type CategoryLookup interface {
	GetCategory(ctx context.Context, userID, categoryID int64) (*domain.Category, error)
}

type TransactionService struct {
	repo       domain.TransactionRepository
	categories CategoryLookup
	prices     PriceSource
	currencies CurrencyPreference
	now        func() time.Time
}

func NewTransactionService(
	repo domain.TransactionRepository,
	categories CategoryLookup,
	prices PriceSource,
	currencies CurrencyPreference,
) *TransactionService {
	return &TransactionService{
		repo:       repo,
		categories: categories,
		prices:     prices,
		currencies: currencies,
		now:        time.Now,
	}
}

func (s *TransactionService) CreateTransaction(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	transaction.RoundToTwoDecimalPlaces()
	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, transaction.UserID, transaction.CategoryID, transaction.Type); err != nil {
		return nil, err
	}
	if err := s.capturePrice(ctx, transaction); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, transaction); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, transaction.ID)
}

func (s *TransactionService) GetTransactions(ctx context.Context, userID int64, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Type != "" && !domain.IsValidTransactionType(filter.Type) {
		return nil, financeErrors.NewValidationError("Type must be either income or expense")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}

	transactions, err := s.repo.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	if transactions == nil {
		return []domain.Transaction{}, nil
	}
	return transactions, nil
}

// GetTransaction returns the transaction if userID owns it.
func (s *TransactionService) GetTransaction(ctx context.Context, userID, transactionID int64) (*domain.Transaction, error) {
	transaction, err := s.repo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if transaction.UserID != userID {
		return nil, financeErrors.ErrAccessDenied
	}
	return transaction, nil
}

// UpdateTransaction applies the given fields. A changed amount or date
// captures a new price; the type never changes.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID, transactionID int64, update domain.TransactionUpdate) (*domain.Transaction, error) {
	transaction, err := s.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if update.Amount == nil && update.Description == nil && update.CategoryID == nil && !update.ClearCategory && update.Date == nil {
		return nil, financeErrors.ErrNoFieldsToUpdate
	}

	recapture := false
	if update.Amount != nil {
		amount := domain.RoundAmount(*update.Amount)
		recapture = recapture || amount != transaction.Amount
		transaction.Amount = amount
	}
	if update.Date != nil {
		recapture = recapture || !update.Date.Equal(transaction.Date.Time)
		transaction.Date = *update.Date
	}
	if update.Description != nil {
		transaction.Description = *update.Description
	}
	switch {
	case update.ClearCategory:
		transaction.CategoryID = nil
	case update.CategoryID != nil:
		if err := s.checkCategory(ctx, userID, update.CategoryID, transaction.Type); err != nil {
			return nil, err
		}
		transaction.CategoryID = update.CategoryID
	}

	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	if recapture {
		if err := s.capturePrice(ctx, transaction); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, transaction); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, transactionID)
}

func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, transactionID int64) error {
	if _, err := s.GetTransaction(ctx, userID, transactionID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, transactionID)
}

func (s *TransactionService) GetSummary(ctx context.Context, userID int64, startDate, endDate *domain.Date) (domain.Summary, error) {
	summary, err := s.repo.GetSummary(ctx, userID, startDate, endDate)
	if err != nil {
		return domain.Summary{}, err
	}
	income := decimal.NewFromFloat(summary.TotalIncome).Round(2)
	expenses := decimal.NewFromFloat(summary.TotalExpenses).Round(2)
	summary.TotalIncome, _ = income.Float64()
	summary.TotalExpenses, _ = expenses.Float64()
	summary.Balance, _ = income.Sub(expenses).Float64()
	return summary, nil
}

// GetCategorySummary totals one transaction type per category. Percentages
// are relative to the sum of the returned rows.
func (s *TransactionService) GetCategorySummary(ctx context.Context, userID int64, transactionType string, startDate, endDate *domain.Date) ([]domain.CategorySummary, error) {
	if !domain.IsValidTransactionType(transactionType) {
		return nil, financeErrors.NewValidationError("Type must be either income or expense")
	}
	rows, err := s.repo.GetSummaryByCategory(ctx, userID, transactionType, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return []domain.CategorySummary{}, nil
	}

	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(decimal.NewFromFloat(row.Total))
	}
	hundred := decimal.NewFromInt(100)
	for i := range rows {
		rows[i].Total = domain.RoundAmount(rows[i].Total)
		if total.IsPositive() {
			rows[i].Percentage, _ = decimal.NewFromFloat(rows[i].Total).Div(total).Mul(hundred).Round(2).Float64()
		}
	}
	return rows, nil
}

// GetMonthlyTrends buckets income and expenses by calendar month for
// transactions dated within the last months months, oldest month first.
func (s *TransactionService) GetMonthlyTrends(ctx context.Context, userID int64, months int) ([]domain.MonthlyTrend, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, financeErrors.NewValidationError("Months must be between 1 and 120")
	}
	since := domain.DateOf(s.now()).AddMonths(-months)

	transactions, err := s.repo.FindByUser(ctx, userID, domain.TransactionFilter{StartDate: &since})
	if err != nil {
		return nil, err
	}

	type bucket struct{ income, expenses decimal.Decimal }
	buckets := make(map[string]*bucket)
	var order []string
	// rows arrive newest first
	for i := len(transactions) - 1; i >= 0; i-- {
		t := transactions[i]
		month := t.Date.Format("2006-01")
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
			order = append(order, month)
		}
		amount := decimal.NewFromFloat(t.Amount)
		if t.Type == domain.TypeIncome {
			b.income = b.income.Add(amount)
		} else {
			b.expenses = b.expenses.Add(amount)
		}
	}

	trends := make([]domain.MonthlyTrend, 0, len(order))
	for _, month := range order {
		b := buckets[month]
		income, _ := b.income.Round(2).Float64()
		expenses, _ := b.expenses.Round(2).Float64()
		trends = append(trends, domain.MonthlyTrend{Month: month, Income: income, Expenses: expenses})
	}
	return trends, nil
}

// ExportTransactions returns every transaction in the range, newest first,
// with the currency their amounts are recorded in.
func (s *TransactionService) ExportTransactions(ctx context.Context, userID int64, startDate, endDate *domain.Date) ([]domain.Transaction, string, error) {
	currency, err := s.userCurrency(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	transactions, err := s.repo.FindByUser(ctx, userID, domain.TransactionFilter{StartDate: startDate, EndDate: endDate})
	if err != nil {
		return nil, "", err
	}
	return transactions, currency, nil
}

func (s *TransactionService) checkCategory(ctx context.Context, userID int64, categoryID *int64, transactionType string) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categories.GetCategory(ctx, userID, *categoryID)
	if err != nil {
		if errors.Is(err, financeErrors.ErrCategoryNotFound) || errors.Is(err, financeErrors.ErrAccessDenied) {
			return financeErrors.ErrInvalidCategory
		}
		return err
	}
	if category.Type != transactionType {
		return financeErrors.ErrCategoryTypeMismatch
	}
	return nil
}

// capturePrice records the BTC price for the transaction date in the
// owner's currency and derives the satoshi amount from it.
func (s *TransactionService) capturePrice(ctx context.Context, transaction *domain.Transaction) error {
	currency, err := s.userCurrency(ctx, transaction.UserID)
	if err != nil {
		return err
	}
	price := s.prices.PriceForDate(ctx, transaction.Date.Time, currency)
	transaction.BitcoinPrice = price
	sats, err := bitcoin.ConvertToSatoshis(transaction.Amount, price)
	if err != nil {
		return financeErrors.NewValidationError("Amount is too large for the bitcoin price on this date")
	}
	transaction.SatoshiAmount = sats

	log.WithFields(log.Fields{
		"date":     transaction.Date.String(),
		"currency": currency,
		"price":    price,
		"sats":     transaction.SatoshiAmount,
	}).Debug("Captured bitcoin price for transaction")
	return nil
}

func (s *TransactionService) userCurrency(ctx context.Context, userID int64) (string, error) {
	currency, err := s.currencies.GetUserCurrency(ctx, userID)
	if err != nil {
		return "", err
	}
	if currency == "" {
		return bitcoin.BaseCurrency, nil
	}
	return currency, nil
}
