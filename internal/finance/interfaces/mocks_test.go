package interfaces

import (
	"context"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type MockTransactionService struct {
	transactions map[int64]domain.Transaction
	err          error

	lastFilter domain.TransactionFilter
	lastUpdate domain.TransactionUpdate
	lastMonths int
}

func (m *MockTransactionService) lookup(userID, id int64) (*domain.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return nil, financeErrors.ErrTransactionNotFound
	}
	if t.UserID != userID {
		return nil, financeErrors.ErrAccessDenied
	}
	return &t, nil
}

func (m *MockTransactionService) CreateTransaction(_ context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	created := *transaction
	created.ID = 1
	created.BitcoinPrice = 45000
	created.SatoshiAmount = 100_000_000
	return &created, nil
}

func (m *MockTransactionService) GetTransactions(_ context.Context, userID int64, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Transaction{}
	for _, t := range m.transactions {
		if t.UserID == userID && len(out) < filter.Limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTransactionService) GetTransaction(_ context.Context, userID, transactionID int64) (*domain.Transaction, error) {
	return m.lookup(userID, transactionID)
}

func (m *MockTransactionService) UpdateTransaction(_ context.Context, userID, transactionID int64, update domain.TransactionUpdate) (*domain.Transaction, error) {
	m.lastUpdate = update
	t, err := m.lookup(userID, transactionID)
	if err != nil {
		return nil, err
	}
	if update.ClearCategory {
		t.CategoryID = nil
	}
	return t, nil
}

func (m *MockTransactionService) DeleteTransaction(_ context.Context, userID, transactionID int64) error {
	_, err := m.lookup(userID, transactionID)
	return err
}

func (m *MockTransactionService) GetSummary(_ context.Context, _ int64, _, _ *domain.Date) (domain.Summary, error) {
	return domain.Summary{TotalIncome: 100, TotalExpenses: 40, Balance: 60, TransactionCount: 2}, m.err
}

func (m *MockTransactionService) GetCategorySummary(_ context.Context, _ int64, _ string, _, _ *domain.Date) ([]domain.CategorySummary, error) {
	return []domain.CategorySummary{}, m.err
}

func (m *MockTransactionService) GetMonthlyTrends(_ context.Context, _ int64, months int) ([]domain.MonthlyTrend, error) {
	m.lastMonths = months
	return []domain.MonthlyTrend{{Month: "2024-05", Income: 10, Expenses: 5}}, m.err
}

func (m *MockTransactionService) ExportTransactions(_ context.Context, userID int64, _, _ *domain.Date) ([]domain.Transaction, string, error) {
	var out []domain.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, "USD", m.err
}

type MockCategoryService struct {
	categories map[int64]domain.Category
	err        error
}

func (m *MockCategoryService) CreateCategory(_ context.Context, category *domain.Category) (*domain.Category, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}
	created := *category
	created.ID = 100
	if created.Color == "" {
		created.Color = domain.DefaultCategoryColor
	}
	return &created, nil
}

func (m *MockCategoryService) GetCategories(_ context.Context, userID int64, categoryType string) ([]domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Category{}
	for _, c := range m.categories {
		if c.UserID == userID && (categoryType == "" || c.Type == categoryType) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockCategoryService) GetCategory(_ context.Context, userID, categoryID int64) (*domain.Category, error) {
	c, ok := m.categories[categoryID]
	if !ok {
		return nil, financeErrors.ErrCategoryNotFound
	}
	if c.UserID != userID {
		return nil, financeErrors.ErrAccessDenied
	}
	return &c, nil
}

func (m *MockCategoryService) UpdateCategory(ctx context.Context, userID, categoryID int64, update domain.CategoryUpdate) (*domain.Category, error) {
	c, err := m.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	return c, nil
}

func (m *MockCategoryService) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	_, err := m.GetCategory(ctx, userID, categoryID)
	return err
}
