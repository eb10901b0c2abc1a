package application

import (
	"context"
	"sort"
	"time"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type MockTransactionRepository struct {
	Transactions map[int64]domain.Transaction
	nextID       int64
	LastFilter   domain.TransactionFilter
}

func NewMockTransactionRepository(transactions ...domain.Transaction) *MockTransactionRepository {
	m := &MockTransactionRepository{Transactions: make(map[int64]domain.Transaction)}
	for _, t := range transactions {
		if t.ID > m.nextID {
			m.nextID = t.ID
		}
		m.Transactions[t.ID] = t
	}
	return m
}

func (m *MockTransactionRepository) Create(_ context.Context, transaction *domain.Transaction) error {
	m.nextID++
	transaction.ID = m.nextID
	m.Transactions[transaction.ID] = *transaction
	return nil
}

func (m *MockTransactionRepository) FindByID(_ context.Context, id int64) (*domain.Transaction, error) {
	t, ok := m.Transactions[id]
	if !ok {
		return nil, financeErrors.ErrTransactionNotFound
	}
	return &t, nil
}

func (m *MockTransactionRepository) FindByUser(_ context.Context, userID int64, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	m.LastFilter = filter
	var out []domain.Transaction
	for _, t := range m.Transactions {
		if t.UserID != userID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.StartDate != nil && t.Date.Before(filter.StartDate.Time) {
			continue
		}
		if filter.EndDate != nil && t.Date.After(filter.EndDate.Time) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MockTransactionRepository) Update(_ context.Context, transaction *domain.Transaction) error {
	if _, ok := m.Transactions[transaction.ID]; !ok {
		return financeErrors.ErrTransactionNotFound
	}
	m.Transactions[transaction.ID] = *transaction
	return nil
}

func (m *MockTransactionRepository) Delete(_ context.Context, id int64) error {
	if _, ok := m.Transactions[id]; !ok {
		return financeErrors.ErrTransactionNotFound
	}
	delete(m.Transactions, id)
	return nil
}

func (m *MockTransactionRepository) GetSummary(ctx context.Context, userID int64, startDate, endDate *domain.Date) (domain.Summary, error) {
	rows, _ := m.FindByUser(ctx, userID, domain.TransactionFilter{StartDate: startDate, EndDate: endDate})
	var s domain.Summary
	for _, t := range rows {
		if t.Type == domain.TypeIncome {
			s.TotalIncome += t.Amount
		} else {
			s.TotalExpenses += t.Amount
		}
		s.TransactionCount++
	}
	return s, nil
}

func (m *MockTransactionRepository) GetSummaryByCategory(ctx context.Context, userID int64, transactionType string, startDate, endDate *domain.Date) ([]domain.CategorySummary, error) {
	rows, _ := m.FindByUser(ctx, userID, domain.TransactionFilter{Type: transactionType, StartDate: startDate, EndDate: endDate})
	byCategory := make(map[int64]*domain.CategorySummary)
	var out []domain.CategorySummary
	for _, t := range rows {
		if t.CategoryID == nil {
			continue
		}
		s, ok := byCategory[*t.CategoryID]
		if !ok {
			s = &domain.CategorySummary{CategoryID: *t.CategoryID}
			byCategory[*t.CategoryID] = s
		}
		s.Total += t.Amount
		s.Count++
	}
	for _, s := range byCategory {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out, nil
}

type MockCategoryRepository struct {
	Categories map[int64]domain.Category
	nextID     int64
	FailCreate error
}

func NewMockCategoryRepository(categories ...domain.Category) *MockCategoryRepository {
	m := &MockCategoryRepository{Categories: make(map[int64]domain.Category)}
	for _, c := range categories {
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
		m.Categories[c.ID] = c
	}
	return m
}

func (m *MockCategoryRepository) Create(_ context.Context, category *domain.Category) error {
	if m.FailCreate != nil {
		return m.FailCreate
	}
	m.nextID++
	category.ID = m.nextID
	category.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.Categories[category.ID] = *category
	return nil
}

func (m *MockCategoryRepository) FindByID(_ context.Context, id int64) (*domain.Category, error) {
	c, ok := m.Categories[id]
	if !ok {
		return nil, financeErrors.ErrCategoryNotFound
	}
	return &c, nil
}

func (m *MockCategoryRepository) FindByUser(_ context.Context, userID int64, categoryType string) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range m.Categories {
		if c.UserID == userID && (categoryType == "" || c.Type == categoryType) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCategoryRepository) Update(_ context.Context, category *domain.Category) error {
	m.Categories[category.ID] = *category
	return nil
}

func (m *MockCategoryRepository) Delete(_ context.Context, id int64) error {
	delete(m.Categories, id)
	return nil
}

// MockPriceSource quotes a fixed price per day and counts lookups.
type MockPriceSource struct {
	Prices       map[string]float64
	Calls        int
	LastCurrency string
}

func (m *MockPriceSource) PriceForDate(_ context.Context, date time.Time, currency string) float64 {
	m.Calls++
	m.LastCurrency = currency
	if price, ok := m.Prices[date.Format(domain.DateLayout)]; ok {
		return price
	}
	return 45000
}

type MockCurrencyPreference struct {
	Currency string
	Err      error
}

func (m *MockCurrencyPreference) GetUserCurrency(_ context.Context, _ int64) (string, error) {
	return m.Currency, m.Err
}
