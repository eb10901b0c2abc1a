package infrastructure

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Flashmaxi/expense-tracker/internal/config"
	database "github.com/Flashmaxi/expense-tracker/internal/db"
	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

func newSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	svc, err := database.NewDBService(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, svc.Migrate(context.Background()))
	return svc.DB
}

func insertUser(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`INSERT INTO users (email, first_name, last_name) VALUES ($1, 'Test', 'User') RETURNING id`, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestSQLiteRepositories(t *testing.T) {
	runRepositorySuite(t, newSQLiteDB(t))
}

// runRepositorySuite exercises both repositories against a migrated,
// empty database.
func runRepositorySuite(t *testing.T, db *sql.DB) {
	ctx := context.Background()
	categories := NewCategoryRepository(db)
	transactions := NewTransactionRepository(db)

	userID := insertUser(t, db, "owner@example.com")
	otherID := insertUser(t, db, "other@example.com")

	food := &domain.Category{Name: "Food", Type: domain.TypeExpense, Color: "#EF4444", UserID: userID}
	salary := &domain.Category{Name: "Salary", Type: domain.TypeIncome, Color: "#10B981", UserID: userID}
	foreign := &domain.Category{Name: "Rent", Type: domain.TypeExpense, Color: "#000000", UserID: otherID}
	for _, c := range []*domain.Category{food, salary, foreign} {
		require.NoError(t, categories.Create(ctx, c))
		assert.NotZero(t, c.ID)
	}

	t.Run("categories", func(t *testing.T) {
		found, err := categories.FindByID(ctx, food.ID)
		require.NoError(t, err)
		assert.Equal(t, "Food", found.Name)
		assert.Equal(t, userID, found.UserID)
		assert.False(t, found.CreatedAt.IsZero())

		all, err := categories.FindByUser(ctx, userID, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		expenses, err := categories.FindByUser(ctx, userID, domain.TypeExpense)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		assert.Equal(t, food.ID, expenses[0].ID)

		_, err = categories.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, financeErrors.ErrCategoryNotFound)
	})

	foodID := food.ID
	salaryID := salary.ID
	rows := []*domain.Transaction{
		{Amount: 12.5, Description: "lunch", Type: domain.TypeExpense, CategoryID: &foodID, UserID: userID,
			Date: domain.NewDate(2024, 1, 15), BitcoinPrice: 42000, SatoshiAmount: 29762},
		{Amount: 3000, Description: "january", Type: domain.TypeIncome, CategoryID: &salaryID, UserID: userID,
			Date: domain.NewDate(2024, 1, 31), BitcoinPrice: 43000, SatoshiAmount: 6976744},
		{Amount: 40, Description: "groceries", Type: domain.TypeExpense, CategoryID: &foodID, UserID: userID,
			Date: domain.NewDate(2024, 2, 3), BitcoinPrice: 43500, SatoshiAmount: 91954},
		{Amount: 7.5, Description: "uncategorized", Type: domain.TypeExpense, UserID: userID,
			Date: domain.NewDate(2024, 2, 4), BitcoinPrice: 43600, SatoshiAmount: 17202},
		{Amount: 99, Description: "someone else", Type: domain.TypeExpense, UserID: otherID,
			Date: domain.NewDate(2024, 2, 4), BitcoinPrice: 43600, SatoshiAmount: 227064},
	}
	for _, tx := range rows {
		require.NoError(t, transactions.Create(ctx, tx))
	}

	t.Run("find by id joins category", func(t *testing.T) {
		found, err := transactions.FindByID(ctx, rows[0].ID)
		require.NoError(t, err)
		assert.Equal(t, 12.5, found.Amount)
		assert.Equal(t, "2024-01-15", found.Date.String())
		assert.Equal(t, int64(29762), found.SatoshiAmount)
		require.NotNil(t, found.CategoryName)
		assert.Equal(t, "Food", *found.CategoryName)
		assert.Equal(t, "#EF4444", *found.CategoryColor)

		uncategorized, err := transactions.FindByID(ctx, rows[3].ID)
		require.NoError(t, err)
		assert.Nil(t, uncategorized.CategoryID)
		assert.Nil(t, uncategorized.CategoryName)

		_, err = transactions.FindByID(ctx, 9999)
		assert.ErrorIs(t, err, financeErrors.ErrTransactionNotFound)
	})

	t.Run("list ordering, filters and paging", func(t *testing.T) {
		all, err := transactions.FindByUser(ctx, userID, domain.TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "2024-02-04", all[0].Date.String())
		assert.Equal(t, "2024-01-15", all[3].Date.String())

		expenses, err := transactions.FindByUser(ctx, userID, domain.TransactionFilter{Type: domain.TypeExpense})
		require.NoError(t, err)
		assert.Len(t, expenses, 3)

		start, end := domain.NewDate(2024, 1, 31), domain.NewDate(2024, 2, 3)
		ranged, err := transactions.FindByUser(ctx, userID, domain.TransactionFilter{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		assert.Len(t, ranged, 2)

		page2, err := transactions.FindByUser(ctx, userID, domain.TransactionFilter{Limit: 3, Page: 2})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Equal(t, rows[0].ID, page2[0].ID)
	})

	t.Run("summaries", func(t *testing.T) {
		summary, err := transactions.GetSummary(ctx, userID, nil, nil)
		require.NoError(t, err)
		assert.InDelta(t, 3000, summary.TotalIncome, 1e-9)
		assert.InDelta(t, 60, summary.TotalExpenses, 1e-9)
		assert.Equal(t, 4, summary.TransactionCount)

		start := domain.NewDate(2024, 2, 1)
		february, err := transactions.GetSummary(ctx, userID, &start, nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, february.TotalIncome)
		assert.Equal(t, 2, february.TransactionCount)

		byCategory, err := transactions.GetSummaryByCategory(ctx, userID, domain.TypeExpense, nil, nil)
		require.NoError(t, err)
		require.Len(t, byCategory, 1)
		assert.Equal(t, food.ID, byCategory[0].CategoryID)
		assert.InDelta(t, 52.5, byCategory[0].Total, 1e-9)
		assert.Equal(t, 2, byCategory[0].Count)
	})

	t.Run("update and delete", func(t *testing.T) {
		tx := rows[2]
		tx.Amount = 45
		tx.Description = "more groceries"
		tx.CategoryID = nil
		require.NoError(t, transactions.Update(ctx, tx))

		found, err := transactions.FindByID(ctx, tx.ID)
		require.NoError(t, err)
		assert.Equal(t, 45.0, found.Amount)
		assert.Nil(t, found.CategoryID)

		require.NoError(t, transactions.Delete(ctx, tx.ID))
		assert.ErrorIs(t, transactions.Delete(ctx, tx.ID), financeErrors.ErrTransactionNotFound)
	})

	t.Run("deleting a category detaches its transactions", func(t *testing.T) {
		require.NoError(t, categories.Delete(ctx, food.ID))

		found, err := transactions.FindByID(ctx, rows[0].ID)
		require.NoError(t, err)
		assert.Nil(t, found.CategoryID)
		assert.ErrorIs(t, categories.Delete(ctx, food.ID), financeErrors.ErrCategoryNotFound)
	})
}
