package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionSelect = `SELECT t.id, t.amount, t.description, t.type, t.category_id, t.user_id, t.date,
       t.bitcoin_price, t.satoshi_amount, t.created_at, t.updated_at, c.name, c.color
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(row interface{ Scan(...interface{}) error }) (domain.Transaction, error) {
	var (
		t             domain.Transaction
		categoryID    sql.NullInt64
		categoryName  sql.NullString
		categoryColor sql.NullString
	)
	err := row.Scan(&t.ID, &t.Amount, &t.Description, &t.Type, &categoryID, &t.UserID, &t.Date,
		&t.BitcoinPrice, &t.SatoshiAmount, &t.CreatedAt, &t.UpdatedAt, &categoryName, &categoryColor)
	if err != nil {
		return t, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if categoryName.Valid {
		t.CategoryName = &categoryName.String
	}
	if categoryColor.Valid {
		t.CategoryColor = &categoryColor.String
	}
	return t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *domain.Transaction) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO transactions (amount, description, type, category_id, user_id, date, bitcoin_price, satoshi_amount)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		transaction.Amount, transaction.Description, transaction.Type, transaction.CategoryID,
		transaction.UserID, transaction.Date, transaction.BitcoinPrice, transaction.SatoshiAmount,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("could not create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	transaction, err := scanTransaction(r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("could not find transaction: %w", err)
	}
	return &transaction, nil
}

// FindByUser lists the user's transactions newest first. A zero limit
// returns every matching row.
func (r *TransactionRepository) FindByUser(ctx context.Context, userID int64, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	query := transactionSelect + ` WHERE t.user_id = $1`
	args := []interface{}{userID}
	if filter.Type != "" {
		args = append(args, filter.Type)
		query += fmt.Sprintf(" AND t.type = $%d", len(args))
	}
	query, args = dateRange(query, args, "t.date", filter.StartDate, filter.EndDate)
	query += " ORDER BY t.date DESC, t.created_at DESC, t.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset())
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, transaction *domain.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
        SET amount = $1, description = $2, category_id = $3, date = $4, bitcoin_price = $5, satoshi_amount = $6,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $7`,
		transaction.Amount, transaction.Description, transaction.CategoryID, transaction.Date,
		transaction.BitcoinPrice, transaction.SatoshiAmount, transaction.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update transaction: %w", err)
	}
	return expectRow(res, financeErrors.ErrTransactionNotFound)
}

func (r *TransactionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete transaction: %w", err)
	}
	return expectRow(res, financeErrors.ErrTransactionNotFound)
}

func (r *TransactionRepository) GetSummary(ctx context.Context, userID int64, startDate, endDate *domain.Date) (domain.Summary, error) {
	query := `SELECT
        COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN type = 'expense' THEN amount ELSE 0 END), 0),
        COUNT(*)
    FROM transactions
    WHERE user_id = $1`
	args := []interface{}{userID}
	query, args = dateRange(query, args, "date", startDate, endDate)

	var summary domain.Summary
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&summary.TotalIncome, &summary.TotalExpenses, &summary.TransactionCount)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("could not summarize transactions: %w", err)
	}
	return summary, nil
}

// GetSummaryByCategory totals categorized transactions of one type,
// largest total first. Percentages are left for the caller.
func (r *TransactionRepository) GetSummaryByCategory(ctx context.Context, userID int64, transactionType string, startDate, endDate *domain.Date) ([]domain.CategorySummary, error) {
	query := `SELECT c.id, c.name, c.color, SUM(t.amount) AS total, COUNT(t.id)
    FROM transactions t
    JOIN categories c ON c.id = t.category_id
    WHERE t.user_id = $1 AND t.type = $2`
	args := []interface{}{userID, transactionType}
	query, args = dateRange(query, args, "t.date", startDate, endDate)
	query += " GROUP BY c.id, c.name, c.color ORDER BY total DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not summarize categories: %w", err)
	}
	defer rows.Close()

	var summary []domain.CategorySummary
	for rows.Next() {
		var row domain.CategorySummary
		if err := rows.Scan(&row.CategoryID, &row.CategoryName, &row.CategoryColor, &row.Total, &row.Count); err != nil {
			return nil, fmt.Errorf("could not scan category summary: %w", err)
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

// dateRange appends inclusive date bounds, numbering placeholders after
// the existing arguments.
func dateRange(query string, args []interface{}, column string, startDate, endDate *domain.Date) (string, []interface{}) {
	if startDate != nil {
		args = append(args, *startDate)
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if endDate != nil {
		args = append(args, *endDate)
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return query, args
}
