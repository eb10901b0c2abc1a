package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `id, name, type, color, user_id, created_at`

func scanCategory(row interface{ Scan(...interface{}) error }) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.Color, &c.UserID, &c.CreatedAt)
	return c, err
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO categories (name, type, color, user_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		category.Name, category.Type, category.Color, category.UserID,
	).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("could not create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	category, err := scanCategory(r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("could not find category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) FindByUser(ctx context.Context, userID int64, categoryType string) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id = $1`
	args := []interface{}{userID}
	if categoryType != "" {
		query += " AND type = $2"
		args = append(args, categoryType)
	}
	query += " ORDER BY type, name"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = $1, color = $2 WHERE id = $3`,
		category.Name, category.Color, category.ID,
	)
	if err != nil {
		return fmt.Errorf("could not update category: %w", err)
	}
	return expectRow(res, financeErrors.ErrCategoryNotFound)
}

func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("could not delete category: %w", err)
	}
	return expectRow(res, financeErrors.ErrCategoryNotFound)
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
