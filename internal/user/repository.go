package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type Repository interface {
	createUser(ctx context.Context, user *User) error
	getUserByID(ctx context.Context, id int64) (*User, error)
	getUserByEmail(ctx context.Context, email string) (*User, error)
	getUserByResetToken(ctx context.Context, token string) (*User, error)
	updateCurrency(ctx context.Context, id int64, currency string) error
	updatePassword(ctx context.Context, id int64, passwordHash string) error
	saveResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	clearResetToken(ctx context.Context, id int64) error
	saveTwoFactorSecret(ctx context.Context, id int64, secret string) error
	setTwoFactorEnabled(ctx context.Context, id int64, enabled bool) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) Repository {
	return &userRepository{
		db: db,
	}
}

const userColumns = `id, email, password_hash, first_name, last_name, currency, reset_token, reset_token_expiry, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var (
		user        User
		resetToken  sql.NullString
		resetExpiry sql.NullTime
	)
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.Currency,
		&resetToken, &resetExpiry, &user.TwoFactorSecret, &user.TwoFactorEnabled, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not find user: %w", err)
	}
	if resetToken.Valid {
		user.ResetToken = resetToken.String
	}
	if resetExpiry.Valid {
		expiry := resetExpiry.Time
		user.ResetTokenExpiry = &expiry
	}
	return &user, nil
}

func (r *userRepository) createUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Currency).Scan(&id)
	if err != nil {
		return fmt.Errorf("could not create user: %w", err)
	}

	user.ID = id
	return nil
}

func (r *userRepository) getUserByID(ctx context.Context, id int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *userRepository) getUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *userRepository) getUserByResetToken(ctx context.Context, token string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *userRepository) exec(ctx context.Context, action, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not %s: %w", action, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not %s: %w", action, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) updateCurrency(ctx context.Context, id int64, currency string) error {
	query := `
		UPDATE users
		SET currency = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	return r.exec(ctx, "update currency", query, currency, id)
}

func (r *userRepository) updatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	return r.exec(ctx, "update user password", query, passwordHash, id)
}

func (r *userRepository) saveResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_token = $1, reset_token_expiry = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`
	return r.exec(ctx, "save reset token", query, token, expiresAt.UTC(), id)
}

func (r *userRepository) clearResetToken(ctx context.Context, id int64) error {
	query := `
		UPDATE users
		SET reset_token = NULL, reset_token_expiry = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`
	return r.exec(ctx, "clear reset token", query, id)
}

func (r *userRepository) saveTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	query := `
		UPDATE users
		SET totp_secret = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	return r.exec(ctx, "save two-factor secret", query, secret, id)
}

// setTwoFactorEnabled drops the stored secret when disabling.
func (r *userRepository) setTwoFactorEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `
		UPDATE users
		SET totp_enabled = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`
	if !enabled {
		query = `
			UPDATE users
			SET totp_enabled = $1, totp_secret = '', updated_at = CURRENT_TIMESTAMP
			WHERE id = $2
		`
	}
	return r.exec(ctx, "update two-factor status", query, enabled, id)
}
