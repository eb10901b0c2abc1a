package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Flashmaxi/expense-tracker/internal/config"
	"github.com/Flashmaxi/expense-tracker/internal/currency"
)

const (
	maxEmailLength  = 254
	maxNameLength   = 100
	bcryptCost      = 12
	defaultCurrency = "USD"
)

var (
	ErrInvalidEmail           = errors.New("email address is not valid")
	ErrEmailAlreadyExists     = errors.New("user already exists with this email")
	ErrMissingFields          = errors.New("all fields are required")
	ErrNameLength             = fmt.Errorf("names must be at most %d characters long", maxNameLength)
	ErrInvalidCurrency        = errors.New("invalid currency code")
	ErrInvalidOrExpiredToken  = errors.New("invalid or expired reset token")
	ErrTwoFactorNotConfigured = errors.New("two-factor authentication has not been set up")
)

type User struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Currency         string     `json:"currency"`
	PasswordHash     string     `json:"-"`
	ResetToken       string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	TwoFactorSecret  string     `json:"-"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

type Service interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*User, error)
	EnsureOwner(ctx context.Context, owner config.OwnerConfig) (*User, bool, error)
	GetUserByID(ctx context.Context, userID int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserCurrency(ctx context.Context, userID int64) (string, error)
	UpdateCurrency(ctx context.Context, userID int64, code string) error
	CheckPassword(user *User, password string) bool
	SetPassword(ctx context.Context, userID int64, password string) error
	SaveResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	GetUserByResetToken(ctx context.Context, token string) (*User, error)
	ClearResetToken(ctx context.Context, userID int64) error
	SaveTwoFactorSecret(ctx context.Context, userID int64, secret string) error
	EnableTwoFactor(ctx context.Context, userID int64) error
	DisableTwoFactor(ctx context.Context, userID int64) error
}

type service struct {
	repo       Repository
	currencies currency.Service
	now        func() time.Time
}

func NewUserService(repo Repository, currencies currency.Service) Service {
	return &service{
		repo:       repo,
		currencies: currencies,
		now:        time.Now,
	}
}

func hashPassword(password string) (string, error) {
	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hashedPasswordBytes), err
}

func doPasswordsMatch(hashedPassword, currPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(currPassword))
	return err == nil
}

// validateEmailAddress only checks the format, the owner address of a
// self-hosted install does not need a resolvable host.
func validateEmailAddress(email string) error {
	if len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		log.WithField("email", email).Debug("Email format check failed")
		return ErrInvalidEmail
	}
	return nil
}

func (s *service) normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency, nil
	}
	if !s.currencies.IsValid(code) {
		return "", ErrInvalidCurrency
	}
	return code, nil
}

func (s *service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if email == "" || password == "" || firstName == "" || lastName == "" {
		return nil, ErrMissingFields
	}
	if len(firstName) > maxNameLength || len(lastName) > maxNameLength {
		return nil, ErrNameLength
	}
	if err := validateEmailAddress(email); err != nil {
		return nil, err
	}

	_, err := s.repo.getUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailAlreadyExists
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &User{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		Currency:     defaultCurrency,
		PasswordHash: passwordHash,
	}
	if err := s.repo.createUser(ctx, user); err != nil {
		return nil, err
	}
	return s.repo.getUserByID(ctx, user.ID)
}

// EnsureOwner looks up the configured owner and creates it without a
// password when missing. created tells the caller to seed defaults.
func (s *service) EnsureOwner(ctx context.Context, owner config.OwnerConfig) (*User, bool, error) {
	email := strings.ToLower(strings.TrimSpace(owner.Email))
	if err := validateEmailAddress(email); err != nil {
		return nil, false, fmt.Errorf("owner email %q: %w", owner.Email, err)
	}

	existing, err := s.repo.getUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	code, err := s.normalizeCurrency(owner.Currency)
	if err != nil {
		log.WithField("currency", owner.Currency).Warn("Unsupported owner currency, using USD")
		code = defaultCurrency
	}
	user := &User{
		Email:     email,
		FirstName: owner.FirstName,
		LastName:  owner.LastName,
		Currency:  code,
	}
	if err := s.repo.createUser(ctx, user); err != nil {
		return nil, false, err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "email": email}).Info("Created owner user")

	created, err := s.repo.getUserByID(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *service) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.getUserByID(ctx, userID)
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.getUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *service) GetUserCurrency(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.getUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.Currency == "" {
		return defaultCurrency, nil
	}
	return user.Currency, nil
}

func (s *service) UpdateCurrency(ctx context.Context, userID int64, code string) error {
	if strings.TrimSpace(code) == "" {
		return ErrInvalidCurrency
	}
	normalized, err := s.normalizeCurrency(code)
	if err != nil {
		return err
	}
	return s.repo.updateCurrency(ctx, userID, normalized)
}

func (s *service) CheckPassword(user *User, password string) bool {
	if user == nil || !user.HasPassword() {
		return false
	}
	return doPasswordsMatch(user.PasswordHash, password)
}

func (s *service) SetPassword(ctx context.Context, userID int64, password string) error {
	passwordHash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}
	return s.repo.updatePassword(ctx, userID, passwordHash)
}

func (s *service) SaveResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return s.repo.saveResetToken(ctx, userID, token, expiresAt)
}

// GetUserByResetToken treats unknown and expired tokens alike.
func (s *service) GetUserByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	user, err := s.repo.getUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}
	if user.ResetTokenExpiry == nil || !s.now().Before(*user.ResetTokenExpiry) {
		return nil, ErrInvalidOrExpiredToken
	}
	return user, nil
}

func (s *service) ClearResetToken(ctx context.Context, userID int64) error {
	return s.repo.clearResetToken(ctx, userID)
}

func (s *service) SaveTwoFactorSecret(ctx context.Context, userID int64, secret string) error {
	return s.repo.saveTwoFactorSecret(ctx, userID, secret)
}

func (s *service) EnableTwoFactor(ctx context.Context, userID int64) error {
	user, err := s.repo.getUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorSecret == "" {
		return ErrTwoFactorNotConfigured
	}
	return s.repo.setTwoFactorEnabled(ctx, userID, true)
}

func (s *service) DisableTwoFactor(ctx context.Context, userID int64) error {
	return s.repo.setTwoFactorEnabled(ctx, userID, false)
}
