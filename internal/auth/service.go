package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/config"
	"github.com/Flashmaxi/expense-tracker/internal/currency"
	emailService "github.com/Flashmaxi/expense-tracker/internal/email"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

const (
	minPasswordLength = 6
	resetTokenBytes   = 32
	resetTokenTTL     = time.Hour
)

var (
	ErrInternalError         = errors.New("internal server error")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrRegistrationDisabled  = errors.New("registration is disabled")
	ErrAutoLoginDisabled     = errors.New("auto-login is disabled")
	ErrPasswordTooShort      = fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	ErrPasswordNotSet        = errors.New("password not set, please set up your password first")
	ErrPasswordAlreadySet    = errors.New("password has already been set")
	ErrOwnerNotFound         = errors.New("owner user not found")
	ErrInvalid2FACode        = errors.New("2fa code is invalid")
	ErrUser2FANotEnabled     = errors.New("two factor auth is not enabled")
	ErrUser2FAAlreadyEnabled = errors.New("2fa auth already enabled")
)

// CategorySeeder creates the starter categories of a new account.
type CategorySeeder interface {
	CreateDefaultCategories(ctx context.Context, userID int64) error
}

type Options struct {
	OwnerEmail        string
	FrontendURL       string
	TokenTTL          time.Duration
	OwnerTokenTTL     time.Duration
	AllowRegistration bool
	AutoLogin         bool
	ExposeResetToken  bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OwnerEmail:        cfg.Owner.Email,
		FrontendURL:       cfg.Server.FrontendURL,
		TokenTTL:          cfg.Auth.TokenTTL,
		OwnerTokenTTL:     cfg.Auth.OwnerTokenTTL,
		AllowRegistration: cfg.Auth.AllowRegistration,
		AutoLogin:         cfg.Auth.AutoLogin,
		ExposeResetToken:  cfg.Auth.ExposeResetToken,
	}
}

// AuthResult is either an access token or a pending second factor.
type AuthResult struct {
	Token             string     `json:"token,omitempty"`
	User              *user.User `json:"user,omitempty"`
	TwoFactorRequired bool       `json:"twoFactorRequired,omitempty"`
	SessionToken      string     `json:"sessionToken,omitempty"`
}

type Service interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	CheckSetup(ctx context.Context) (bool, error)
	SetupPassword(ctx context.Context, password, currencyCode string) (*AuthResult, error)
	LoginWithPassword(ctx context.Context, password string) (*AuthResult, error)
	AutoLogin(ctx context.Context) (*AuthResult, error)
	VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*AuthResult, error)
	RegisterTwoFactor(ctx context.Context, userID int64) (string, error)
	ConfirmTwoFactor(ctx context.Context, userID int64, code string) error
	DisableTwoFactor(ctx context.Context, userID int64, code string) error
	JWTAccessTokenMiddleware() func(http.Handler) http.Handler
}

type service struct {
	userService    user.Service
	categories     CategorySeeder
	currencies     currency.Service
	sessionManager SessionManagerInterface
	jwtManager     JWTManagerInterface
	emailService   emailService.EmailSender
	authenticator  TwoFactorAuthenticator
	opts           Options
	now            func() time.Time
}

func NewAuthService(
	userService user.Service,
	categories CategorySeeder,
	currencies currency.Service,
	sessionManager SessionManagerInterface,
	jwtManager JWTManagerInterface,
	emailService emailService.EmailSender,
	authenticator TwoFactorAuthenticator,
	opts Options,
) Service {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.OwnerTokenTTL <= 0 {
		opts.OwnerTokenTTL = OwnerTokenTTL
	}
	return &service{
		userService:    userService,
		categories:     categories,
		currencies:     currencies,
		sessionManager: sessionManager,
		jwtManager:     jwtManager,
		emailService:   emailService,
		authenticator:  authenticator,
		opts:           opts,
		now:            time.Now,
	}
}

func generateResetToken() (string, error) {
	token := make([]byte, resetTokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("could not generate reset token: %w", err)
	}
	return hex.EncodeToString(token), nil
}

// completeLogin hands out an access token, or a session token when the
// account still has to pass its second factor.
func (s *service) completeLogin(u *user.User, ttl time.Duration) (*AuthResult, error) {
	if u.TwoFactorEnabled {
		sessionToken, err := s.sessionManager.GenerateSessionToken(u.ID, ttl, defaultSessionTokenDuration)
		if err != nil {
			return nil, ErrInternalError
		}
		return &AuthResult{TwoFactorRequired: true, SessionToken: sessionToken}, nil
	}

	token, err := s.jwtManager.GenerateAccessJWT(u.ID, ttl)
	if err != nil {
		log.WithError(err).Error("Error during JWT generation")
		return nil, ErrInternalError
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *service) owner(ctx context.Context) (*user.User, error) {
	owner, err := s.userService.GetUserByEmail(ctx, s.opts.OwnerEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}
	return owner, nil
}

func (s *service) Register(ctx context.Context, email, password, firstName, lastName string) (*AuthResult, error) {
	if !s.opts.AllowRegistration {
		return nil, ErrRegistrationDisabled
	}
	if password != "" && len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	created, err := s.userService.Register(ctx, email, password, firstName, lastName)
	if err != nil {
		return nil, err
	}
	if err := s.categories.CreateDefaultCategories(ctx, created.ID); err != nil {
		log.WithError(err).WithField("user_id", created.ID).Error("Could not create default categories")
	}
	return s.completeLogin(created, s.opts.TokenTTL)
}

func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	existingUser, err := s.userService.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.userService.CheckPassword(existingUser, password) {
		return nil, ErrInvalidCredentials
	}
	return s.completeLogin(existingUser, s.opts.TokenTTL)
}

// RequestPasswordReset never reveals whether the email exists. The token is
// returned only when the install is configured to expose it.
func (s *service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	existingUser, err := s.userService.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			log.WithField("email", email).Debug("Password reset requested for unknown email")
			return "", nil
		}
		return "", err
	}

	token, err := generateResetToken()
	if err != nil {
		return "", err
	}
	if err := s.userService.SaveResetToken(ctx, existingUser.ID, token, s.now().Add(resetTokenTTL)); err != nil {
		return "", err
	}

	resetURL := strings.TrimRight(s.opts.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	err = s.emailService.QueueEmail(existingUser.Email, emailService.ResetPasswordData{
		UserName:  existingUser.FirstName,
		ResetURL:  resetURL,
		ExpiresIn: "1 hour",
	})
	if err != nil {
		log.WithError(err).WithField("user_id", existingUser.ID).Warn("Could not queue password reset email")
	}

	if s.opts.ExposeResetToken {
		return token, nil
	}
	return "", nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	existingUser, err := s.userService.GetUserByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if err := s.userService.SetPassword(ctx, existingUser.ID, newPassword); err != nil {
		return err
	}
	return s.userService.ClearResetToken(ctx, existingUser.ID)
}

func (s *service) CheckSetup(ctx context.Context) (bool, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return false, err
	}
	return owner.HasPassword(), nil
}

func (s *service) SetupPassword(ctx context.Context, password, currencyCode string) (*AuthResult, error) {
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if currencyCode != "" && !s.currencies.IsValid(currencyCode) {
		return nil, user.ErrInvalidCurrency
	}

	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if owner.HasPassword() {
		return nil, ErrPasswordAlreadySet
	}

	if err := s.userService.SetPassword(ctx, owner.ID, password); err != nil {
		return nil, err
	}
	if currencyCode != "" {
		if err := s.userService.UpdateCurrency(ctx, owner.ID, currencyCode); err != nil {
			return nil, err
		}
	}

	owner, err = s.userService.GetUserByID(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(owner, s.opts.OwnerTokenTTL)
}

func (s *service) LoginWithPassword(ctx context.Context, password string) (*AuthResult, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if !owner.HasPassword() {
		return nil, ErrPasswordNotSet
	}
	if !s.userService.CheckPassword(owner, password) {
		return nil, ErrInvalidPassword
	}
	return s.completeLogin(owner, s.opts.OwnerTokenTTL)
}

func (s *service) AutoLogin(ctx context.Context) (*AuthResult, error) {
	if !s.opts.AutoLogin {
		return nil, ErrAutoLoginDisabled
	}
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	return s.completeLogin(owner, s.opts.OwnerTokenTTL)
}

func (s *service) VerifyTwoFactor(ctx context.Context, sessionToken, code string) (*AuthResult, error) {
	session, err := s.sessionManager.VerifySessionToken(sessionToken)
	if err != nil {
		return nil, err
	}
	existingUser, err := s.userService.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !existingUser.TwoFactorEnabled {
		return nil, ErrUser2FANotEnabled
	}
	if !s.authenticator.VerifyCode(existingUser.TwoFactorSecret, code) {
		return nil, ErrInvalid2FACode
	}
	s.sessionManager.DeleteSessionToken(sessionToken)

	token, err := s.jwtManager.GenerateAccessJWT(existingUser.ID, session.TokenTTL)
	if err != nil {
		return nil, ErrInternalError
	}
	return &AuthResult{Token: token, User: existingUser}, nil
}

func (s *service) RegisterTwoFactor(ctx context.Context, userID int64) (string, error) {
	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if existingUser.TwoFactorEnabled {
		return "", ErrUser2FAAlreadyEnabled
	}

	otpURI, secret, err := s.authenticator.GenerateSecret(existingUser.Email)
	if err != nil {
		return "", ErrInternalError
	}
	if err := s.userService.SaveTwoFactorSecret(ctx, userID, secret); err != nil {
		return "", err
	}
	return otpURI, nil
}

func (s *service) ConfirmTwoFactor(ctx context.Context, userID int64, code string) error {
	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if existingUser.TwoFactorEnabled {
		return ErrUser2FAAlreadyEnabled
	}
	if existingUser.TwoFactorSecret == "" {
		return user.ErrTwoFactorNotConfigured
	}
	if !s.authenticator.VerifyCode(existingUser.TwoFactorSecret, code) {
		return ErrInvalid2FACode
	}
	return s.userService.EnableTwoFactor(ctx, userID)
}

func (s *service) DisableTwoFactor(ctx context.Context, userID int64, code string) error {
	existingUser, err := s.userService.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !existingUser.TwoFactorEnabled {
		return ErrUser2FANotEnabled
	}
	if !s.authenticator.VerifyCode(existingUser.TwoFactorSecret, code) {
		return ErrInvalid2FACode
	}
	return s.userService.DisableTwoFactor(ctx, userID)
}
