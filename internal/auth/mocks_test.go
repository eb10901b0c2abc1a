package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Flashmaxi/expense-tracker/internal/config"
	"github.com/Flashmaxi/expense-tracker/internal/currency"
	database "github.com/Flashmaxi/expense-tracker/internal/db"
	emailService "github.com/Flashmaxi/expense-tracker/internal/email"
	"github.com/Flashmaxi/expense-tracker/internal/user"
)

type MockCategorySeeder struct {
	seeded []int64
	err    error
}

func (m *MockCategorySeeder) CreateDefaultCategories(_ context.Context, userID int64) error {
	m.seeded = append(m.seeded, userID)
	return m.err
}

type queuedEmail struct {
	to   string
	data emailService.EmailData
}

type MockEmailSender struct {
	mu   sync.Mutex
	sent []queuedEmail
}

func (m *MockEmailSender) QueueEmail(to string, data emailService.EmailData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, queuedEmail{to: to, data: data})
	return nil
}

type staticRates struct{}

func (staticRates) Rate(_ context.Context, code string) (float64, bool) {
	return 1, code == "USD"
}

const testOwnerEmail = "owner@example.com"

type testEnv struct {
	service *service
	users   user.Service
	owner   *user.User
	seeder  *MockCategorySeeder
	emails  *MockEmailSender
	jwt     *JWTManager
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	db, err := database.NewDBService(config.DatabaseConfig{Driver: database.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	currencies := currency.NewService(staticRates{})
	users := user.NewUserService(user.NewUserRepository(db.DB), currencies)
	owner, _, err := users.EnsureOwner(context.Background(), config.OwnerConfig{
		Email:     testOwnerEmail,
		FirstName: "Default",
		LastName:  "User",
	})
	require.NoError(t, err)

	jwtManager, err := NewJWTManager("test-secret")
	require.NoError(t, err)

	opts.OwnerEmail = testOwnerEmail
	if opts.FrontendURL == "" {
		opts.FrontendURL = "http://localhost:5173"
	}
	seeder := &MockCategorySeeder{}
	emails := &MockEmailSender{}
	svc := NewAuthService(users, seeder, currencies, NewSessionManager(), jwtManager, emails, &Authenticator{}, opts).(*service)

	return &testEnv{
		service: svc,
		users:   users,
		owner:   owner,
		seeder:  seeder,
		emails:  emails,
		jwt:     jwtManager,
	}
}
