package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBService owns the shared connection pool.
type DBService struct {
	DB     *sql.DB
	Driver string
}

// NewDBService opens the configured database and checks that it answers.
func NewDBService(cfg config.DatabaseConfig) (*DBService, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case DriverSQLite:
		db, err = sql.Open("sqlite3", sqliteDSN(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("could not open db connection: %v", err)
		}
		// sqlite allows a single writer, and an in-memory database lives
		// only as long as its connection
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	case DriverPostgres:
		db, err = sql.Open("pgx", cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("could not open db connection: %v", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to the database: %v", err)
	}

	log.WithField("driver", cfg.Driver).Info("Connected to database")
	return &DBService{DB: db, Driver: cfg.Driver}, nil
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

// Health pings the database and reports its state.
func (s *DBService) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.DB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["driver"] = s.Driver
	stats["open_connections"] = fmt.Sprintf("%d", s.DB.Stats().OpenConnections)
	return stats
}

func (s *DBService) Close() error {
	log.WithField("driver", s.Driver).Info("Closing database connection")
	return s.DB.Close()
}
