package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

//go:embed migrations
var migrations embed.FS

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version TEXT PRIMARY KEY
)`

// Migrate applies every embedded migration for the active driver that has
// not been recorded in schema_migrations yet. Files run in name order, each
// inside its own transaction.
func (s *DBService) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("could not create schema_migrations: %v", err)
	}

	dir := path.Join("migrations", s.Driver)
	entries, err := fs.ReadDir(migrations, dir)
	if err != nil {
		return fmt.Errorf("no migrations for driver %s: %v", s.Driver, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(name, ".sql")
		applied, err := s.migrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		body, err := migrations.ReadFile(path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("could not read migration %s: %v", name, err)
		}
		if err := s.applyMigration(ctx, version, string(body)); err != nil {
			return err
		}
		log.WithField("version", version).Info("Applied database migration")
	}
	return nil
}

func (s *DBService) migrationApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("could not check migration %s: %v", version, err)
	}
	return count > 0, nil
}

func (s *DBService) applyMigration(ctx context.Context, version, body string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not start migration %s: %v", version, err)
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(body, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s failed: %v", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
		return fmt.Errorf("could not record migration %s: %v", version, err)
	}
	return tx.Commit()
}
