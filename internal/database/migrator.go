package database

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/sena-seguimiento/assignment-service/internal/config"
)

type Migrator struct {
	cfg config.DatabaseConfig
}

func NewMigrator(cfg config.DatabaseConfig) *Migrator {
	return &Migrator{cfg: cfg}
}

func (m *Migrator) Up() error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer mig.Close()

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down() error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer mig.Close()

	if err := mig.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(m.cfg.User),
		url.QueryEscape(m.cfg.Password),
		m.cfg.Host, m.cfg.Port, m.cfg.Name, m.cfg.SSLMode,
	)

	mig, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return mig, nil
}
