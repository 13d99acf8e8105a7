package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Migrator applies the SQL files under source to the database at url
type Migrator struct {
	m      *migrate.Migrate
	logger *logger.Logger
}

// NewMigrator opens a migration session
func NewMigrator(source, url string, log *logger.Logger) (*Migrator, error) {
	m, err := migrate.New(source, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return &Migrator{m: m, logger: log.Named("migrate")}, nil
}

// Up applies every pending migration. Having nothing to apply is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mg.logger.Info("Schema is up to date")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	version, _, _ := mg.m.Version()
	mg.logger.Info("Migrations applied", zap.Uint("version", version))
	return nil
}

// Down rolls back steps migrations
func (mg *Migrator) Down(steps int) error {
	if err := mg.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// Force sets the recorded version without running anything
func (mg *Migrator) Force(version int) error {
	return mg.m.Force(version)
}

// Version reports the applied version; ok is false before the first migration
func (mg *Migrator) Version() (version uint, dirty bool, ok bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, err
	}
	return version, dirty, true, nil
}

// Close releases the source and database handles
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}

// Migrate applies every pending migration in one call
func Migrate(source, url string, log *logger.Logger) error {
	mg, err := NewMigrator(source, url, log)
	if err != nil {
		return err
	}
	defer mg.Close()

	return mg.Up()
}
