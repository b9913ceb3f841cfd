// Package migrate applies the embedded ClickHouse schema for snapshot
// history.
package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // ClickHouse driver.
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var migrations embed.FS

// Status is the schema state of a database.
type Status struct {
	Version uint
	Dirty   bool
	// Latest is the newest embedded version.
	Latest uint
}

// Pending reports whether embedded migrations have not been applied.
func (s Status) Pending() bool {
	return s.Version < s.Latest
}

// Migrator runs migrations against one database.
type Migrator struct {
	log logrus.FieldLogger
	dsn string
}

// New creates a migrator for a clickhouse:// DSN.
func New(log logrus.FieldLogger, dsn string) *Migrator {
	return &Migrator{
		log: log.WithField("component", "migrate"),
		dsn: dsn,
	}
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "applying migrations", func(mig *migrate.Migrate) error {
		return mig.Up()
	})
}

// Down rolls back the newest applied migration.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "rolling back migration", func(mig *migrate.Migrate) error {
		return mig.Steps(-1)
	})
}

// Status reports the applied version.
func (m *Migrator) Status(_ context.Context) (Status, error) {
	latest, err := LatestVersion()
	if err != nil {
		return Status{}, err
	}

	mig, err := m.open()
	if err != nil {
		return Status{}, err
	}
	defer mig.Close()

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("reading migration version: %w", err)
	}

	return Status{Version: version, Dirty: dirty, Latest: latest}, nil
}

func (m *Migrator) run(
	ctx context.Context,
	what string,
	step func(*migrate.Migrate) error,
) error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer mig.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			mig.GracefulStop <- true
		case <-done:
		}
	}()

	m.log.WithField("step", what).Info("Running migrations")

	if err := step(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", what, err)
	}

	version, dirty, _ := mig.Version()

	m.log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("Schema is up to date")

	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "sql")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	mig, err := migrate.NewWithSourceInstance("iofs", src, withMultiStatement(m.dsn))
	if err != nil {
		return nil, fmt.Errorf("connecting for migrations: %w", err)
	}

	return mig, nil
}

// withMultiStatement enables multi-statement files on the ClickHouse driver.
func withMultiStatement(dsn string) string {
	if strings.Contains(dsn, "x-multi-statement=") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + "x-multi-statement=true"
}

// Files lists the embedded migration files in version order.
func Files() ([]string, error) {
	names, err := fs.Glob(migrations, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("listing migrations: %w", err)
	}

	sort.Strings(names)

	return names, nil
}

// LatestVersion returns the newest embedded migration version.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrations, "sql")
	if err != nil {
		return 0, fmt.Errorf("loading embedded migrations: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("reading first migration: %w", err)
	}

	for {
		next, err := src.Next(v)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return v, nil
			}

			return 0, fmt.Errorf("reading migration after %d: %w", v, err)
		}

		v = next
	}
}
