package db

import (
	"embed"
	"errors"
	"fmt"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var fs embed.FS

func databaseURL(host string, port int, user, password, dbname string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     dbname,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func newMigrate(host string, port int, user, password, dbname string) (*migrate.Migrate, error) {
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL(host, port, user, password, dbname))
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}
	return m, nil
}

// Migrate runs all pending migrations embedded in the binary
func Migrate(host string, port int, user, password, dbname string) error {
	log.Info("Running migrations")
	m, err := newMigrate(host, port, user, password, dbname)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Rollback reverts the most recent migration
func Rollback(host string, port int, user, password, dbname string) error {
	log.Info("Rolling back last migration")
	m, err := newMigrate(host, port, user, password, dbname)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
