// Package db owns the gorm connection and schema migration. A postgres URL
// selects the postgres driver; anything else is treated as a sqlite path,
// which keeps dev and tests dependency-free.
package db

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oumar-d/invoicedesk/internal/models"
)

var pgKVRegex = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)

// NormalizeDSN trims quotes/whitespace and, for key=value postgres form,
// supplies sslmode=disable when missing. Anything that is neither a postgres
// URL nor a key=value list passes through untouched (sqlite paths, file: URIs).
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" || isPostgresURL(s) {
		return s
	}
	if pgKVRegex.MatchString(s) && !strings.Contains(strings.ToLower(s), "sslmode=") {
		s += " sslmode=disable"
	}
	return s
}

func isPostgresURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

func isPostgresDSN(s string) bool {
	return isPostgresURL(s) || pgKVRegex.MatchString(s)
}

// Connect opens the database, retrying briefly so a cold-starting postgres
// container does not kill the process.
func Connect(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	if isPostgresDSN(dsn) {
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			time.Sleep(2 * time.Second)
		}
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping: %w", pingErr)
	}
	return db, nil
}

// ConnectAndMigrate connects and brings the schema up to date. With
// MIGRATIONS=1 and a postgres DSN the SQL migrations under migrations/ run
// via golang-migrate; otherwise AutoMigrate keeps dev setups zero-config.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	db, err := Connect(rawDSN)
	if err != nil {
		return nil, err
	}
	dsn := NormalizeDSN(rawDSN)
	if v := strings.ToLower(os.Getenv("MIGRATIONS")); (v == "1" || v == "true" || v == "yes") && isPostgresDSN(dsn) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations: %w", err)
		}
		return db, nil
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return db, nil
}

// AutoMigrate creates/updates the tables for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Invoice{}, &models.InvoiceItem{})
}

func runSQLMigrations(dsn string) error {
	path := os.Getenv("MIGRATIONS_PATH")
	if path == "" {
		path = "migrations"
	}
	m, err := migrate.New("file://"+path, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
