package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"vulntrack/internal/shared/logger"
)

//go:embed scripts/*.sql
var scripts embed.FS

const scriptsDir = "scripts"

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Manager applies the embedded goose migrations.
type Manager struct {
	dialect string
	logger  logger.Interface
}

// NewManager returns a manager for a "mysql" or "sqlite" database.
func NewManager(driver string, log logger.Interface) (*Manager, error) {
	var dialect string
	switch strings.ToLower(driver) {
	case "mysql", "":
		dialect = "mysql"
	case "sqlite":
		dialect = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported migration driver: %s", driver)
	}
	return &Manager{dialect: dialect, logger: log}, nil
}

func (m *Manager) withGoose(db *gorm.DB, fn func(sqlDB *sql.DB) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(scripts)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(m.dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return fn(sqlDB)
}

// Up applies every pending migration.
func (m *Manager) Up(db *gorm.DB) error {
	return m.withGoose(db, func(sqlDB *sql.DB) error {
		from, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		if err := goose.Up(sqlDB, scriptsDir); err != nil {
			m.logger.Errorw("migration failed", "from_version", from, "error", err)
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		to, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get final version: %w", err)
		}
		m.logger.Infow("migrations applied", "from_version", from, "to_version", to)
		return nil
	})
}

// Down rolls back steps migrations.
func (m *Manager) Down(db *gorm.DB, steps int) error {
	return m.withGoose(db, func(sqlDB *sql.DB) error {
		for i := 0; i < steps; i++ {
			if err := goose.Down(sqlDB, scriptsDir); err != nil {
				m.logger.Errorw("down migration failed", "step", i+1, "error", err)
				return fmt.Errorf("failed to run down migration: %w", err)
			}
		}
		m.logger.Infow("migrations rolled back", "steps", steps)
		return nil
	})
}

// Version returns the applied schema version.
func (m *Manager) Version(db *gorm.DB) (int64, error) {
	var version int64
	err := m.withGoose(db, func(sqlDB *sql.DB) error {
		v, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
