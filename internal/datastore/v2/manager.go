// Package v2 opens the GearGuard datastore and manages its schema.
package v2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// Manager owns the database connection.
type Manager interface {
	DB() *gorm.DB
	// Initialize creates or migrates the schema.
	Initialize() error
	Ping(ctx context.Context) error
	Close() error
	Dialect() string
}

// Config holds connection options shared by both dialects.
type Config struct {
	// DataDir is where the SQLite file lives when Path is relative or empty.
	DataDir         string
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Debug           bool
	Logger          logger.Logger
}

type gormManager struct {
	db      *gorm.DB
	dialect string
	log     logger.Logger
}

// NewSQLiteManager opens (and creates) the SQLite database file with foreign keys enforced.
func NewSQLiteManager(cfg Config) (Manager, error) {
	path := cfg.Path
	if path == "" {
		path = "gearguard.db"
	}
	if !filepath.IsAbs(path) && cfg.DataDir != "" {
		path = filepath.Join(cfg.DataDir, path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY under concurrent ingestion.
	sqlDB.SetMaxOpenConns(1)

	return &gormManager{db: db, dialect: "sqlite", log: managerLogger(cfg)}, nil
}

// NewMySQLManager connects to MySQL using cfg.DSN.
func NewMySQLManager(cfg Config) (Manager, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("mysql dsn is required")
	}
	dsn := cfg.DSN
	if !strings.Contains(dsn, "parseTime=") {
		dsn += dsnSeparator(dsn) + "parseTime=true"
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &gormManager{db: db, dialect: "mysql", log: managerLogger(cfg)}, nil
}

// Open selects the dialect from settings.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	cfg := Config{
		Path:            settings.Path,
		DSN:             settings.DSN,
		MaxOpenConns:    settings.MaxOpenConns,
		MaxIdleConns:    settings.MaxIdleConns,
		ConnMaxLifetime: settings.ConnMaxLifetime.Std(),
		Debug:           settings.Debug,
		Logger:          log,
	}
	switch settings.Type {
	case "mysql":
		return NewMySQLManager(cfg)
	case "sqlite", "":
		return NewSQLiteManager(cfg)
	default:
		return nil, fmt.Errorf("unsupported database type %q", settings.Type)
	}
}

func (m *gormManager) DB() *gorm.DB { return m.db }

func (m *gormManager) Dialect() string { return m.dialect }

func (m *gormManager) Initialize() error {
	if err := m.db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.log.Info("database schema ready", logger.String("dialect", m.dialect))
	return nil
}

func (m *gormManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (m *gormManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig(cfg Config) *gorm.Config {
	level := gorm_logger.Silent
	if cfg.Debug {
		level = gorm_logger.Info
	}
	return &gorm.Config{
		Logger:  gorm_logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func managerLogger(cfg Config) logger.Logger {
	if cfg.Logger != nil {
		return cfg.Logger.Module("datastore")
	}
	return logger.Global().Module("datastore")
}

func dsnSeparator(dsn string) string {
	if strings.Contains(dsn, "?") {
		return "&"
	}
	return "?"
}
