package persistence

import (
	"context"
	"fmt"
	"io/fs"
	"time"

	"github.com/paymentmanager/backend/internal/infrastructure/config"
	"github.com/paymentmanager/backend/internal/infrastructure/migration"
	"github.com/paymentmanager/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported values of database.driver
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Database is the payment store connection
type Database struct {
	DB     *gorm.DB
	Driver string
}

// NewDatabase opens the configured database with SQL logging off
func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	return NewDatabaseWithLogger(cfg, logger.Discard)
}

// NewDatabaseWithLogger opens the configured database, sizes its pool and
// checks that it answers. SQL is reported through gormLogger.
func NewDatabaseWithLogger(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	case DriverSQLite:
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            driver == DriverPostgres,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if driver == DriverSQLite {
		// ":memory:" databases exist per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db, Driver: driver}, nil
}

// PrepareSchema brings the payments table up to date. Postgres applies the
// versioned SQL migrations in fsys; SQLite creates the table from the model.
func (d *Database) PrepareSchema(fsys fs.FS, log *zap.Logger) error {
	if d.Driver == DriverSQLite {
		return d.DB.AutoMigrate(&models.PaymentModel{})
	}

	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, fsys, "", log)
	if err != nil {
		return err
	}
	// Close would also close sqlDB.
	return m.Up()
}

// PingContext reports whether the database answers within ctx
func (d *Database) PingContext(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
