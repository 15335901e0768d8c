package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const (
	defaultTable       = "schema_migrations"
	defaultLockTimeout = 30 * time.Second
)

// Config - источник миграций и служебная таблица.
type Config struct {
	MigrationsFS   fs.FS
	MigrationsPath string
	// Table - таблица версий, по умолчанию schema_migrations.
	Table string
}

// Migrator применяет встроенные SQL-миграции к пулу pgx.
type Migrator struct {
	config Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewMigrator(config Config, pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	if config.Table == "" {
		config.Table = defaultTable
	}
	return &Migrator{
		config: config,
		pool:   pool,
		logger: logger.Named("Migrator"),
	}
}

// Up применяет недостающие миграции. Отмена ctx останавливает процесс после текущей миграции.
func (m *Migrator) Up(ctx context.Context) error {
	return m.with(func(mg *migrate.Migrate) error {
		stop := context.AfterFunc(ctx, func() { mg.GracefulStop <- true })
		defer stop()

		start := time.Now()
		if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		version, dirty, err := mg.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		m.logger.Info("Database schema is up to date",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Duration("duration", time.Since(start)),
		)
		return nil
	})
}

// Version возвращает текущую версию схемы; для пустой базы - 0.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	err = m.with(func(mg *migrate.Migrate) error {
		var verr error
		version, dirty, verr = mg.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func (m *Migrator) with(fn func(*migrate.Migrate) error) error {
	driver, err := postgres.WithInstance(stdlib.OpenDBFromPool(m.pool), &postgres.Config{
		MigrationsTable: m.config.Table,
	})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}
	source, err := iofs.New(m.config.MigrationsFS, m.config.MigrationsPath)
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}
	mg, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	mg.LockTimeout = defaultLockTimeout
	mg.Log = zapMigrateLogger{logger: m.logger}
	defer func() {
		if srcErr, dbErr := mg.Close(); srcErr != nil || dbErr != nil {
			m.logger.Warn("Failed to close migrator", zap.NamedError("sourceError", srcErr), zap.NamedError("dbError", dbErr))
		}
	}()
	return fn(mg)
}

// zapMigrateLogger пробрасывает сообщения golang-migrate в zap.
type zapMigrateLogger struct {
	logger *zap.Logger
}

func (l zapMigrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l zapMigrateLogger) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
