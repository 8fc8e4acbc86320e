package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"log/slog"

	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fablesmith/questforge/questforge/database/models"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
	schemaVersion        = 1 // bump when schema/migrations change
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Probe reachability before handing the address to the pool
	var conn net.Conn
	var err error

	tryDial := func() (net.Conn, error) {
		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
		force4 := os.Getenv("DB_DIAL_FORCE_IPV4") == "1"
		force6 := os.Getenv("DB_DIAL_FORCE_IPV6") == "1"

		if force4 {
			return net.DialTimeout("tcp4", addr, defaultConnTimeout)
		}
		if force6 {
			return net.DialTimeout("tcp6", addr, defaultConnTimeout)
		}

		// Prefer IPv4, then fall back to IPv6
		if c, e := net.DialTimeout("tcp4", addr, defaultConnTimeout); e == nil {
			return c, nil
		}
		return net.DialTimeout("tcp6", addr, defaultConnTimeout)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = tryDial()
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	return createDB(ctx, poolConfig)
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func createDB(ctx context.Context, poolConfig *pgxpool.Config) (*DB, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	bunDB := newBunDB(pool)
	return &DB{pool: pool, bunDB: bunDB}, nil
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	// Default to disabling SSL for Bun unless explicitly overridden by env
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "exec"),
			slog.String("query", sql),
			slog.Any("args", args),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return result, err
	}

	slog.Info("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "exec"),
		slog.String("query", sql),
		slog.Any("args", args),
		slog.Duration("took", duration),
		slog.Int64("affected_rows", result.RowsAffected()),
	)
	return result, nil
}

func (db *DB) QueryWithLog(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	duration := time.Since(start)

	if err != nil {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", "query"),
			slog.String("query", sql),
			slog.Any("args", args),
			slog.Duration("took", duration),
			slog.Any("error", err),
		)
		return rows, err
	}

	slog.Info("Query executed",
		slog.String("type", "db"),
		slog.String("operation", "query"),
		slog.String("query", sql),
		slog.Any("args", args),
		slog.Duration("took", duration),
	)
	return rows, nil
}

func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.bunDB != nil {
		db.bunDB.Close()
	}
}

// InitializeSchema creates all required database tables and indexes
func (db *DB) InitializeSchema(ctx context.Context) error {
	// Fast init path for development: skip when schema version matches
	fastInit := os.Getenv("DB_FAST_INIT") == "1"
	if fastInit {
		if err := db.ensureAppMeta(ctx); err == nil {
			if v, _ := db.getAppMeta(ctx, "schema_version"); v == fmt.Sprintf("%d", schemaVersion) {
				slog.Info("Fast DB init: schema up-to-date, skipping initialization",
					slog.String("mode", "DB_FAST_INIT"),
					slog.Int("schema_version", schemaVersion))
				return nil
			}
		}
	}

	if err := db.ensureUTF8Encoding(ctx); err != nil {
		return fmt.Errorf("failed to ensure UTF-8 encoding: %w", err)
	}

	tables := []interface{}{
		(*models.Hero)(nil),
		(*models.QuestDefinition)(nil),
		(*models.QuestProgress)(nil),
		(*models.LegacyQuestRecord)(nil),
	}

	for _, model := range tables {
		query := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists()

		_, err := query.Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// Apply schema migrations for existing tables FIRST
	if err := db.MigrateSchema(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	// Create indexes AFTER schema migrations
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_quest_definitions_source ON quest_definitions(source);",
		"CREATE INDEX IF NOT EXISTS idx_quest_progresses_user_id ON quest_progresses(user_id);",
		"CREATE INDEX IF NOT EXISTS idx_quest_progresses_user_status ON quest_progresses(user_id, status);",
		"CREATE INDEX IF NOT EXISTS idx_quest_progresses_completed ON quest_progresses(user_id, quest_id) WHERE status = 'completed';",
		"CREATE INDEX IF NOT EXISTS idx_legacy_quest_records_user_id ON legacy_quest_records(user_id);",
		// Migration upserts resolve conflicts on this pair
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_legacy_quest_records_user_quest ON legacy_quest_records(user_id, quest_id);",
	}

	for _, idx := range indexes {
		if _, err := db.ExecWithLog(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// Seed the starter quest documents
	if err := db.InitializeQuestData(ctx); err != nil {
		return fmt.Errorf("failed to initialize quest data: %w", err)
	}

	// Update schema version marker (safe upsert)
	if err := db.ensureAppMeta(ctx); err == nil {
		_ = db.setAppMeta(ctx, "schema_version", fmt.Sprintf("%d", schemaVersion))
	}

	return nil
}

// ensureAppMeta creates the app_meta table if not exists
func (db *DB) ensureAppMeta(ctx context.Context) error {
	_, err := db.ExecWithLog(ctx, `CREATE TABLE IF NOT EXISTS app_meta (key TEXT PRIMARY KEY, value TEXT)`)
	return err
}

func (db *DB) getAppMeta(ctx context.Context, key string) (string, error) {
	row := db.pool.QueryRow(ctx, `SELECT value FROM app_meta WHERE key = $1`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}

func (db *DB) setAppMeta(ctx context.Context, key, value string) error {
	sql := `INSERT INTO app_meta(key, value) VALUES($1, $2)
            ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	_, err := db.pool.Exec(ctx, sql, key, value)
	return err
}

// MigrateSchema applies necessary schema changes to existing tables
func (db *DB) MigrateSchema(ctx context.Context) error {
	// Columns added after the first release; fresh installs get them from
	// CreateTable, upgraded installs from here.
	alterSQL := []string{
		`ALTER TABLE quest_definitions ADD COLUMN IF NOT EXISTS source TEXT;`,
		`ALTER TABLE quest_progresses ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0;`,
		`ALTER TABLE quest_progresses ADD COLUMN IF NOT EXISTS resolved_events JSONB;`,
		`ALTER TABLE heroes ADD COLUMN IF NOT EXISTS chain_steps JSONB;`,
		`ALTER TABLE heroes ADD COLUMN IF NOT EXISTS metrics JSONB;`,
	}

	for _, sql := range alterSQL {
		if _, err := db.ExecWithLog(ctx, sql); err != nil {
			return fmt.Errorf("failed to apply schema migration: %w", err)
		}
	}

	return nil
}

// ensureUTF8Encoding checks and ensures the database is using UTF-8 encoding
func (db *DB) ensureUTF8Encoding(ctx context.Context) error {
	var encoding string
	err := db.pool.QueryRow(ctx, "SHOW server_encoding;").Scan(&encoding)
	if err != nil {
		return fmt.Errorf("failed to check database encoding: %w", err)
	}

	if encoding != "UTF8" {
		slog.Warn("Database encoding is not UTF-8",
			slog.String("encoding", encoding),
			slog.String("wanted", "UTF8"))
	}

	_, err = db.pool.Exec(ctx, "SET client_encoding TO 'UTF8';")
	if err != nil {
		return fmt.Errorf("failed to set client encoding: %w", err)
	}

	return nil
}
