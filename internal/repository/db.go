package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/challan-processor/internal/common"
)

// Config selects the sqlite database. Driver "memory" keeps everything in one private
// in-memory connection.
type Config struct {
	Driver      string
	DSN         string
	BusyTimeout time.Duration
}

// ConfigFrom maps application config onto repository config.
func ConfigFrom(c common.StoreConfig) Config {
	return Config{Driver: c.Driver, DSN: c.DSN, BusyTimeout: 5 * time.Second}
}

// Open opens the database, applies connection pragmas and runs the schema migration.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*sql.DB, error) {
	logger = common.LoggerOrDefault(logger)

	dsn := cfg.DSN
	if cfg.Driver == "memory" || dsn == "" {
		dsn = ":memory:"
	}
	logger.Info("opening record store", zap.String("driver", cfg.Driver), zap.String("dsn", dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if dsn == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=" + strconv.FormatInt(busy.Milliseconds(), 10),
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("record store ready")
	return db, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	total_files INTEGER NOT NULL DEFAULT 0,
	successful  INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	flagged     INTEGER NOT NULL DEFAULT 0,
	errors      TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS records (
	id              TEXT PRIMARY KEY,
	batch_id        TEXT REFERENCES batches(id),
	source_file     TEXT NOT NULL,
	tan             TEXT,
	total_amount    REAL,
	record_hash     TEXT NOT NULL,
	validation_flag TEXT NOT NULL,
	review_status   TEXT NOT NULL,
	data            TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS seen_hashes (
	scope      TEXT NOT NULL,
	hash       TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (scope, hash)
);

CREATE INDEX IF NOT EXISTS idx_records_batch_id ON records(batch_id);
CREATE INDEX IF NOT EXISTS idx_records_hash ON records(record_hash);
CREATE INDEX IF NOT EXISTS idx_records_flag ON records(validation_flag);
`

// Migrate creates the tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database connections gracefully.
func Close(db *sql.DB, logger *zap.Logger) {
	logger = common.LoggerOrDefault(logger)
	if db == nil {
		return
	}
	logger.Info("closing record store")
	if err := db.Close(); err != nil {
		logger.Error("failed to close record store", zap.Error(err))
	}
}

// HealthCheck pings the database, bounded by timeout when positive.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return eris.Wrap(db.PingContext(ctx), "sqlite: ping")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return common.NewAppError("NOT_FOUND", entity+" not found: "+id, common.ErrNotFound)
	}
	return nil
}
