package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/suar-net/arango-go/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS request_history (
	id             UUID PRIMARY KEY,
	username       TEXT NOT NULL,
	alias          TEXT NOT NULL,
	executed_at    TIMESTAMPTZ NOT NULL,
	request_method TEXT NOT NULL,
	request_path   TEXT NOT NULL,
	request_headers JSONB NOT NULL DEFAULT '{}',
	request_body   TEXT,
	outcome        TEXT NOT NULL,
	status_code    INTEGER,
	error_num      INTEGER,
	response_body  TEXT,
	duration_ms    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS request_history_username_idx ON request_history (username, executed_at DESC);
`

func ConnectDB(cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to verify database connection")
	}

	return db, nil
}

// Migrate creates the history table when it does not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrating request_history")
}
