package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/suar-net/arango-go/internal/model"
)

// requestRepository is the implementation of IRequestRepository.
type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) IRequestRepository {
	return &requestRepository{db: db}
}

// Create inserts one relayed request.
func (r *requestRepository) Create(ctx context.Context, entry *model.HistoryEntry) error {
	query := `
		INSERT INTO request_history (id, username, alias, executed_at, request_method, request_path, request_headers, request_body, outcome, status_code, error_num, response_body, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	headers := entry.RequestHeaders
	if len(headers) == 0 {
		headers = []byte("{}")
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Username,
		entry.Alias,
		entry.ExecutedAt,
		entry.RequestMethod,
		entry.RequestPath,
		[]byte(headers),
		entry.RequestBody,
		entry.Outcome,
		entry.StatusCode,
		entry.ErrorNum,
		entry.ResponseBody,
		entry.DurationMs,
	)
	return errors.Wrap(err, "inserting request history")
}

// GetByUsername returns the newest entries of one operator first.
func (r *requestRepository) GetByUsername(ctx context.Context, username string, limit int) ([]*model.HistoryEntry, error) {
	query := `
		SELECT id, username, alias, executed_at, request_method, request_path, request_headers, request_body, outcome, status_code, error_num, response_body, duration_ms
		FROM request_history
		WHERE username = $1
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying request history")
	}
	defer rows.Close()

	entries := make([]*model.HistoryEntry, 0)
	for rows.Next() {
		var (
			entry   model.HistoryEntry
			headers []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Username,
			&entry.Alias,
			&entry.ExecutedAt,
			&entry.RequestMethod,
			&entry.RequestPath,
			&headers,
			&entry.RequestBody,
			&entry.Outcome,
			&entry.StatusCode,
			&entry.ErrorNum,
			&entry.ResponseBody,
			&entry.DurationMs,
		); err != nil {
			return nil, errors.Wrap(err, "scanning request history")
		}
		entry.RequestHeaders = headers
		entries = append(entries, &entry)
	}

	return entries, errors.Wrap(rows.Err(), "iterating request history")
}
