package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one relayed request as stored in request_history.
type HistoryEntry struct {
	ID             uuid.UUID       `json:"id"`
	Username       string          `json:"username"`
	Alias          string          `json:"alias"`
	ExecutedAt     time.Time       `json:"executed_at"`
	RequestMethod  string          `json:"request_method"`
	RequestPath    string          `json:"request_path"`
	RequestHeaders json.RawMessage `json:"request_headers"`
	RequestBody    *string         `json:"request_body"`
	Outcome        string          `json:"outcome"`
	StatusCode     *int            `json:"status_code"`
	ErrorNum       *int            `json:"error_num"`
	ResponseBody   *string         `json:"response_body"`
	DurationMs     int64           `json:"duration_ms"`
}
