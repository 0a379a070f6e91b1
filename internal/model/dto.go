package model

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DTORequest is a relay call as posted by the operator. Alias selects the
// registered connection; an empty alias means the gateway default.
type DTORequest struct {
	Alias   string              `json:"alias"`
	Method  string              `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS get post put patch delete head options"`
	Path    string              `json:"path" validate:"required"`
	Query   map[string][]string `json:"query"`
	Headers map[string][]string `json:"headers"`
	Body    json.RawMessage     `json:"body,omitempty"`
	Timeout int                 `json:"timeout" validate:"gte=0,lte=90000"` // milliseconds, 0 means default
}

// DTOError carries a structured ArangoDB error back to the operator.
type DTOError struct {
	StatusCode int    `json:"status_code"`
	ErrorNum   int    `json:"error_num"`
	Message    string `json:"message"`
}

// DTOResponse is the relayed ArangoDB answer.
type DTOResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
	BodyType   string              `json:"body_type"`
	Outcome    string              `json:"outcome"`
	Error      *DTOError           `json:"error,omitempty"`
	Duration   time.Duration       `json:"duration"`
	Timestamp  time.Time           `json:"timestamp"`
}

type DTOLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type DTOLoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
