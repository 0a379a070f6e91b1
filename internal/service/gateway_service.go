package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/suar-net/arango-go/arango"
	"github.com/suar-net/arango-go/internal/config"
	"github.com/suar-net/arango-go/internal/model"
	"github.com/suar-net/arango-go/internal/repository"
	"github.com/suar-net/arango-go/protocol"
)

const (
	defaultRequestTimeout = 30 * time.Second
	maxRequestTimeout     = config.MaxRelayTimeout

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// maxStoredBodySize caps the bodies copied into the history table.
	maxStoredBodySize = 64 << 10
)

// Credentials come from the connection, never from the operator.
var blockedHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Proxy-Authorization": true,
	"Host":                true,
}

type gatewayService struct {
	registry     *arango.Registry
	defaultAlias string
	history      repository.IRequestRepository
	logger       zerolog.Logger
}

// NewGatewayService relays operator requests through the connections in
// registry. history may be nil, which disables recording.
func NewGatewayService(registry *arango.Registry, defaultAlias string, history repository.IRequestRepository, logger zerolog.Logger) IGatewayService {
	return &gatewayService{
		registry:     registry,
		defaultAlias: defaultAlias,
		history:      history,
		logger:       logger,
	}
}

func newOutboundRequest(dto *model.DTORequest) (*protocol.Request, time.Duration, error) {
	request := protocol.NewRequest(protocol.HTTPMethod(strings.ToUpper(dto.Method)), dto.Path)

	for key, values := range dto.Query {
		request.Query[key] = append([]string(nil), values...)
	}
	for key, values := range dto.Headers {
		canonical := http.CanonicalHeaderKey(key)
		if !blockedHeaders[canonical] {
			request.Headers[canonical] = append([]string(nil), values...)
		}
	}
	if len(dto.Body) > 0 && string(dto.Body) != "null" {
		request.Body = string(dto.Body)
	}

	if err := request.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	timeout := defaultRequestTimeout
	if dto.Timeout > 0 {
		timeout = time.Duration(dto.Timeout) * time.Millisecond
	}
	if timeout > maxRequestTimeout {
		return nil, 0, fmt.Errorf("%w: timeout of %v exceeds the maximum allowed limit of %v", ErrInvalidInput, timeout, maxRequestTimeout)
	}

	return request, timeout, nil
}

func (s *gatewayService) ProcessRequest(ctx context.Context, username string, dto *model.DTORequest) (*model.DTOResponse, error) {
	alias := dto.Alias
	if alias == "" {
		alias = s.defaultAlias
	}
	conn, err := s.registry.Get(alias)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}

	request, timeout, err := newOutboundRequest(dto)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := conn.Send(reqCtx, request)
	duration := time.Since(startTime)

	outcome := protocol.Classify(resp, err)
	observeRelay(alias, request.Method, outcome, duration)
	s.record(ctx, username, alias, request, resp, outcome, startTime, duration)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	return toDTOResponse(resp, outcome, duration, startTime), nil
}

func toDTOResponse(resp *protocol.Response, outcome protocol.Outcome, duration time.Duration, timestamp time.Time) *model.DTOResponse {
	dtoResponse := &model.DTOResponse{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Headers(),
		Body:       resp.Body(),
		BodyType:   resp.BodyType().String(),
		Outcome:    outcome.String(),
		Duration:   duration,
		Timestamp:  timestamp,
	}
	if arangoErr := resp.Err(); arangoErr != nil {
		dtoResponse.Error = &model.DTOError{
			StatusCode: arangoErr.StatusCode,
			ErrorNum:   arangoErr.Number,
			Message:    arangoErr.Message,
		}
	}
	return dtoResponse
}

// record stores the relayed call. Failures are logged and never reach the
// operator.
func (s *gatewayService) record(ctx context.Context, username, alias string, request *protocol.Request, resp *protocol.Response, outcome protocol.Outcome, startTime time.Time, duration time.Duration) {
	if s.history == nil {
		return
	}

	headers, err := json.Marshal(request.Headers)
	if err != nil {
		headers = []byte("{}")
	}

	entry := &model.HistoryEntry{
		ID:             uuid.New(),
		Username:       username,
		Alias:          alias,
		ExecutedAt:     startTime.UTC(),
		RequestMethod:  string(request.Method),
		RequestPath:    request.RelativeURI(),
		RequestHeaders: headers,
		RequestBody:    truncated(request.Body),
		Outcome:        outcome.String(),
		DurationMs:     duration.Milliseconds(),
	}
	if resp != nil {
		status := resp.StatusCode()
		entry.StatusCode = &status
		entry.ResponseBody = truncated(resp.Body())
		if arangoErr := resp.Err(); arangoErr != nil {
			num := arangoErr.Number
			entry.ErrorNum = &num
		}
	}

	if err := s.history.Create(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn().Err(err).Str("alias", alias).Msg("failed to record request history")
	}
}

func truncated(body string) *string {
	if body == "" {
		return nil
	}
	if len(body) > maxStoredBodySize {
		cut := maxStoredBodySize
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &body
}

func (s *gatewayService) History(ctx context.Context, username string, limit int) ([]*model.HistoryEntry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.history.GetByUsername(ctx, username, limit)
}

func (s *gatewayService) Aliases() []string {
	return s.registry.Aliases()
}

