package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/suar-net/arango-go/arango"
	"github.com/suar-net/arango-go/internal/model"
	"github.com/suar-net/arango-go/internal/service"
	"github.com/suar-net/arango-go/protocol"
)

const validToken = "good-token"

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, req *model.DTOLoginRequest) (*model.DTOLoginResponse, error) {
	if req.Username != "admin" || req.Password != "s3cret" {
		return nil, service.ErrInvalidCredentials
	}
	return &model.DTOLoginResponse{AccessToken: validToken, TokenType: "Bearer", ExpiresIn: 3600}, nil
}

func (fakeAuth) ValidateToken(ctx context.Context, token string) (*model.Claims, error) {
	switch token {
	case validToken:
		return &model.Claims{Username: "admin"}, nil
	case "expired":
		return nil, service.ErrTokenExpired
	default:
		return nil, service.ErrTokenInvalid
	}
}

type fakeGateway struct {
	lastUser string
	lastDTO  *model.DTORequest
	resp     *model.DTOResponse
	err      error
	history  []*model.HistoryEntry
	histErr  error
	limit    int
}

func (f *fakeGateway) ProcessRequest(ctx context.Context, username string, dto *model.DTORequest) (*model.DTOResponse, error) {
	f.lastUser = username
	f.lastDTO = dto
	return f.resp, f.err
}

func (f *fakeGateway) History(ctx context.Context, username string, limit int) ([]*model.HistoryEntry, error) {
	f.lastUser = username
	f.limit = limit
	return f.history, f.histErr
}

func (f *fakeGateway) Aliases() []string { return []string{"main"} }

type RouterSuite struct {
	suite.Suite
	arangoDown atomic.Bool
	arango     *httptest.Server
	gateway    *fakeGateway
	logs       *bytes.Buffer
	router     http.Handler
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.arangoDown.Store(false)
	s.arango = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.arangoDown.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":true,"code":503,"errorNum":503,"errorMessage":"service unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"server":"arango","version":"3.11.4","license":"community"}`))
	}))

	u, err := url.Parse(s.arango.URL)
	s.Require().NoError(err)
	port, err := strconv.Atoi(u.Port())
	s.Require().NoError(err)
	conn, err := protocol.NewConnection(protocol.ConnectionOptions{Alias: "main", Hostname: u.Hostname(), Port: port})
	s.Require().NoError(err)

	s.gateway = &fakeGateway{}
	s.logs = &bytes.Buffer{}
	s.router = SetupRouter(Dependencies{
		Auth:    fakeAuth{},
		Gateway: s.gateway,
		Client:  arango.NewClient(conn),
		Logger:  zerolog.New(s.logs),
	})
}

func (s *RouterSuite) TearDownTest() {
	s.arango.Close()
}

func (s *RouterSuite) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RouterSuite) TestHealth() {
	w := s.do(http.MethodGet, "/health", "", "")
	s.Equal(http.StatusOK, w.Code)

	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal("ok", body["status"])
	s.Equal("3.11.4", body["version"])
	s.Equal("main", body["alias"])

	s.arangoDown.Store(true)
	w = s.do(http.MethodGet, "/health", "", "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *RouterSuite) TestLogin() {
	w := s.do(http.MethodPost, "/api/v1/login", "", `{"username":"admin","password":"s3cret"}`)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), validToken)

	w = s.do(http.MethodPost, "/api/v1/login", "", `{"username":"admin","password":"nope"}`)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/login", "", `{"username":"admin"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Password")

	w = s.do(http.MethodPost, "/api/v1/login", "", `{`)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterSuite) TestRelayRequiresToken() {
	body := `{"method":"GET","path":"_api/version"}`

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/request", "", body).Code)

	w := s.do(http.MethodPost, "/api/v1/request", "expired", body)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Contains(w.Body.String(), "expired")

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/request", "garbage", body).Code)
	s.Nil(s.gateway.lastDTO)
}

func (s *RouterSuite) TestRelay() {
	s.gateway.resp = &model.DTOResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error":true}`,
		BodyType:   "document",
		Outcome:    "protocol_error",
		Error:      &model.DTOError{StatusCode: 404, ErrorNum: 1203, Message: "ArangoDB error: collection or view not found"},
	}

	w := s.do(http.MethodPost, "/api/v1/request", validToken, `{"alias":"main","method":"GET","path":"_api/collection/x","query":{"a":["1"]}}`)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("admin", s.gateway.lastUser)
	s.Equal("_api/collection/x", s.gateway.lastDTO.Path)
	s.Equal([]string{"1"}, s.gateway.lastDTO.Query["a"])

	var got model.DTOResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &got))
	s.Equal(http.StatusNotFound, got.StatusCode)
	s.Require().NotNil(got.Error)
	s.Equal(1203, got.Error.ErrorNum)
}

func (s *RouterSuite) TestRelayErrorStatuses() {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"InvalidInput", service.ErrInvalidInput, http.StatusBadRequest},
		{"UnknownAlias", service.ErrUnknownAlias, http.StatusBadRequest},
		{"Timeout", service.ErrRequestTimeout, http.StatusGatewayTimeout},
		{"Transport", service.ErrTransport, http.StatusBadGateway},
		{"Other", context.Canceled, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.gateway.err = tt.err
			w := s.do(http.MethodPost, "/api/v1/request", validToken, `{"method":"GET","path":"_api/version"}`)
			s.Equal(tt.want, w.Code)
		})
	}
}

func (s *RouterSuite) TestRelayValidatesBody() {
	w := s.do(http.MethodPost, "/api/v1/request", validToken, `{"method":"TRACE","path":"_api/version"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Method")

	w = s.do(http.MethodPost, "/api/v1/request", validToken, `{"method":"GET"}`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "Path")

	w = s.do(http.MethodPost, "/api/v1/request", validToken, `not json`)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Nil(s.gateway.lastDTO)
}

func (s *RouterSuite) TestHistory() {
	s.gateway.history = []*model.HistoryEntry{{Username: "admin", RequestMethod: "GET"}}

	w := s.do(http.MethodGet, "/api/v1/history?limit=5", validToken, "")
	s.Equal(http.StatusOK, w.Code)
	s.Equal(5, s.gateway.limit)
	s.Contains(w.Body.String(), `"request_method":"GET"`)

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/history?limit=x", validToken, "").Code)

	s.gateway.histErr = service.ErrHistoryDisabled
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/history", validToken, "").Code)
}

func (s *RouterSuite) TestConnections() {
	w := s.do(http.MethodGet, "/api/v1/connections", validToken, "")
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"aliases":["main"]}`, w.Body.String())
}

func (s *RouterSuite) TestMetricsAndAccessLog() {
	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/health", "200"))
	s.do(http.MethodGet, "/health", "", "")
	s.Equal(before+1, testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/health", "200")))
	s.Zero(testutil.ToFloat64(httpInflight))

	w := s.do(http.MethodGet, "/metrics", "", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")

	s.Contains(s.logs.String(), `"path":"/health"`)
	s.Contains(s.logs.String(), `"request_id":`)
}

func (s *RouterSuite) TestUnmatchedRoutesShareOneLabel() {
	before := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/nope/1", "", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/nope/2", "", "").Code)

	s.Equal(before+2, testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")))
	s.Contains(s.logs.String(), `"path":"/nope/2"`)
}

func TestValidationErrorPassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "", ValidationError(nil))
	require.NotPanics(t, func() {
		assert.Equal(t, "boom", ValidationError(errors.New("boom")))
	})
}
