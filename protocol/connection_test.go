package protocol

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// capturedRequest is what the fake server saw for the last call.
type capturedRequest struct {
	method           string
	path             string
	rawQuery         string
	header           http.Header
	contentLength    int64
	transferEncoding []string
	body             []byte
}

type ConnectionTestSuite struct {
	suite.Suite
	server   *httptest.Server
	handler  http.HandlerFunc
	captured capturedRequest
}

func TestConnectionTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTestSuite))
}

func (s *ConnectionTestSuite) SetupTest() {
	s.captured = capturedRequest{}
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.captured = capturedRequest{
			method:           r.Method,
			path:             r.URL.Path,
			rawQuery:         r.URL.RawQuery,
			header:           r.Header.Clone(),
			contentLength:    r.ContentLength,
			transferEncoding: r.TransferEncoding,
			body:             body,
		}
		s.handler(w, r)
	}))
}

func (s *ConnectionTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ConnectionTestSuite) options() ConnectionOptions {
	u, err := url.Parse(s.server.URL)
	s.Require().NoError(err)
	port, err := strconv.Atoi(u.Port())
	s.Require().NoError(err)
	return ConnectionOptions{
		Alias:    "test",
		Hostname: u.Hostname(),
		Port:     port,
	}
}

func (s *ConnectionTestSuite) connection(mutate func(*ConnectionOptions)) *Connection {
	opts := s.options()
	if mutate != nil {
		mutate(&opts)
	}
	conn, err := NewConnection(opts)
	s.Require().NoError(err)
	return conn
}

func (s *ConnectionTestSuite) TestEmptyBodyHasZeroContentLengthAndNoContentType() {
	for _, method := range []HTTPMethod{MethodGet, MethodPost, MethodPut, MethodDelete} {
		conn := s.connection(nil)
		_, err := conn.Send(context.Background(), NewRequest(method, "_api/version"))
		s.Require().NoError(err)

		s.Equal(string(method), s.captured.method)
		s.EqualValues(0, s.captured.contentLength)
		s.Empty(s.captured.header.Get("Content-Type"))
		s.Empty(s.captured.transferEncoding)
		s.Empty(s.captured.body)
	}
}

func (s *ConnectionTestSuite) TestBodyIsSentAsUTF8JSON() {
	conn := s.connection(nil)
	body := `{"name":"Grüße aus Köln","tags":["ü","ß"]}`
	req := NewRequest(MethodPost, "_api/document/users")
	req.Body = body

	_, err := conn.Send(context.Background(), req)
	s.Require().NoError(err)

	s.Equal("application/json; charset=utf-8", s.captured.header.Get("Content-Type"))
	s.EqualValues(len([]byte(body)), s.captured.contentLength)
	s.Empty(s.captured.transferEncoding, "body must not be chunked")
	s.Equal(body, string(s.captured.body))
}

func (s *ConnectionTestSuite) TestBasicAuthorizationRequiresBothCredentials() {
	for _, tc := range []struct {
		name     string
		username string
		password string
		expected string
	}{
		{name: "Both", username: "root", password: "secret", expected: "Basic " + base64.StdEncoding.EncodeToString([]byte("root:secret"))},
		{name: "NoPassword", username: "root"},
		{name: "NoUsername", password: "secret"},
		{name: "Neither"},
	} {
		s.Run(tc.name, func() {
			conn := s.connection(func(o *ConnectionOptions) {
				o.Username = tc.username
				o.Password = tc.password
			})
			_, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
			s.Require().NoError(err)
			s.Equal(tc.expected, s.captured.header.Get("Authorization"))
		})
	}
}

func (s *ConnectionTestSuite) TestBearerAuthorizationFromJWTSecret() {
	conn := s.connection(func(o *ConnectionOptions) {
		o.JWTSecret = "supersecret"
	})
	_, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
	s.Require().NoError(err)

	header := s.captured.header.Get("Authorization")
	s.Require().True(strings.HasPrefix(header, "bearer "), header)

	claims := &superuserClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "bearer "), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("supersecret"), nil
	})
	s.Require().NoError(err)
	s.True(token.Valid)
	s.Equal("arangodb", claims.Issuer)
	s.Equal("test", claims.ServerID)
}

func (s *ConnectionTestSuite) TestBasicCredentialsWinOverJWTSecret() {
	conn := s.connection(func(o *ConnectionOptions) {
		o.Username = "root"
		o.Password = "secret"
		o.JWTSecret = "supersecret"
	})
	_, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
	s.Require().NoError(err)
	s.True(strings.HasPrefix(s.captured.header.Get("Authorization"), "Basic "))
}

func (s *ConnectionTestSuite) TestHeadersPathAndUserAgent() {
	conn := s.connection(func(o *ConnectionOptions) {
		o.DatabaseName = "mydb"
	})
	req := NewRequest(MethodGet, "/_api/document/users/1").
		SetHeader("If-Match", "_rev1").
		SetQuery("waitForSync", "true")

	_, err := conn.Send(context.Background(), req)
	s.Require().NoError(err)

	s.Equal("/_db/mydb/_api/document/users/1", s.captured.path)
	s.Equal("waitForSync=true", s.captured.rawQuery)
	s.Equal("_rev1", s.captured.header.Get("If-Match"))
	s.Equal("ArangoDB-Go/0.4.0", s.captured.header.Get("User-Agent"))
}

func (s *ConnectionTestSuite) TestSuccessfulResponseIsCaptured() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Arango-Queue-Time-Seconds", "0.0")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`  {"_key":"1","_rev":"_a"}`))
	}
	conn := s.connection(nil)

	resp, err := conn.Send(context.Background(), NewRequest(MethodPost, "_api/document/users"))
	s.Require().NoError(err)

	s.Equal(http.StatusCreated, resp.StatusCode())
	s.Equal("0.0", resp.Header("X-Arango-Queue-Time-Seconds"))
	s.Equal(BodyTypeDocument, resp.BodyType())
	s.Nil(resp.Err())
	s.True(resp.IsSuccess())
	s.Equal(OutcomeSuccess, Classify(resp, err))

	var doc struct {
		Key string `json:"_key"`
		Rev string `json:"_rev"`
	}
	s.Require().NoError(resp.ParseBody(&doc))
	s.Equal("1", doc.Key)
	s.Equal("_a", doc.Rev)
}

func (s *ConnectionTestSuite) TestProtocolErrorWithArangoDocument() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":true,"code":404,"errorNum":1203,"errorMessage":"document not found"}`))
	}
	conn := s.connection(nil)

	resp, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/document/users/missing"))
	s.Require().NoError(err)
	s.Require().NotNil(resp.Err())

	s.Equal(http.StatusNotFound, resp.StatusCode())
	s.Equal("application/json", resp.Header("Content-Type"))
	s.Equal(404, resp.Err().StatusCode)
	s.Equal(1203, resp.Err().Number)
	s.Equal("ArangoDB error: document not found", resp.Err().Message)
	s.Equal(OutcomeProtocolError, Classify(resp, err))

	var protocolErr *ProtocolError
	s.True(errors.As(resp.Err(), &protocolErr))
	s.Equal(http.StatusNotFound, protocolErr.StatusCode)
}

func (s *ConnectionTestSuite) TestProtocolErrorFallsBackToGenericMessage() {
	for _, tc := range []struct {
		name string
		body string
	}{
		{name: "Empty"},
		{name: "HTML", body: "<html>bad gateway</html>"},
		{name: "BrokenJSON", body: `{"error":true,"code":`},
		{name: "NotAnError", body: `{"error":false,"code":500}`},
		{name: "List", body: `[1,2,3]`},
	} {
		s.Run(tc.name, func() {
			s.handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(tc.body))
			}
			conn := s.connection(nil)

			resp, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/document/users/missing"))
			s.Require().NoError(err)
			s.Require().NotNil(resp.Err())

			s.Equal(tc.body, resp.Body())
			s.Equal(http.StatusNotFound, resp.Err().StatusCode)
			s.Equal(0, resp.Err().Number)
			s.Equal("Protocol error: "+resp.Err().Cause.Error(), resp.Err().Message)
			s.Equal("Protocol error: the remote server returned an error: (404) Not Found.", resp.Err().Message)
		})
	}
}

func (s *ConnectionTestSuite) TestTransportFailureIsFatal() {
	conn := s.connection(nil)
	s.server.Close()

	resp, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
	s.Nil(resp)
	s.Require().Error(err)

	var transportErr *TransportError
	s.Require().True(errors.As(err, &transportErr))
	s.Equal(http.MethodGet, transportErr.Method)
	s.Equal(OutcomeTransportFailure, Classify(resp, err))
}

func (s *ConnectionTestSuite) TestTruncatedResponseIsFatal() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		s.Require().True(ok)
		netConn, buf, err := hj.Hijack()
		s.Require().NoError(err)
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n{\"a\"")
		_ = buf.Flush()
		_ = netConn.Close()
	}
	conn := s.connection(nil)

	resp, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
	s.Nil(resp)

	var transportErr *TransportError
	s.True(errors.As(err, &transportErr))
}

func (s *ConnectionTestSuite) TestInvalidRequestIsRejectedBeforeSending() {
	conn := s.connection(nil)

	_, err := conn.Send(context.Background(), NewRequest("TRACE", "_api/version"))
	s.True(errors.Is(err, ErrInvalidRequest))
	s.Empty(s.captured.method)
}

func (s *ConnectionTestSuite) TestLogsEachCall() {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	conn := s.connection(func(o *ConnectionOptions) {
		o.Logger = &logger
	})

	_, err := conn.Send(context.Background(), NewRequest(MethodGet, "_api/version"))
	s.Require().NoError(err)

	s.Contains(buf.String(), `"message":"arangodb request"`)
	s.Contains(buf.String(), `"alias":"test"`)
	s.Contains(buf.String(), `"status":200`)
}

func TestBaseURI(t *testing.T) {
	withDB, err := NewConnection(ConnectionOptions{
		Alias:        "main",
		Hostname:     "db.example.com",
		Port:         8530,
		IsSecured:    true,
		DatabaseName: "mydb",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://db.example.com:8530/_db/mydb/", withDB.BaseURI())
	assert.Equal(t, "mydb", withDB.DatabaseName())

	withoutDB, err := NewConnection(ConnectionOptions{
		Alias:     "main",
		Hostname:  "db.example.com",
		Port:      8530,
		IsSecured: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "https://db.example.com:8530/", withoutDB.BaseURI())

	assert.Equal(t, "http://127.0.0.1:8529/", BaseURI("127.0.0.1", 8529, false, ""))
	assert.Equal(t, "http://[::1]:8529/_db/test/", BaseURI("::1", 8529, false, "test"))
}

func TestNewConnectionValidatesOptions(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts ConnectionOptions
	}{
		{name: "NoAlias", opts: ConnectionOptions{Hostname: "localhost", Port: 8529}},
		{name: "NoHostname", opts: ConnectionOptions{Alias: "a", Port: 8529}},
		{name: "BadHostname", opts: ConnectionOptions{Alias: "a", Hostname: "local host", Port: 8529}},
		{name: "ZeroPort", opts: ConnectionOptions{Alias: "a", Hostname: "localhost"}},
		{name: "PortTooLarge", opts: ConnectionOptions{Alias: "a", Hostname: "localhost", Port: 70000}},
		{name: "DatabaseWithSlash", opts: ConnectionOptions{Alias: "a", Hostname: "localhost", Port: 8529, DatabaseName: "a/b"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := NewConnection(tc.opts)
			assert.Nil(t, conn)
			assert.True(t, errors.Is(err, ErrInvalidOptions), "%v", err)
		})
	}
}

func TestNewTransportProxy(t *testing.T) {
	assert.Nil(t, NewTransport(false).Proxy)
	assert.NotNil(t, NewTransport(true).Proxy)
}

func TestConnectionAccessors(t *testing.T) {
	conn, err := NewConnection(ConnectionOptions{
		Alias:       "main",
		Hostname:    "localhost",
		Port:        8529,
		Username:    "root",
		Password:    "pw",
		UseWebProxy: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "main", conn.Alias())
	assert.Equal(t, "localhost", conn.Hostname())
	assert.Equal(t, 8529, conn.Port())
	assert.False(t, conn.IsSecured())
	assert.Equal(t, "root", conn.Username())
	assert.True(t, conn.UseWebProxy())
	assert.Equal(t, "http://localhost:8529/", conn.BaseURI())
}
