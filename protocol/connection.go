package protocol

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json; charset=utf-8"

// ConnectionOptions configures a Connection. Basic credentials are used when
// both Username and Password are set; otherwise JWTSecret, when set, is used to
// sign superuser bearer tokens.
type ConnectionOptions struct {
	Alias        string `validate:"required"`
	Hostname     string `validate:"required,hostname_rfc1123|ip"`
	Port         int    `validate:"min=1,max=65535"`
	IsSecured    bool
	DatabaseName string `validate:"omitempty,excludesall=/?#"`
	Username     string
	Password     string
	JWTSecret    string
	// JWTTokenTTL is the lifetime of signed superuser tokens, one hour when zero.
	JWTTokenTTL time.Duration `validate:"gte=0"`
	UseWebProxy bool

	// Transport overrides the round tripper built by NewTransport.
	Transport http.RoundTripper
	Logger    *zerolog.Logger
}

// Connection stores data about a single endpoint and sends requests to it.
// It is immutable after construction and safe for concurrent use.
type Connection struct {
	alias        string
	hostname     string
	port         int
	isSecured    bool
	databaseName string
	username     string
	password     string
	jwtSecret    string
	jwtTTL       time.Duration
	useWebProxy  bool
	baseURI      string

	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTransport returns the transport a Connection uses by default. Proxies
// are only consulted when useProxy is set.
func NewTransport(useProxy bool) *http.Transport {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if useProxy {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return transport
}

// BaseURI builds the URL prefix for an endpoint, with a /_db/{name}/ segment
// when databaseName is set.
func BaseURI(hostname string, port int, isSecured bool, databaseName string) string {
	scheme := "http"
	if isSecured {
		scheme = "https"
	}
	uri := scheme + "://" + net.JoinHostPort(hostname, strconv.Itoa(port)) + "/"
	if databaseName != "" {
		uri += "_db/" + url.PathEscape(databaseName) + "/"
	}
	return uri
}

func NewConnection(opts ConnectionOptions) (*Connection, error) {
	if err := validate.Struct(opts); err != nil {
		return nil, errors.Wrap(ErrInvalidOptions, err.Error())
	}

	transport := opts.Transport
	if transport == nil {
		transport = NewTransport(opts.UseWebProxy)
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("alias", opts.Alias).Logger()
	}

	jwtTTL := opts.JWTTokenTTL
	if jwtTTL == 0 {
		jwtTTL = defaultJWTTokenTTL
	}

	return &Connection{
		alias:        opts.Alias,
		hostname:     opts.Hostname,
		port:         opts.Port,
		isSecured:    opts.IsSecured,
		databaseName: opts.DatabaseName,
		username:     opts.Username,
		password:     opts.Password,
		jwtSecret:    opts.JWTSecret,
		jwtTTL:       jwtTTL,
		useWebProxy:  opts.UseWebProxy,
		baseURI:      BaseURI(opts.Hostname, opts.Port, opts.IsSecured, opts.DatabaseName),
		httpClient:   &http.Client{Transport: transport},
		logger:       logger,
	}, nil
}

func (c *Connection) Alias() string        { return c.alias }
func (c *Connection) Hostname() string     { return c.hostname }
func (c *Connection) Port() int            { return c.port }
func (c *Connection) IsSecured() bool      { return c.isSecured }
func (c *Connection) DatabaseName() string { return c.databaseName }
func (c *Connection) Username() string     { return c.username }
func (c *Connection) UseWebProxy() bool    { return c.useWebProxy }
func (c *Connection) BaseURI() string      { return c.baseURI }

// Send performs exactly one HTTP call for request.
//
// The returned error is non-nil only when the request was invalid or no
// response could be received and read; it is a *TransportError in the latter
// case. HTTP error statuses are reported through resp.Err().
func (c *Connection) Send(ctx context.Context, request *Request) (*Response, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	httpRequest, err := c.newHTTPRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("method", httpRequest.Method).
			Str("url", httpRequest.URL.String()).
			Msg("arangodb transport failure")
		return nil, &TransportError{Method: httpRequest.Method, URL: httpRequest.URL.String(), Err: err}
	}

	resp, err := readResponse(httpResponse)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Warn().Err(err).
			Str("method", httpRequest.Method).
			Str("url", httpRequest.URL.String()).
			Msg("arangodb response unreadable")
		return nil, &TransportError{Method: httpRequest.Method, URL: httpRequest.URL.String(), Err: err}
	}

	if arangoErr := resp.Err(); arangoErr != nil {
		c.logger.Warn().
			Str("method", httpRequest.Method).
			Str("url", httpRequest.URL.String()).
			Int("status", resp.StatusCode()).
			Int("error_num", arangoErr.Number).
			Dur("duration", duration).
			Msg(arangoErr.Message)
	} else {
		c.logger.Debug().
			Str("method", httpRequest.Method).
			Str("url", httpRequest.URL.String()).
			Int("status", resp.StatusCode()).
			Dur("duration", duration).
			Msg("arangodb request")
	}

	return resp, nil
}

func (c *Connection) newHTTPRequest(ctx context.Context, request *Request) (*http.Request, error) {
	var (
		bodyReader io.Reader = http.NoBody
		data       []byte
	)
	if request.Body != "" {
		data = []byte(request.Body)
		bodyReader = bytes.NewReader(data)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, string(request.Method), c.baseURI+request.RelativeURI(), bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "creating http request")
	}

	if len(request.Headers) > 0 {
		httpRequest.Header = request.Headers.Clone()
	}
	httpRequest.Header.Set("User-Agent", UserAgent())

	authorization, err := c.authorization()
	if err != nil {
		return nil, err
	}
	if authorization != "" {
		httpRequest.Header.Set("Authorization", authorization)
	}

	// Content-Length is always explicit so the body is never chunked.
	httpRequest.ContentLength = int64(len(data))
	if len(data) > 0 {
		httpRequest.Header.Set("Content-Type", contentTypeJSON)
	}

	return httpRequest, nil
}

func readResponse(httpResponse *http.Response) (*Response, error) {
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}

	return newResponse(httpResponse.StatusCode, httpResponse.Header.Clone(), string(body)), nil
}
