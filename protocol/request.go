package protocol

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// HTTPMethod is an "enum" for the HTTP methods the REST API accepts.
type HTTPMethod string

const (
	MethodGet     HTTPMethod = http.MethodGet
	MethodPost    HTTPMethod = http.MethodPost
	MethodPut     HTTPMethod = http.MethodPut
	MethodPatch   HTTPMethod = http.MethodPatch
	MethodDelete  HTTPMethod = http.MethodDelete
	MethodHead    HTTPMethod = http.MethodHead
	MethodOptions HTTPMethod = http.MethodOptions
)

var validate = validator.New()

// Request describes one REST call relative to a Connection's base URI.
type Request struct {
	Method  HTTPMethod `validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS"`
	Path    string     `validate:"required"`
	Query   url.Values
	Headers http.Header
	Body    string
}

// NewRequest creates a request for the given method and path, e.g.
// NewRequest(MethodGet, "_api/document/users/123").
func NewRequest(method HTTPMethod, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   url.Values{},
		Headers: http.Header{},
	}
}

// SetQuery sets a query string parameter, replacing any existing values.
func (r *Request) SetQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = url.Values{}
	}
	r.Query.Set(key, value)
	return r
}

// SetHeader sets a header, replacing any existing values.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = http.Header{}
	}
	r.Headers.Set(key, value)
	return r
}

// SetBody encodes v as JSON and stores it as the request body.
func (r *Request) SetBody(v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding request body")
	}
	r.Body = string(out)
	return nil
}

// RelativeURI returns the path and encoded query string to append to a base
// URI. A leading slash on the path is dropped since base URIs end with one.
func (r *Request) RelativeURI() string {
	uri := strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		uri += "?" + r.Query.Encode()
	}
	return uri
}

// Validate checks the method against the allow-list and requires a path.
func (r *Request) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidRequest, "nil request")
	}
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(ErrInvalidRequest, err.Error())
	}
	return nil
}
