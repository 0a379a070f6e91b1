package protocol

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// BodyType is the shape of a response body, inferred from its first
// non-blank character.
type BodyType int

const (
	BodyTypeText BodyType = iota
	BodyTypeDocument
	BodyTypeList
)

func (t BodyType) String() string {
	switch t {
	case BodyTypeDocument:
		return "document"
	case BodyTypeList:
		return "list"
	default:
		return "text"
	}
}

func inferBodyType(body string) BodyType {
	trimmed := strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return BodyTypeDocument
	case strings.HasPrefix(trimmed, "["):
		return BodyTypeList
	default:
		return BodyTypeText
	}
}

// Body is the envelope ArangoDB wraps most results and all errors in.
type Body[T any] struct {
	Error        bool   `json:"error"`
	Code         int    `json:"code"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`
	Result       T      `json:"result"`
}

// Response is the result of one Send call. It is assembled once and never
// modified afterwards; accessors return copies of mutable fields.
type Response struct {
	statusCode int
	headers    http.Header
	body       string
	bodyType   BodyType
	err        *ArangoError
}

func newResponse(statusCode int, headers http.Header, body string) *Response {
	resp := &Response{
		statusCode: statusCode,
		headers:    headers,
		body:       body,
		bodyType:   inferBodyType(body),
	}
	if statusCode >= http.StatusBadRequest {
		resp.err = newArangoError(resp)
	}
	return resp
}

// newArangoError extracts the server's own error document when there is one
// and falls back to a message derived from the protocol error otherwise.
func newArangoError(resp *Response) *ArangoError {
	cause := &ProtocolError{StatusCode: resp.statusCode}
	arangoErr := &ArangoError{Cause: cause}

	if resp.bodyType == BodyTypeDocument {
		var body Body[json.RawMessage]
		if err := json.Unmarshal([]byte(resp.body), &body); err == nil && body.Error {
			arangoErr.StatusCode = body.Code
			arangoErr.Number = body.ErrorNum
			arangoErr.Message = arangoErrorPrefix + body.ErrorMessage
		}
	}

	if arangoErr.Message == "" {
		arangoErr.StatusCode = resp.statusCode
		arangoErr.Number = 0
		arangoErr.Message = protocolErrorPrefix + cause.Error()
	}

	return arangoErr
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Headers returns a copy of the response headers.
func (r *Response) Headers() http.Header { return r.headers.Clone() }

// Header returns the first value of the named response header.
func (r *Response) Header(key string) string { return r.headers.Get(key) }

// Body returns the raw response body.
func (r *Response) Body() string { return r.body }

// BodyType returns the inferred shape of the body.
func (r *Response) BodyType() BodyType { return r.bodyType }

// Err returns the structured error, or nil when the status was not an HTTP
// error status.
func (r *Response) Err() *ArangoError { return r.err }

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

func (r *Response) Outcome() Outcome {
	if r.err != nil {
		return OutcomeProtocolError
	}
	return OutcomeSuccess
}

// ParseBody decodes the JSON body into v.
func (r *Response) ParseBody(v interface{}) error {
	if r.bodyType == BodyTypeText {
		return errors.Errorf("response body is not JSON (status %d)", r.statusCode)
	}
	if err := json.Unmarshal([]byte(r.body), v); err != nil {
		return errors.Wrap(err, "decoding response body")
	}
	return nil
}
