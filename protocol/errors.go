package protocol

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidOptions = errors.New("invalid connection options")
)

const (
	arangoErrorPrefix   = "ArangoDB error: "
	protocolErrorPrefix = "Protocol error: "
)

// ArangoError is the structured error of a response that carried an HTTP
// error status.
type ArangoError struct {
	// StatusCode is the HTTP-equivalent code reported by the server.
	StatusCode int
	// Number is the ArangoDB error number (errorNum), 0 when unknown.
	Number  int
	Message string
	// Cause is the protocol error reported by the transport layer.
	Cause error
}

func (e *ArangoError) Error() string {
	return e.Message
}

func (e *ArangoError) Unwrap() error {
	return e.Cause
}

// ProtocolError reports that the server answered with an HTTP error status.
type ProtocolError struct {
	StatusCode int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("the remote server returned an error: (%d) %s.", e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError is returned by Send when no HTTP response was received, or
// when the response could not be read. It is fatal for the call.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause from github.com/pkg/errors reach the transport error.
func (e *TransportError) Cause() error {
	return e.Err
}

// Outcome classifies the result of one Send call.
type Outcome int

const (
	// OutcomeSuccess means the call completed; the status may still be an
	// application-level failure.
	OutcomeSuccess Outcome = iota
	// OutcomeProtocolError means the server answered with an HTTP error status.
	OutcomeProtocolError
	// OutcomeTransportFailure means no usable response was received.
	OutcomeTransportFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeProtocolError:
		return "protocol_error"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classify maps the return values of Send to an Outcome.
func Classify(resp *Response, err error) Outcome {
	if err != nil || resp == nil {
		return OutcomeTransportFailure
	}
	return resp.Outcome()
}
