// Package protocol implements the HTTP layer of the ArangoDB driver: a
// per-endpoint Connection that turns a Request into exactly one HTTP call and
// classifies the outcome into a Response.
//
// Getting started:
//
//	conn, err := protocol.NewConnection(protocol.ConnectionOptions{
//		Alias:        "primary",
//		Hostname:     "127.0.0.1",
//		Port:         8529,
//		DatabaseName: "mydb",
//		Username:     "root",
//		Password:     "secret",
//	})
//	resp, err := conn.Send(ctx, protocol.NewRequest(protocol.MethodGet, "_api/version"))
//
// A nil error means the server answered. resp.Err() is non-nil only when the
// answer was an HTTP error status; a non-nil error from Send is a transport
// failure and nothing was received.
package protocol

const (
	// DriverName is the client identifier sent in the User-Agent header.
	DriverName = "ArangoDB-Go"
	// DriverVersion is the client version sent in the User-Agent header.
	DriverVersion = "0.4.0"
)

// UserAgent returns the fixed User-Agent value of the driver.
func UserAgent() string {
	return DriverName + "/" + DriverVersion
}
