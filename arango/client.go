package arango

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/suar-net/arango-go/dictator"
	"github.com/suar-net/arango-go/protocol"
)

// ArangoDB error numbers callers commonly branch on.
const (
	ErrorNumConflict                 = 1200
	ErrorNumDocumentNotFound         = 1202
	ErrorNumDataSourceNotFound       = 1203
	ErrorNumUniqueConstraintViolated = 1210
)

// Client issues typed calls through one Connection.
type Client struct {
	conn *protocol.Connection
}

func NewClient(conn *protocol.Connection) *Client {
	return &Client{conn: conn}
}

func (c *Client) Connection() *protocol.Connection {
	return c.conn
}

// VersionInfo is the answer of GET /_api/version.
type VersionInfo struct {
	Server  string `json:"server"`
	Version string `json:"version"`
	License string `json:"license"`
}

// DocumentMeta identifies a stored document revision.
type DocumentMeta struct {
	ID  string `json:"_id"`
	Key string `json:"_key"`
	Rev string `json:"_rev"`
}

// do sends req and turns a structured ArangoDB error into the returned error.
func (c *Client) do(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	resp, err := c.conn.Send(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.Path)
	}
	if arangoErr := resp.Err(); arangoErr != nil {
		return resp, arangoErr
	}
	return resp, nil
}

// Version returns the server name, version and license.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	resp, err := c.do(ctx, protocol.NewRequest(protocol.MethodGet, "_api/version"))
	if err != nil {
		return nil, err
	}

	info := &VersionInfo{}
	if err := resp.ParseBody(info); err != nil {
		return nil, err
	}
	return info, nil
}

// Document reads collection/key into out, applying schema.
func (c *Client) Document(ctx context.Context, collection, key string, out interface{}, schema dictator.Schema) error {
	resp, err := c.do(ctx, protocol.NewRequest(protocol.MethodGet, documentPath(collection, key)))
	if err != nil {
		return err
	}

	var doc dictator.Document
	if err := resp.ParseBody(&doc); err != nil {
		return err
	}
	return dictator.ToObject(doc, out, schema)
}

// CreateDocument stores obj in collection and returns the new document's
// identity.
func (c *Client) CreateDocument(ctx context.Context, collection string, obj interface{}, schema dictator.Schema) (*DocumentMeta, error) {
	doc, err := dictator.ToDocument(obj, schema)
	if err != nil {
		return nil, err
	}

	req := protocol.NewRequest(protocol.MethodPost, "_api/document/"+url.PathEscape(collection))
	if err := req.SetBody(doc); err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseMeta(resp)
}

// DeleteDocument removes collection/key.
func (c *Client) DeleteDocument(ctx context.Context, collection, key string) (*DocumentMeta, error) {
	resp, err := c.do(ctx, protocol.NewRequest(protocol.MethodDelete, documentPath(collection, key)))
	if err != nil {
		return nil, err
	}
	return parseMeta(resp)
}

func parseMeta(resp *protocol.Response) (*DocumentMeta, error) {
	meta := &DocumentMeta{}
	if err := resp.ParseBody(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func documentPath(collection, key string) string {
	return "_api/document/" + url.PathEscape(collection) + "/" + url.PathEscape(key)
}

// IsNotFound reports whether err is an ArangoDB 404.
func IsNotFound(err error) bool {
	var arangoErr *protocol.ArangoError
	return errors.As(err, &arangoErr) && arangoErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a revision conflict or a unique
// constraint violation.
func IsConflict(err error) bool {
	var arangoErr *protocol.ArangoError
	if !errors.As(err, &arangoErr) {
		return false
	}
	return arangoErr.Number == ErrorNumConflict || arangoErr.Number == ErrorNumUniqueConstraintViolated
}
