// Package arango is the higher-level API of the driver. It keeps named
// connections in a Registry and issues typed calls through them.
package arango

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/suar-net/arango-go/protocol"
)

var (
	ErrUnknownAlias   = errors.New("unknown connection alias")
	ErrDuplicateAlias = errors.New("connection alias already registered")
)

// Registry maps aliases to connections. It is safe for concurrent use and
// the zero value is ready to use.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*protocol.Connection
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[string]*protocol.Connection)}
}

// Add registers conn under its alias.
func (r *Registry) Add(conn *protocol.Connection) error {
	if conn == nil {
		return errors.New("nil connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[conn.Alias()]; ok {
		return errors.Wrap(ErrDuplicateAlias, conn.Alias())
	}
	if r.connections == nil {
		r.connections = make(map[string]*protocol.Connection)
	}
	r.connections[conn.Alias()] = conn
	return nil
}

func (r *Registry) Get(alias string) (*protocol.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[alias]
	if !ok {
		return nil, errors.Wrap(ErrUnknownAlias, alias)
	}
	return conn, nil
}

// Remove unregisters alias and reports whether it was present.
func (r *Registry) Remove(alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.connections[alias]
	delete(r.connections, alias)
	return ok
}

// Aliases returns the registered aliases in sorted order.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := make([]string, 0, len(r.connections))
	for alias := range r.connections {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
