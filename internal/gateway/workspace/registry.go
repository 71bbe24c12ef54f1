package workspace

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"rapidproto/internal/pipeline"
)

var ErrNotFound = errors.New("workspace not found")

// Workspace is a stable handle on one Runner. Its id survives NewProject;
// only the session id inside the runner changes.
type Workspace struct {
	ID      string
	Runner  *pipeline.Runner
	Created time.Time
}

// Factory builds the runner for a new workspace.
type Factory func(id string) *pipeline.Runner

// Registry keeps at most max workspaces and forgets any left idle for ttl.
type Registry struct {
	cache   *expirable.LRU[string, *Workspace]
	factory Factory
	onEvict func(id string)
	now     func() time.Time
}

type Option func(*Registry)

// OnEvict is called with the id of every workspace the registry drops.
func OnEvict(fn func(id string)) Option {
	return func(r *Registry) {
		r.onEvict = fn
	}
}

func New(size int, ttl time.Duration, factory Factory, opts ...Option) *Registry {
	r := &Registry{factory: factory, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	var cb expirable.EvictCallback[string, *Workspace]
	if r.onEvict != nil {
		cb = func(id string, _ *Workspace) { r.onEvict(id) }
	}
	r.cache = expirable.NewLRU[string, *Workspace](size, cb, ttl)
	return r
}

func newID() string { return "ws-" + uuid.NewString() }

func (r *Registry) Create() *Workspace {
	id := newID()
	ws := &Workspace{ID: id, Runner: r.factory(id), Created: r.now()}
	r.cache.Add(id, ws)
	return ws
}

// Get returns the workspace and restarts its idle timer.
func (r *Registry) Get(id string) (*Workspace, error) {
	id = strings.TrimSpace(id)
	ws, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	r.cache.Add(id, ws)
	return ws, nil
}

func (r *Registry) Remove(id string) bool {
	return r.cache.Remove(strings.TrimSpace(id))
}

func (r *Registry) Len() int { return r.cache.Len() }
