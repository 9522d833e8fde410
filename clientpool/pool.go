// Package clientpool memoizes one client handle per endpoint for the
// lifetime of a session.
package clientpool

import (
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
)

// Handle is an endpoint-bound capability for calling the per-endpoint scan
// collaborator. Handles are identity-stable: the pool never recreates one
// for the same endpoint, so collaborators may key connection reuse on the
// handle itself.
type Handle struct {
	endpoint string
	cfg      aws.Config
}

// Endpoint returns the endpoint this handle is bound to.
func (h *Handle) Endpoint() string {
	return h.endpoint
}

// Config returns the region-pinned SDK configuration for building service
// clients. Client construction from it is local object assembly only.
func (h *Handle) Config() aws.Config {
	return h.cfg
}

// Pool creates and stores client handles keyed by endpoint id. Safe for
// concurrent use; two concurrent first calls for the same unseen endpoint
// observe exactly one construction.
type Pool struct {
	mu      sync.Mutex
	base    aws.Config
	handles map[string]*Handle
}

// NewPool creates a pool from a base SDK configuration shared by every
// handle; only the region differs per endpoint.
func NewPool(base aws.Config) *Pool {
	return &Pool{
		base:    base,
		handles: make(map[string]*Handle),
	}
}

// Get returns the handle for endpoint, constructing it on first use. No
// network I/O occurs here.
func (p *Pool) Get(endpoint string) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h, ok := p.handles[endpoint]; ok {
		return h
	}

	cfg := p.base.Copy()
	cfg.Region = endpoint

	h := &Handle{endpoint: endpoint, cfg: cfg}
	p.handles[endpoint] = h
	return h
}

// Clear drops all stored handles. Handles already captured by in-flight
// calls remain valid.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handles = make(map[string]*Handle)
}

// Size returns the number of handles currently stored.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}
