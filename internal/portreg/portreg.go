// Package portreg implements the virtual HTTP port registry from spec
// section 4.8: a namespace-independent map from port number to handler
// that a virtual HTTP client consults before falling through to a real
// external fetch. Guarded the same way minicli guards its own handler
// table (minicli.go's handlers slice behind a package-level mutex) so
// listen/close/get are race-free with concurrent dispatch.
package portreg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Request is the virtual HTTP request a registered handler receives.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Response is the virtual HTTP response a handler populates. A handler
// that completes synchronously sets these fields before returning; a
// handler that completes lazily returns a non-nil Done channel and may
// populate these fields any time before closing it.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Handler serves one virtual request. If it returns a non-nil Done, the
// dispatcher waits for it to close before treating resp as final,
// matching spec section 4.8's "sync or lazily completing via a
// done-promise".
type Handler func(req *Request, resp *Response) (done <-chan struct{})

// ErrNotRegistered is returned by Dispatch when no handler is listening
// on the requested port; the caller (the virtual HTTP client) falls
// through to an external fetch against the real host.
var ErrNotRegistered = fmt.Errorf("portreg: no handler registered")

// Registry is the shared port table for one session.
type Registry struct {
	mu       sync.RWMutex
	handlers map[int]Handler
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[int]Handler)}
}

// Listen installs handler on port, replacing any existing registration.
func (r *Registry) Listen(port int, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[port] = handler
}

// Close removes the handler on port, if any.
func (r *Registry) Close(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, port)
}

// Get returns the handler registered on port, if any.
func (r *Registry) Get(port int) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[port]
	return h, ok
}

// Dispatch invokes the handler registered on port with req, waiting for
// its done-promise (if any) before returning the populated response. It
// returns ErrNotRegistered if no handler is listening, so the virtual
// HTTP client knows to fall through to an external fetch.
func (r *Registry) Dispatch(ctx context.Context, port int, req *Request) (*Response, error) {
	h, ok := r.Get(port)
	if !ok {
		return nil, ErrNotRegistered
	}

	resp := &Response{Header: make(http.Header)}
	done := h(req, resp)
	if done == nil {
		return resp, nil
	}

	select {
	case <-done:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// DispatchAll runs Dispatch concurrently for every request in reqs,
// keyed by its own port, returning responses in the same order. Handler
// invocations are independent per spec section 4.8, so a fan-out here
// only needs to join on completion, not serialize dispatch.
func (r *Registry) DispatchAll(ctx context.Context, ports []int, reqs []*Request) ([]*Response, error) {
	if len(ports) != len(reqs) {
		return nil, fmt.Errorf("portreg: ports and reqs length mismatch")
	}
	resps := make([]*Response, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range reqs {
		i := i
		g.Go(func() error {
			resp, err := r.Dispatch(gctx, ports[i], reqs[i])
			if err != nil {
				return err
			}
			resps[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resps, nil
}

// BodyString is a convenience for tests and handlers reading req.Body.
func BodyString(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	return string(b), err
}
