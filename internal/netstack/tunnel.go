package netstack

import (
	"io"
	"sync"
)

// tunnelEnd is one side of a tunnel pair: an opaque duplex byte stream.
// minitunnel multiplexes many logical connections with handshake/connect/
// data/closed message framing over one transport (minitunnel.go); spec
// section 4.8 explicitly puts that framing out of scope ("concrete
// implementations out of scope") and only requires the interface
// abstraction, so this reduces minitunnel's duplex-stream idea to a
// single connected io.ReadWriteCloser pair with frame counters.
type tunnelEnd struct {
	mu     sync.Mutex
	rw     io.ReadWriteCloser
	closed bool
}

type pipeEnd struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeEnd) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeEnd) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeEnd) Close() error {
	p.r.Close()
	return p.w.Close()
}

// AddTunnel creates a connected tunnel pair, nameA<->nameB, in this
// namespace, backed by a pair of io.Pipes (one per direction).
func (ns *Namespace) AddTunnel(nameA, nameB string) error {
	ar, bw := io.Pipe()
	br, aw := io.Pipe()

	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.interfaces[nameA] = &Interface{
		Name: nameA, Kind: KindTunnel, Namespace: ns.Name, Peer: nameB, MTU: 1500,
		tunnel: &tunnelEnd{rw: &pipeEnd{r: ar, w: aw}},
	}
	ns.interfaces[nameB] = &Interface{
		Name: nameB, Kind: KindTunnel, Namespace: ns.Name, Peer: nameA, MTU: 1500,
		tunnel: &tunnelEnd{rw: &pipeEnd{r: br, w: bw}},
	}
	return nil
}

// Write sends a frame out this tunnel endpoint, counting it in Stats.
func (t *Interface) Write(b []byte) (int, error) {
	if t.Kind != KindTunnel || t.tunnel == nil {
		return 0, io.ErrClosedPipe
	}
	t.tunnel.mu.Lock()
	closed := t.tunnel.closed
	t.tunnel.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	n, err := t.tunnel.rw.Write(b)
	if err != nil {
		t.Stats.TxErrors++
	} else {
		t.Stats.TxPackets++
	}
	return n, err
}

// Read receives a frame from this tunnel endpoint, counting it in Stats.
func (t *Interface) Read(b []byte) (int, error) {
	if t.Kind != KindTunnel || t.tunnel == nil {
		return 0, io.EOF
	}
	n, err := t.tunnel.rw.Read(b)
	if err != nil && err != io.EOF {
		t.Stats.RxErrors++
	} else if n > 0 {
		t.Stats.RxPackets++
	}
	return n, err
}

// Close tears down this tunnel endpoint.
func (t *Interface) Close() error {
	if t.Kind != KindTunnel || t.tunnel == nil {
		return nil
	}
	t.tunnel.mu.Lock()
	defer t.tunnel.mu.Unlock()
	t.tunnel.closed = true
	return t.tunnel.rw.Close()
}
