package daemon

import (
	"bufio"
	"io"
	"sync"

	"github.com/lifo-sh/vush/internal/mlog"
)

// InputHandler receives forwarded client keystrokes, from whichever
// client sent them.
type InputHandler func(data string)

// ResizeHandler receives a canonical terminal size update.
type ResizeHandler func(cols, rows int)

// client is one attached connection's write side plus the ID the
// session tracks it under.
type client struct {
	id string
	w  io.Writer
	mu sync.Mutex // serializes writes to w
}

func (c *client) send(r Record) error {
	b, err := EncodeRecord(r)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.w.Write(b)
	return err
}

// Session is one detached shell's daemon-side endpoint: it fans input
// from every attached client into a single stream and broadcasts output
// to all of them, per spec section 6.3. "Multiple clients may be
// attached; output is broadcast to all; input from any is forwarded."
type Session struct {
	mu      sync.Mutex
	clients map[string]*client
	first   string // first attached client ID; owns the canonical size

	cols, rows int

	OnInput  InputHandler
	OnResize ResizeHandler
}

// NewSession constructs an empty daemon session.
func NewSession() *Session {
	return &Session{clients: make(map[string]*client)}
}

// Attach registers a new client connection identified by id, whose
// output this session will write framed records to. The first client
// ever attached becomes the canonical size owner.
func (s *Session) Attach(id string, w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[id] = &client{id: id, w: w}
	if s.first == "" {
		s.first = id
	}
}

// Detach removes a client. If it was the canonical size owner, the next
// still-attached client (in no particular order) takes over.
func (s *Session) Detach(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
	if s.first == id {
		s.first = ""
		for other := range s.clients {
			s.first = other
			break
		}
	}
}

// ServeClient reads newline-delimited records from r, attached as id,
// until r is exhausted or returns an error, then detaches id. This is
// the read-side loop; Attach must be called (directly or by ServeClient
// itself via w) before records are meaningfully dispatched.
func (s *Session) ServeClient(id string, r io.Reader, w io.Writer) error {
	s.Attach(id, w)
	defer s.Detach(id)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		rec, ok := DecodeLine(sc.Bytes())
		if !ok {
			continue
		}
		s.dispatch(id, rec)
	}
	return sc.Err()
}

func (s *Session) dispatch(id string, rec Record) {
	switch rec.Type {
	case TypeInput:
		if s.OnInput != nil {
			s.OnInput(rec.Data)
		}
	case TypeResize:
		s.mu.Lock()
		isCanonical := id == s.first
		s.mu.Unlock()
		if !isCanonical {
			return
		}
		s.mu.Lock()
		s.cols, s.rows = rec.Cols, rec.Rows
		s.mu.Unlock()
		if s.OnResize != nil {
			s.OnResize(rec.Cols, rec.Rows)
		}
	default:
		mlog.Debug("daemon: ignoring client-sent record of type %q", rec.Type)
	}
}

// Broadcast sends data to every attached client as an output record. A
// client whose write fails is dropped (treated as disconnected).
func (s *Session) Broadcast(data string) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(Record{Type: TypeOutput, Data: data}); err != nil {
			mlog.Debug("daemon: dropping client %s after write error: %v", c.id, err)
			s.Detach(c.id)
		}
	}
}

// Size returns the canonical terminal size, as set by the first attached
// client's resize events.
func (s *Session) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// ClientCount reports how many clients are currently attached.
func (s *Session) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}
