// Package conn implements the per-connection state machine and the
// broadcast set of upgraded WebSocket clients — components D and E. One
// goroutine serves one connection for its entire lifetime, Go's natural
// analogue of the thread-per-connection model the original specifies.
package conn

import (
	"bufio"
	"errors"
	"io"
	"log"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/Gronis/wasmdev/internal/httpmsg"
	"github.com/Gronis/wasmdev/internal/registry"
	"github.com/Gronis/wasmdev/internal/wsproto"
)

// maxRedirectChain bounds InternalRedirect traversal so a cyclic registry
// can't hang a worker goroutine — "implementation-defined limit in the low
// tens" per §7.
const maxRedirectChain = 32

// Client is an upgraded WebSocket peer: the outbound write half, guarded
// by its own mutex so broadcasts serialize per client, plus the peer
// address used as removal identity.
type Client struct {
	addr   string
	id     string
	mu     sync.Mutex
	writer io.Writer
}

// Server aggregates the registry and the live client set, both shared
// between the accept goroutine, per-connection workers, and the pipeline.
type Server struct {
	Registry *registry.Registry
	Logger   *log.Logger

	mu      sync.RWMutex
	clients []*Client
}

// NewServer returns a Server ready to accept connections against reg.
func NewServer(reg *registry.Registry, logger *log.Logger) *Server {
	return &Server{Registry: reg, Logger: logger}
}

// Serve runs the accept loop, spawning one goroutine per connection. It
// blocks until the listener returns an error (typically on Close).
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(c)
	}
}

// Broadcast writes msg as a single text frame to every currently
// registered client. Per-client write failures are logged and the client
// is left in the set — its own handler goroutine removes it once it
// detects the broken connection (§4.E).
func (s *Server) Broadcast(msg string) {
	frame, err := wsproto.EncodeTextFrame([]byte(msg))
	if err != nil {
		s.logf("broadcast: %v", err)
		return
	}

	s.mu.RLock()
	snapshot := make([]*Client, len(s.clients))
	copy(snapshot, s.clients)
	s.mu.RUnlock()

	for _, c := range snapshot {
		c.mu.Lock()
		_, err := c.writer.Write(frame)
		c.mu.Unlock()
		if err != nil {
			s.logf("broadcast to client %s (%s): %v", c.id, c.addr, err)
		}
	}
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = append(s.clients, c)
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.clients {
		if existing == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Server) handleConn(c net.Conn) {
	id := uuid.NewString()[:8]
	s.logf("[%s] connected: %s", id, c.RemoteAddr())
	defer func() {
		s.logf("[%s] closed: %s", id, c.RemoteAddr())
		c.Close()
	}()

	r := bufio.NewReader(c)
	buf := make([]byte, 0, 4096)

	for {
		block, rest, err := readHeaderBlock(r, buf)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logf("[%s] read error: %v", id, err)
			}
			return
		}
		buf = rest

		req, err := httpmsg.ParseRequest(block)
		if err != nil {
			s.logf("[%s] parse error: %v", id, err)
			return
		}

		if wsproto.IsUpgradeRequest(req) {
			key, _ := httpmsg.WebSocketKey(req.Headers)
			resp := wsproto.UpgradeResponse(key)
			if _, err := resp.WriteTo(c); err != nil {
				s.logf("[%s] upgrade write error: %v", id, err)
				return
			}
			s.serveUpgraded(id, c, r, buf)
			return
		}

		// Only GET is dispatched to the registry; other methods get 404.
		resp := notFound()
		if req.Method == httpmsg.MethodGET {
			resp = s.resolve(req.Path)
		}
		if _, err := resp.WriteTo(c); err != nil {
			s.logf("[%s] write error: %v", id, err)
			return
		}
	}
}

// resolve walks the registry starting at path, following InternalRedirect
// chains (bounded), promoting LazyLoad on success, and returning the
// response to send — 404 for anything unresolved.
func (s *Server) resolve(path string) httpmsg.Response {
	current := path
	for i := 0; i < maxRedirectChain; i++ {
		ep, ok := s.Registry.Get(current)
		if !ok {
			return notFound()
		}
		switch action := ep.Action.(type) {
		case registry.InternalRedirect:
			current = string(action)
			continue
		case registry.Content:
			return httpmsg.Response{
				Version: httpmsg.Version11,
				Status:  200,
				Headers: ep.Headers,
				Body:    []byte(action),
			}
		case registry.LazyLoad:
			body, err := readFile(string(action))
			if err != nil {
				return notFound()
			}
			s.Registry.Promote(path, body)
			promoted, ok := s.Registry.Get(path)
			if !ok {
				return notFound()
			}
			return httpmsg.Response{
				Version: httpmsg.Version11,
				Status:  200,
				Headers: promoted.Headers,
				Body:    body,
			}
		default:
			return notFound()
		}
	}
	return notFound()
}

func notFound() httpmsg.Response {
	return httpmsg.Response{Version: httpmsg.Version11, Status: 404}
}

// serveUpgraded registers c as a Client for the remainder of the
// connection's life and loops discarding client frames until the peer
// closes, at which point the client is deregistered — scoped acquisition
// and guaranteed release via defer, the teacher's idiom for the original's
// scoped-cleanup requirement.
func (s *Server) serveUpgraded(id string, conn net.Conn, r *bufio.Reader, leftover []byte) {
	client := &Client{addr: conn.RemoteAddr().String(), id: id, writer: conn}
	s.addClient(client)
	defer s.removeClient(client)

	buf := append(make([]byte, 0, 512), leftover...)
	for {
		for {
			frame, err := wsproto.DrainClientFrame(buf)
			if err != nil {
				break
			}
			buf = buf[frame.Length:]
			if frame.Opcode == wsproto.OpClose {
				return
			}
		}

		if n := r.Buffered(); n > 0 {
			tmp := make([]byte, n)
			if _, err := io.ReadFull(r, tmp); err != nil {
				return
			}
			buf = append(buf, tmp...)
			continue
		}

		tmp := make([]byte, 512)
		n, err := r.Read(tmp)
		if n == 0 || err != nil {
			// A zero-length fill terminates the loop — the peer closed.
			return
		}
		buf = append(buf, tmp[:n]...)
	}
}
