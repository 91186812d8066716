package bridge

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/vassu-v/D-LiFi-Proto/internal/util"
)

// outBufferSize is each client's outgoing line channel capacity. A client
// that stops reading loses event lines rather than stalling the node loop.
const outBufferSize = 32

// Request is one command line awaiting execution in the node loop. Reply
// writes the response back on whichever channel the command arrived on.
type Request struct {
	Line  string
	Reply func(string)
}

// Server accepts host connections and fans delivered-packet events out to
// every connected client. It never touches engine state itself: commands are
// queued on Requests() for the single-owner node loop.
type Server struct {
	ln       net.Listener
	requests chan Request

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewServer creates an idle server.
func NewServer() *Server {
	return &Server{
		requests: make(chan Request, 16),
		subs:     make(map[chan string]struct{}),
	}
}

// Start begins listening on addr and returns the bound address.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("bridge listen on %s: %w", addr, err)
	}
	s.ln = ln
	go s.acceptLoop()
	return ln.Addr().String(), nil
}

// Requests returns the queue of pending host commands.
func (s *Server) Requests() <-chan Request {
	return s.requests
}

// Publish sends an event line to every connected client. Slow clients drop
// lines instead of blocking the caller.
func (s *Server) Publish(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for out := range s.subs {
		select {
		case out <- line:
		default:
			util.LogWarning("bridge client lagging, dropped event line")
		}
	}
}

// Close stops the listener. Existing connections drain and exit on read
// error.
func (s *Server) Close() {
	if s.ln != nil {
		s.ln.Close()
	}
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one TCP host connection: a writer goroutine drains the
// client's line channel while this goroutine reads commands.
func (s *Server) handleConn(conn net.Conn) {
	util.LogInfo("bridge client connected from %s", conn.RemoteAddr())

	out := make(chan string, outBufferSize)
	s.subscribe(out)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for line := range out {
			if _, err := fmt.Fprintln(conn, line); err != nil {
				return
			}
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.requests <- Request{
			Line: line,
			Reply: func(resp string) {
				select {
				case out <- resp:
				default:
				}
			},
		}
	}

	s.unsubscribe(out)
	close(out)
	<-done
	conn.Close()
	util.LogInfo("bridge client %s disconnected", conn.RemoteAddr())
}

func (s *Server) subscribe(out chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[out] = struct{}{}
}

func (s *Server) unsubscribe(out chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, out)
}
