// Package fakebackend is an in-process websocket backend speaking the session's
// frame protocol. Tests drive it to push inbound events and inspect outbound ones.
package fakebackend

import (
	"chat-session/domain/event"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

// Authorizer decides whether a connection-time Authorization header is accepted.
type Authorizer func(authorization string) bool

type Server struct {
	mu          sync.Mutex
	authorize   Authorizer
	conns       []*websocket.Conn
	received    []event.Frame
	attempts    int
	connections int
	lastAuth    string
	http        *httptest.Server
}

func New(authorize Authorizer) *Server {
	s := &Server{authorize: authorize}
	wsServer := websocket.Server{
		Handshake: s.handshake,
		Handler:   s.serve,
	}
	s.http = httptest.NewServer(wsServer)
	return s
}

// URL is the ws:// endpoint of the backend.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

func (s *Server) Close() {
	s.DropAll()
	s.http.Close()
}

func (s *Server) handshake(_ *websocket.Config, r *http.Request) error {
	authorization := r.Header.Get("Authorization")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	s.lastAuth = authorization
	if s.authorize != nil && !s.authorize(authorization) {
		return errors.New("unauthorized")
	}
	return nil
}

func (s *Server) serve(conn *websocket.Conn) {
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.connections++
	s.mu.Unlock()
	defer s.forget(conn)

	for {
		var frame event.Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			return
		}
		s.mu.Lock()
		s.received = append(s.received, frame)
		s.mu.Unlock()
	}
}

func (s *Server) forget(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.conns {
		if c == conn {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

// Push sends one event to every open client connection.
func (s *Server) Push(name string, payload any) error {
	frame, err := event.NewFrame(name, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return s.PushRaw(string(data))
}

// PushRaw sends an arbitrary text message, valid frame or not.
func (s *Server) PushRaw(data string) error {
	s.mu.Lock()
	conns := append([]*websocket.Conn(nil), s.conns...)
	s.mu.Unlock()
	if len(conns) == 0 {
		return errors.New("no client connected")
	}
	for _, conn := range conns {
		if err := websocket.Message.Send(conn, data); err != nil {
			return err
		}
	}
	return nil
}

// DropAll closes every client connection from the server side.
func (s *Server) DropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *Server) Received() []event.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Frame(nil), s.received...)
}

// ReceivedNames lists outbound event names in arrival order.
func (s *Server) ReceivedNames() []string {
	frames := s.Received()
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func (s *Server) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Connections counts accepted websocket sessions.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func (s *Server) OpenConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) LastAuthorization() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAuth
}

// BearerOnly accepts exactly "Bearer <token>".
func BearerOnly(token string) Authorizer {
	return func(authorization string) bool {
		return authorization == "Bearer "+token
	}
}
