package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"trivia/internal/pkg/account"
	"trivia/internal/pkg/log"
	"trivia/internal/pkg/question"
	"trivia/internal/pkg/session"
	"trivia/internal/pkg/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultIdleTimeout bounds how long a silent connection may pin a session
// before it is dropped.
const DefaultIdleTimeout = 5 * time.Minute

// Server is the session coordinator. It accepts TCP connections, owns exactly
// one Session per connection, and keeps the live-session registry. No
// connection's reads or writes can block the progress of another: every
// connection is served by its own goroutine.
type Server struct {
	addr        string
	idleTimeout time.Duration
	bank        *question.Bank
	accounts    account.Store

	registry *Registry
	ln       net.Listener

	mu    sync.Mutex
	conns map[uuid.UUID]net.Conn
	wg    sync.WaitGroup
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithPort sets the TCP port to listen on.
func WithPort(port uint16) Cfg {
	return func(s *Server) error {
		s.addr = fmt.Sprintf(":%d", port)
		return nil
	}
}

// WithAddr sets the full listen address. Tests use ":0" for an ephemeral port.
func WithAddr(addr string) Cfg {
	return func(s *Server) error {
		s.addr = addr
		return nil
	}
}

// WithQuestionBank sets the question bank served to sessions.
func WithQuestionBank(bank *question.Bank) Cfg {
	return func(s *Server) error {
		s.bank = bank
		return nil
	}
}

// WithAccountStore sets the account store.
func WithAccountStore(store account.Store) Cfg {
	return func(s *Server) error {
		s.accounts = store
		return nil
	}
}

// WithIdleTimeout sets the per-connection idle read deadline.
func WithIdleTimeout(d time.Duration) Cfg {
	return func(s *Server) error {
		s.idleTimeout = d
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	srv := &Server{
		registry:    NewRegistry(),
		conns:       make(map[uuid.UUID]net.Conn),
		idleTimeout: DefaultIdleTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(srv); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if srv.bank == nil {
		return nil, errors.New("server requires a question bank")
	}
	if srv.accounts == nil {
		return nil, errors.New("server requires an account store")
	}
	if srv.addr == "" {
		return nil, errors.New("server requires a listen address")
	}
	return srv, nil
}

// Registry exposes the live-session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.addr)
	}
	s.ln = ln
	logger.WithField("addr", ln.Addr().String()).Info("server listening")
	return nil
}

// Addr returns the bound listen address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve runs the accept loop until ctx is cancelled, then closes every live
// connection, waits for all session goroutines to finish and flushes the
// account store.
func (s *Server) Serve(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			logger.Warning(errors.Wrap(err, "accept failed"))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}

	s.closeAllConns()
	s.wg.Wait()
	if err := s.accounts.Persist(); err != nil {
		return errors.Wrap(err, "persist accounts at shutdown failed")
	}
	logger.Info("server stopped")
	return nil
}

// ListenAndServe binds the socket and runs the accept loop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// serveConn drives one session's state machine from the connection's byte
// stream. Teardown runs in this goroutine's defer and nowhere else, so it is
// exactly once per session no matter which path (read failure, write failure,
// decode failure, LOGOUT) ends the loop.
func (s *Server) serveConn(conn net.Conn) {
	sess, err := session.NewSession(
		session.WithQuestionBank(s.bank),
		session.WithAccountStore(s.accounts),
		session.WithRegistry(s.registry),
	)
	if err != nil {
		logger.Error(errors.Wrap(err, "new session failed"))
		conn.Close()
		return
	}
	s.trackConn(sess.ID(), conn)
	defer func() {
		sess.Close()
		conn.Close()
		s.untrackConn(sess.ID())
	}()

	logger.WithFields(logrus.Fields{
		"session": sess.ID().String(),
		"remote":  conn.RemoteAddr().String(),
	}).Info("new connection established")

	dec := wire.NewDecoder(conn)
	w := wire.NewWriter(conn)
	for sess.State() != session.StateDisconnected {
		if err := conn.SetReadDeadline(time.Now().Add(s.idleTimeout)); err != nil {
			return
		}
		msg, err := dec.ReadMessage()
		var replies []wire.Message
		switch {
		case err == nil:
			logger.WithFields(log.MessageToFields(msg)).Debug("received message")
			replies = sess.Handle(msg)
		case errors.Is(err, wire.ErrMalformedMessage):
			// recoverable at the message boundary; the fault budget decides
			// when the connection goes
			replies = sess.Fault("malformed message")
		default:
			// connection fault: peer closed, reset, or idle timeout
			logger.WithFields(logrus.Fields{
				"session": sess.ID().String(),
				"reason":  err.Error(),
			}).Info("connection closed")
			return
		}
		for _, reply := range replies {
			if err := w.WriteMessage(reply); err != nil {
				logger.WithField("session", sess.ID().String()).Warning(errors.Wrap(err, "write reply failed"))
				return
			}
			logger.WithFields(log.MessageToFields(reply)).Debug("sent message")
		}
	}
}

func (s *Server) trackConn(id uuid.UUID, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = conn
}

func (s *Server) untrackConn(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// closeAllConns unblocks every session goroutine still waiting on a read.
func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
}
