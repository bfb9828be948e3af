package server

import (
	"log/slog"
	"net"

	"github.com/linechat/linechat/internal/store"
)

// Server accepts TCP chat connections and runs one session goroutine per
// client. There is no concurrency cap and no idle timeout: a connection that
// never sends a full line holds its goroutine until the peer goes away.
type Server struct {
	store    store.Store
	registry *Registry
	log      *slog.Logger
}

func New(st store.Store, log *slog.Logger) *Server {
	return &Server{
		store:    st,
		registry: NewRegistry(),
		log:      log,
	}
}

// ListenAndServe binds addr and accepts connections until the listener
// fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	return s.Serve(ln)
}

// Serve accepts connections from an existing listener. It returns once
// Accept fails, which is how tests shut the server down: close the listener.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("server listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.HandleConn(conn)
	}
}
