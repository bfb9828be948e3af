package server

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"
)

// HandshakeMagic is the fixed token a client must send as its first line to
// be accepted as a chat client.
const HandshakeMagic = "CHAT_HS_V1"

// HandleConn runs the full lifetime of one client connection: handshake,
// credential lines, then the chat loop. It is the goroutine body the
// acceptor spawns, and the websocket gateway feeds adapted connections into
// the same function.
func (s *Server) HandleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With("session", uuid.NewString(), "remote", conn.RemoteAddr().String())

	// Every termination reason funnels through here: explicit quit,
	// disconnect, or a handshake/auth failure that never registered. In the
	// latter case Remove reports ok=false and nothing is broadcast.
	defer func() {
		if username, ok := s.registry.Remove(conn); ok {
			s.registry.Broadcast(fmt.Sprintf("[Server]: %s has left the chat.", username), nil)
			log.Info("user disconnected", "user", username)
		}
	}()

	r := newLineReader(conn)

	// Handshake: anything but the magic token is fatal, with no error line.
	handshake, ok := r.next()
	if !ok || handshake != HandshakeMagic {
		log.Warn("invalid handshake", "got", handshake)
		return
	}

	username, ok := r.next()
	if !ok {
		return
	}
	password, ok := r.next()
	if !ok {
		return
	}

	// An unknown username registers on first contact; there is no separate
	// signup step. A collision here means we lost a registration race.
	if !s.store.Exists(username) {
		if !s.store.Register(username, password) {
			sendLine(conn, fmt.Sprintf("[Server]: Registration failed for user: %s. Please try again.", username))
			log.Warn("registration failed", "user", username)
			return
		}
		log.Info("new user registered", "user", username)
	}

	if !s.store.Authenticate(username, password) {
		sendLine(conn, "[Server]: Authentication failed. Invalid username or password.")
		log.Warn("authentication failed", "user", username)
		return
	}

	s.registry.Add(conn, username)
	s.registry.Broadcast(fmt.Sprintf("[Server]: %s has joined the chat!", username), conn)
	log.Info("user authenticated", "user", username)

	s.chatLoop(conn, r, username, log)
}

// chatLoop relays lines until the client quits or disconnects. Lines starting
// with "/" go to the command dispatcher; everything else is public chat.
func (s *Server) chatLoop(conn net.Conn, r *lineReader, username string, log *slog.Logger) {
	for {
		line, ok := r.next()
		if !ok {
			return
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.dispatchCommand(conn, username, line); quit {
				return
			}
			continue
		}
		s.registry.Broadcast(fmt.Sprintf("[%s]: %s", username, line), conn)
	}
}
