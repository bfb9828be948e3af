package server

import (
	"fmt"
	"net"
	"strings"
)

// dispatchCommand handles a chat-loop line that starts with "/". The return
// value reports whether the session should terminate (/quit). Slash lines
// that match no known command are not errors: they degrade to public chat,
// which is observed behavior that must be preserved.
func (s *Server) dispatchCommand(conn net.Conn, username, line string) (quit bool) {
	fields := strings.Fields(line)

	switch fields[0] {
	case "/quit":
		sendLine(conn, "[Server]: Goodbye!")
		return true

	case "/pending":
		incoming, _ := s.store.IncomingRequests(username)
		if len(incoming) == 0 {
			sendLine(conn, "[Server]: No pending friend requests.")
		} else {
			sendLine(conn, "[Server]: Pending friend requests: "+strings.Join(incoming, ", "))
		}
		return false

	case "/friend":
		s.handleFriend(conn, username, fields)
		return false

	case "/msg":
		s.handleDirectMessage(conn, username, line)
		return false

	default:
		s.registry.Broadcast(fmt.Sprintf("[%s]: %s", username, line), conn)
		return false
	}
}

func (s *Server) handleFriend(conn net.Conn, username string, fields []string) {
	if len(fields) < 3 {
		sendLine(conn, "[Server]: Usage: /friend add|accept|reject <user>")
		return
	}
	target := fields[2]

	switch fields[1] {
	case "add":
		if !s.store.SendFriendRequest(username, target) {
			sendLine(conn, fmt.Sprintf("[Server]: Could not send friend request to %s.", target))
			return
		}
		sendLine(conn, fmt.Sprintf("[Server]: Friend request sent to %s.", target))
		s.registry.SendTo(target, fmt.Sprintf(
			"[Server]: %s sent you a friend request. Type /friend accept %s to accept.", username, username))

	case "accept":
		if !s.store.AcceptFriendRequest(username, target) {
			sendLine(conn, fmt.Sprintf("[Server]: No pending friend request from %s.", target))
			return
		}
		sendLine(conn, fmt.Sprintf("[Server]: You are now friends with %s.", target))
		s.registry.SendTo(target, fmt.Sprintf("[Server]: You are now friends with %s.", username))

	case "reject":
		// The rejected party is deliberately not notified; only accept has a
		// counterpart notice.
		if !s.store.RejectFriendRequest(username, target) {
			sendLine(conn, fmt.Sprintf("[Server]: No pending friend request from %s.", target))
			return
		}
		sendLine(conn, fmt.Sprintf("[Server]: Friend request from %s rejected.", target))

	default:
		sendLine(conn, "[Server]: Usage: /friend add|accept|reject <user>")
	}
}

func (s *Server) handleDirectMessage(conn net.Conn, username, line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 || parts[1] == "" || parts[2] == "" {
		sendLine(conn, "[Server]: Usage: /msg <user> <message>")
		return
	}
	target, text := parts[1], parts[2]

	// Direct messages only flow between established friends, which also
	// rules out unknown recipients: a stranger cannot be a friend.
	if !s.store.AreFriends(username, target) {
		sendLine(conn, "[Server]: You can only message friends.")
		return
	}

	s.store.StoreMessage(username, target, text)
	if !s.registry.SendTo(target, fmt.Sprintf("[%s -> you]: %s", username, text)) {
		sendLine(conn, fmt.Sprintf("[Server]: %s is offline. Message stored.", target))
	}
}
