package store

import "github.com/linechat/linechat/internal/models"

// Store owns the user records: credentials, the friend graph, and per-peer
// chat history. Every mutating call persists synchronously before returning,
// so in-memory state and the backing file never diverge across a restart.
//
// The boolean results are the operation contract: false means the mutation
// was refused and no state changed.
type Store interface {
	// Exists reports whether an account with this username exists.
	Exists(username string) bool

	// Register creates a new account. It fails if the name is taken.
	Register(username, password string) bool

	// Authenticate checks the password against the stored digest.
	Authenticate(username, password string) bool

	// SendFriendRequest records a pending request from one user to another.
	// It fails if either user is missing, from == to, the pair is already
	// friends, or a request is already pending in either direction.
	SendFriendRequest(from, to string) bool

	// AcceptFriendRequest turns a pending request from sender into mutual
	// friendship. Both records update together: friend sets gain the
	// counterpart, request sets drop it.
	AcceptFriendRequest(receiver, sender string) bool

	// RejectFriendRequest drops a pending request from sender on both sides
	// without touching either friend set.
	RejectFriendRequest(rejector, sender string) bool

	// AreFriends reports mutual friendship between two users.
	AreFriends(a, b string) bool

	// StoreMessage appends the message to both parties' history with the
	// other. No-op if either party is missing.
	StoreMessage(sender, receiver, content string)

	// IncomingRequests returns the pending incoming requests for a user in
	// lexical order, or ok=false if the user is unknown.
	IncomingRequests(username string) (requests []string, ok bool)

	// ChatHistory returns the stored messages between a user and a peer in
	// append order, from the user's side of the history.
	ChatHistory(username, peer string) []models.Message

	// SearchUsers returns usernames with the given prefix, in lexical order,
	// capped at a small limit.
	SearchUsers(prefix string) []string

	Close() error
}
