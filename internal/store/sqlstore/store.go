package sqlstore

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/linechat/linechat/internal/auth"
	"github.com/linechat/linechat/internal/models"
)

const searchLimit = 10

// SQLStore is the SQLite-backed user store. Unlike the JSON store there is no
// in-memory mirror: every operation reads and writes the database, and
// mutations that span two users run in one transaction so the symmetric
// friend invariants hold even if the process dies mid-operation.
type SQLStore struct {
	db     *sql.DB
	hasher auth.Hasher
}

func New(dataSourceName string, hasher auth.Hasher) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single pooled connection avoids
	// busy errors under concurrent sessions and keeps ":memory:"
	// databases from splitting across pool connections.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, hasher: hasher}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS friends (
		username TEXT NOT NULL,
		friend TEXT NOT NULL,
		PRIMARY KEY (username, friend),
		FOREIGN KEY (username) REFERENCES users(username),
		FOREIGN KEY (friend) REFERENCES users(username)
	);

	CREATE TABLE IF NOT EXISTS friend_requests (
		from_user TEXT NOT NULL,
		to_user TEXT NOT NULL,
		PRIMARY KEY (from_user, to_user),
		FOREIGN KEY (from_user) REFERENCES users(username),
		FOREIGN KEY (to_user) REFERENCES users(username)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (sender) REFERENCES users(username),
		FOREIGN KEY (receiver) REFERENCES users(username)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// querier lets the EXISTS helpers run against the pool or inside a
// transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func (s *SQLStore) Exists(username string) bool {
	return userExists(s.db, username)
}

func userExists(q querier, username string) bool {
	var exists bool
	err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)", username).Scan(&exists)
	return err == nil && exists
}

func (s *SQLStore) Register(username, password string) bool {
	_, err := s.db.Exec("INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, s.hasher.Hash(password))
	return err == nil
}

func (s *SQLStore) Authenticate(username, password string) bool {
	var digest string
	err := s.db.QueryRow("SELECT password_hash FROM users WHERE username = ?", username).Scan(&digest)
	return err == nil && s.hasher.Verify(password, digest)
}

func (s *SQLStore) SendFriendRequest(from, to string) bool {
	if from == to {
		return false
	}

	// Guards and insert share one transaction so two racing requests
	// (including A->B against B->A) cannot both pass the pending checks
	// and leave mutual pending entries.
	tx, err := s.db.Begin()
	if err != nil {
		return false
	}
	defer tx.Rollback()

	if !userExists(tx, from) || !userExists(tx, to) {
		return false
	}
	if friendsExist(tx, from, to) || requestPending(tx, from, to) || requestPending(tx, to, from) {
		return false
	}
	if _, err := tx.Exec("INSERT INTO friend_requests (from_user, to_user) VALUES (?, ?)", from, to); err != nil {
		return false
	}
	return tx.Commit() == nil
}

func (s *SQLStore) AcceptFriendRequest(receiver, sender string) bool {
	tx, err := s.db.Begin()
	if err != nil {
		return false
	}
	defer tx.Rollback()

	// The delete doubles as the pending check: zero rows affected means no
	// matching request, so a racing second accept (or a reject that got
	// there first) fails here instead of committing against stale state.
	res, err := tx.Exec("DELETE FROM friend_requests WHERE from_user = ? AND to_user = ?", sender, receiver)
	if err != nil {
		return false
	}
	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		return false
	}
	if _, err := tx.Exec("INSERT INTO friends (username, friend) VALUES (?, ?), (?, ?)",
		receiver, sender, sender, receiver); err != nil {
		return false
	}
	return tx.Commit() == nil
}

func (s *SQLStore) RejectFriendRequest(rejector, sender string) bool {
	res, err := s.db.Exec("DELETE FROM friend_requests WHERE from_user = ? AND to_user = ?", sender, rejector)
	if err != nil {
		return false
	}
	rows, err := res.RowsAffected()
	return err == nil && rows > 0
}

func (s *SQLStore) AreFriends(a, b string) bool {
	return friendsExist(s.db, a, b)
}

func friendsExist(q querier, a, b string) bool {
	var exists bool
	err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM friends WHERE username = ? AND friend = ?)", a, b).Scan(&exists)
	return err == nil && exists
}

func requestPending(q querier, from, to string) bool {
	var exists bool
	err := q.QueryRow("SELECT EXISTS(SELECT 1 FROM friend_requests WHERE from_user = ? AND to_user = ?)", from, to).Scan(&exists)
	return err == nil && exists
}

func (s *SQLStore) StoreMessage(sender, receiver, content string) {
	if !s.Exists(sender) || !s.Exists(receiver) {
		return
	}
	s.db.Exec("INSERT INTO messages (sender, receiver, content) VALUES (?, ?, ?)", sender, receiver, content)
}

func (s *SQLStore) IncomingRequests(username string) ([]string, bool) {
	if !s.Exists(username) {
		return nil, false
	}

	rows, err := s.db.Query("SELECT from_user FROM friend_requests WHERE to_user = ? ORDER BY from_user", username)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var requests []string
	for rows.Next() {
		var from string
		if err := rows.Scan(&from); err != nil {
			return nil, false
		}
		requests = append(requests, from)
	}
	return requests, true
}

func (s *SQLStore) ChatHistory(username, peer string) []models.Message {
	rows, err := s.db.Query(`
		SELECT sender, content FROM messages
		WHERE (sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)
		ORDER BY id ASC
	`, username, peer, peer, username)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.Sender, &m.Content); err != nil {
			return nil
		}
		messages = append(messages, m)
	}
	return messages
}

func (s *SQLStore) SearchUsers(prefix string) []string {
	rows, err := s.db.Query("SELECT username FROM users WHERE username LIKE ? ORDER BY username LIMIT ?",
		prefix+"%", searchLimit)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil
		}
		users = append(users, name)
	}
	return users
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
