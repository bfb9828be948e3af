package jsonstore

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/linechat/linechat/internal/auth"
	"github.com/linechat/linechat/internal/models"
)

const searchLimit = 10

// JSONStore keeps every user record in memory and mirrors the whole map to a
// JSON file after each mutation. The file is the source of truth across
// restarts; the map is the source of truth while running.
//
// One RWMutex guards the map. Session goroutines call into the store
// concurrently, so no method touches users without holding it.
type JSONStore struct {
	mu     sync.RWMutex
	users  map[string]*models.UserRecord
	path   string
	hasher auth.Hasher
	log    *slog.Logger
}

// New loads the users file at path. A missing or empty file starts an empty
// store; a file that fails to parse is discarded and the store starts empty
// as well. The server must always be able to start.
func New(path string, hasher auth.Hasher, log *slog.Logger) (*JSONStore, error) {
	s := &JSONStore{
		users:  map[string]*models.UserRecord{},
		path:   path,
		hasher: hasher,
		log:    log,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return s, nil
	}
	if len(data) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.users); err != nil {
		log.Warn("users file is corrupt, starting empty", "path", path, "error", err)
		s.users = map[string]*models.UserRecord{}
	}
	for name, u := range s.users {
		if u == nil {
			delete(s.users, name)
			continue
		}
		normalize(u)
	}
	return s, nil
}

// normalize fills in set fields a hand-edited or older file may omit.
func normalize(u *models.UserRecord) {
	if u.Friends == nil {
		u.Friends = models.StringSet{}
	}
	if u.IncomingRequests == nil {
		u.IncomingRequests = models.StringSet{}
	}
	if u.OutgoingRequests == nil {
		u.OutgoingRequests = models.StringSet{}
	}
	if u.ChatHistory == nil {
		u.ChatHistory = map[string][]models.Message{}
	}
}

// save rewrites the backing file from the full in-memory map. Callers must
// hold at least the read lock. Write failures are logged, not surfaced; the
// in-memory state stays authoritative for the running process.
func (s *JSONStore) save() {
	data, err := json.MarshalIndent(s.users, "", "    ")
	if err != nil {
		s.log.Error("marshal users", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error("write users file", "path", s.path, "error", err)
	}
}

func (s *JSONStore) Exists(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

func (s *JSONStore) Register(username, password string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[username]; taken {
		return false
	}
	s.users[username] = models.NewUserRecord(s.hasher.Hash(password))
	s.save()
	return true
}

func (s *JSONStore) Authenticate(username, password string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	return ok && s.hasher.Verify(password, u.PasswordHash)
}

func (s *JSONStore) SendFriendRequest(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.users[from]
	receiver, ok2 := s.users[to]
	if !ok || !ok2 || from == to {
		return false
	}
	if sender.Friends.Has(to) {
		return false
	}
	// A pending request in either direction blocks a new one.
	if sender.OutgoingRequests.Has(to) || sender.IncomingRequests.Has(to) {
		return false
	}

	sender.OutgoingRequests.Add(to)
	receiver.IncomingRequests.Add(from)
	s.save()
	return true
}

func (s *JSONStore) AcceptFriendRequest(receiver, sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	recv, ok := s.users[receiver]
	send, ok2 := s.users[sender]
	if !ok || !ok2 || !recv.IncomingRequests.Has(sender) {
		return false
	}

	recv.IncomingRequests.Remove(sender)
	send.OutgoingRequests.Remove(receiver)
	recv.Friends.Add(sender)
	send.Friends.Add(receiver)
	s.save()
	return true
}

func (s *JSONStore) RejectFriendRequest(rejector, sender string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rej, ok := s.users[rejector]
	send, ok2 := s.users[sender]
	if !ok || !ok2 || !rej.IncomingRequests.Has(sender) {
		return false
	}

	rej.IncomingRequests.Remove(sender)
	send.OutgoingRequests.Remove(rejector)
	s.save()
	return true
}

func (s *JSONStore) AreFriends(a, b string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ua, ok := s.users[a]
	return ok && ua.Friends.Has(b)
}

func (s *JSONStore) StoreMessage(sender, receiver, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.users[sender]
	to, ok2 := s.users[receiver]
	if !ok || !ok2 {
		return
	}

	from.AppendMessage(receiver, sender, content)
	to.AppendMessage(sender, sender, content)
	s.save()
}

func (s *JSONStore) IncomingRequests(username string) ([]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, false
	}
	return u.IncomingRequests.Sorted(), true
}

func (s *JSONStore) ChatHistory(username, peer string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil
	}
	history := u.ChatHistory[peer]
	out := make([]models.Message, len(history))
	copy(out, history)
	return out
}

func (s *JSONStore) SearchUsers(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []string
	for name := range s.users {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	if len(matches) > searchLimit {
		matches = matches[:searchLimit]
	}
	return matches
}

func (s *JSONStore) Close() error { return nil }
