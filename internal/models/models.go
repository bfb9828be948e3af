package models

import (
	"encoding/json"
	"sort"
)

// Message is a single stored chat message. The JSON field names are part of
// the persisted file format and must not change.
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// UserRecord holds everything the server knows about one account: the
// password digest, the friend graph, and per-peer chat history. The JSON
// layout mirrors the on-disk users file, which is keyed by username.
type UserRecord struct {
	PasswordHash     string               `json:"passwordHash"`
	Friends          StringSet            `json:"friends"`
	IncomingRequests StringSet            `json:"incomingRequests"`
	OutgoingRequests StringSet            `json:"outgoingRequests"`
	ChatHistory      map[string][]Message `json:"chatHistory"`
}

func NewUserRecord(passwordHash string) *UserRecord {
	return &UserRecord{
		PasswordHash:     passwordHash,
		Friends:          StringSet{},
		IncomingRequests: StringSet{},
		OutgoingRequests: StringSet{},
		ChatHistory:      map[string][]Message{},
	}
}

// AppendMessage records a message in this user's history with the given peer.
func (u *UserRecord) AppendMessage(peer, sender, content string) {
	if u.ChatHistory == nil {
		u.ChatHistory = map[string][]Message{}
	}
	u.ChatHistory[peer] = append(u.ChatHistory[peer], Message{Sender: sender, Content: content})
}

// StringSet is a set of usernames persisted as a JSON array.
type StringSet map[string]struct{}

func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s StringSet) Add(v string)    { s[v] = struct{}{} }
func (s StringSet) Remove(v string) { delete(s, v) }

// Sorted returns the members in lexical order for stable output.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	set := StringSet{}
	for _, m := range members {
		set.Add(m)
	}
	*s = set
	return nil
}
