package bot

import (
	"sync"

	"gitlab.com/yelinaung/expense-client/internal/session"
)

// SessionStore keeps one controller per Telegram chat. Sessions live for
// the lifetime of the process; nothing is persisted.
type SessionStore struct {
	api session.API

	mu       sync.Mutex
	sessions map[int64]*session.Controller
}

// NewSessionStore creates an empty store whose controllers use api.
func NewSessionStore(api session.API) *SessionStore {
	return &SessionStore{
		api:      api,
		sessions: make(map[int64]*session.Controller),
	}
}

// Get returns the controller for chatID, creating a logged-out one on first use.
func (s *SessionStore) Get(chatID int64) *session.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctl, ok := s.sessions[chatID]
	if !ok {
		ctl = session.New(s.api)
		s.sessions[chatID] = ctl
	}
	return ctl
}

// Len returns the number of chats seen.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
