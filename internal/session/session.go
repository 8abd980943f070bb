package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMaxHistory = 10

// Entry is one recorded conversation turn. Immutable once appended.
type Entry struct {
	UserMessage       string    `json:"user"`
	AssistantResponse string    `json:"assistant"`
	Timestamp         time.Time `json:"timestamp"`
	Citations         []string  `json:"citations"`
}

// Stats summarizes one session.
type Stats struct {
	SessionID          string    `json:"session_id"`
	TotalConversations int       `json:"total_conversations"`
	CreatedAt          time.Time `json:"created_at"`
	LastActivity       time.Time `json:"last_activity"`
	UniqueCitations    int       `json:"unique_citations"`
}

type state struct {
	createdAt  time.Time
	lastActive time.Time
	entries    []Entry
}

// Manager owns all sessions: a bounded, ordered conversation log per
// opaque session identifier.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	sessions   map[string]*state
	now        func() time.Time
}

func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	return &Manager{
		maxHistory: maxHistory,
		sessions:   make(map[string]*state),
		now:        time.Now,
	}
}

// Create allocates a fresh session with an empty history.
func (m *Manager) Create() string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sessions[id] = &state{createdAt: now, lastActive: now}
	return id
}

func (m *Manager) Exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// Append records a turn, creating the session implicitly when unknown.
// Entries beyond the history cap are evicted oldest first.
func (m *Manager) Append(id, userMessage, assistantResponse string, citations []string) {
	if citations == nil {
		citations = []string{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	st, ok := m.sessions[id]
	if !ok {
		st = &state{createdAt: now}
		m.sessions[id] = st
	}
	st.entries = append(st.entries, Entry{
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		Timestamp:         now,
		Citations:         citations,
	})
	if len(st.entries) > m.maxHistory {
		st.entries = st.entries[len(st.entries)-m.maxHistory:]
	}
	st.lastActive = now
}

// History returns the session's entries, most recent last, capped at limit
// when limit > 0. An unknown session yields an empty result.
func (m *Manager) History(id string, limit int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return nil
	}
	entries := st.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]Entry(nil), entries...)
}

// Clear resets a session's history and refreshes its activity timestamp.
// Unknown sessions are a no-op.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return
	}
	st.entries = nil
	st.lastActive = m.now()
}

// Expire removes every session whose last activity is older than maxAge and
// returns the count removed. Callers trigger this periodically; it is never
// run automatically.
func (m *Manager) Expire(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0
	for id, st := range m.sessions {
		if st.lastActive.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats reports counters for one session.
func (m *Manager) Stats(id string) (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[id]
	if !ok {
		return Stats{}, false
	}
	unique := make(map[string]bool)
	for _, e := range st.entries {
		for _, c := range e.Citations {
			unique[c] = true
		}
	}
	return Stats{
		SessionID:          id,
		TotalConversations: len(st.entries),
		CreatedAt:          st.createdAt,
		LastActivity:       st.lastActive,
		UniqueCitations:    len(unique),
	}, true
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
