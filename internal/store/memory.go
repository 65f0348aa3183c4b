// Package store keeps per-session chat transcripts in memory. Nothing here
// survives a restart; it only backs the history endpoint and request logging.
package store

import (
	"sync"
	"time"
)

type Message struct {
	Role    string
	Content string
	At      time.Time
}

type session struct {
	messages  []Message
	updatedAt time.Time
}

type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
	ttl         time.Duration
}

func NewMemoryStore(maxMessages int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*session),
		maxMessages: maxMessages,
		ttl:         ttl,
	}
}

func (m *MemoryStore) Append(sessionID string, msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || m.expiredLocked(s) {
		s = &session{}
		m.sessions[sessionID] = s
	}
	s.messages = append(s.messages, msg)
	s.updatedAt = time.Now()
	m.trimLocked(s)
}

// Get returns a copy of the transcript, or nil if the session is unknown or
// has expired.
func (m *MemoryStore) Get(sessionID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	if m.expiredLocked(s) {
		delete(m.sessions, sessionID)
		return nil
	}
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (m *MemoryStore) Clear(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *MemoryStore) expiredLocked(s *session) bool {
	return m.ttl > 0 && time.Since(s.updatedAt) > m.ttl
}

func (m *MemoryStore) trimLocked(s *session) {
	if m.maxMessages <= 0 {
		return
	}
	if len(s.messages) > m.maxMessages {
		s.messages = s.messages[len(s.messages)-m.maxMessages:]
	}
}
