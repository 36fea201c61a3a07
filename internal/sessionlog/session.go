package sessionlog

import (
	"sync"
	"time"
)

// Session is one open run against a service. Its methods are safe for concurrent use.
type Session struct {
	m         *Manager
	service   Service
	id        string
	startedAt time.Time

	mu      sync.Mutex
	status  Status
	summary string
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Service() Service     { return s.service }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Record returns the session's current state.
func (s *Session) Record() SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionRecord{
		SessionID: s.id,
		Service:   s.service,
		StartedAt: s.startedAt,
		Status:    s.status,
		Summary:   s.summary,
	}
}

// Event appends a free-form event to the session. A nil data map is written as null.
func (s *Session) Event(name string, data map[string]Value, level Level) {
	if level == "" {
		level = LevelInfo
	}
	s.m.write(s.service, s.entry(level, name, data))
}

// End closes the session as completed or failed. Only the first terminal call has an effect.
func (s *Session) End(success bool, summary string) {
	status, level := StatusCompleted, LevelInfo
	if !success {
		status, level = StatusFailed, LevelError
	}
	data := map[string]Value{"success": Bool(success)}
	if summary != "" {
		data["summary"] = String(summary)
	}
	s.finish(status, summary, s.entry(level, EventSessionEnd, data))
}

// Interrupted closes the session after a user interruption, recording how far it got.
func (s *Session) Interrupted(progress map[string]Value) {
	s.finish(StatusInterrupted, "", s.entry(LevelWarn, EventSessionInterrupted, progress))
}

func (s *Session) finish(status Status, summary string, e Entry) {
	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		s.m.logger.Debug("session already closed", "session", s.id, "status", s.status, "event", e.Event)
		return
	}
	s.status = status
	s.summary = summary
	s.mu.Unlock()

	s.m.write(s.service, e)
	s.m.release(s)
}

func (s *Session) entry(level Level, event string, data map[string]Value) Entry {
	id := s.id
	return Entry{
		Timestamp: s.m.now(),
		Level:     level,
		Event:     event,
		SessionID: &id,
		Data:      data,
	}
}
