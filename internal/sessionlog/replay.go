package sessionlog

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Orphan is a session that started but never reached a terminal event.
type Orphan struct {
	SessionID string
	StartedAt time.Time
}

// IsTerminal reports whether event closes a session.
func IsTerminal(event string) bool {
	switch event {
	case EventSessionEnd, EventSessionInterrupted, EventSessionCrashed:
		return true
	}
	return false
}

// lifecycle is the part of a log line that crash detection reads. Data is never decoded, so any payload a
// terminal line carries still closes its session.
type lifecycle struct {
	Timestamp string          `json:"timestamp"`
	Event     string          `json:"event"`
	SessionID *string         `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// ReplayLog scans log lines from the start and returns the open sessions, in the order they started.
//
// A session's start time is the first SessionStart seen for it. Lines that do not parse are skipped.
func ReplayLog(lines []string) []Orphan {
	started := map[string]time.Time{}
	var order []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e lifecycle
		if err := json.Unmarshal([]byte(line), &e); err != nil || e.SessionID == nil {
			continue
		}
		id := *e.SessionID
		switch {
		case e.Event == EventSessionStart:
			ts, err := time.ParseInLocation(TimeFormat, e.Timestamp, time.Local)
			if err != nil {
				continue
			}
			if _, ok := started[id]; !ok {
				started[id] = ts
				order = append(order, id)
			}
		case IsTerminal(e.Event):
			delete(started, id)
		}
	}

	orphans := []Orphan{}
	for _, id := range order {
		if at, ok := started[id]; ok {
			orphans = append(orphans, Orphan{SessionID: id, StartedAt: at})
			delete(started, id)
		}
	}
	return orphans
}
