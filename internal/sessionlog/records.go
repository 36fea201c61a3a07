package sessionlog

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive      Status = "Active"
	StatusCompleted   Status = "Completed"
	StatusFailed      Status = "Failed"
	StatusInterrupted Status = "Interrupted"
	StatusCrashed     Status = "Crashed"
)

// SessionRecord summarizes one session as recorded in the log.
type SessionRecord struct {
	SessionID string
	Service   Service
	StartedAt time.Time
	EndedAt   time.Time // zero while Active
	Status    Status
	Summary   string
}

// Records folds log entries into one record per session, in order of their start events.
//
// Events for sessions whose start is not in the log are ignored, as is anything after a session's first terminal
// event.
func Records(service Service, entries []Entry) []SessionRecord {
	index := map[string]int{}
	records := []SessionRecord{}

	for _, e := range entries {
		if e.SessionID == nil {
			continue
		}
		id := *e.SessionID
		if e.Event == EventSessionStart {
			if _, ok := index[id]; !ok {
				index[id] = len(records)
				records = append(records, SessionRecord{
					SessionID: id,
					Service:   service,
					StartedAt: e.Timestamp,
					Status:    StatusActive,
				})
			}
			continue
		}

		i, ok := index[id]
		if !ok || records[i].Status != StatusActive {
			continue
		}
		rec := &records[i]
		switch e.Event {
		case EventSessionEnd:
			rec.Status = StatusFailed
			if v, ok := e.Data["success"]; ok && v.Kind() == KindBool && v.AsBool() {
				rec.Status = StatusCompleted
			}
			if v, ok := e.Data["summary"]; ok {
				rec.Summary = v.String()
			}
		case EventSessionInterrupted:
			rec.Status = StatusInterrupted
		case EventSessionCrashed:
			rec.Status = StatusCrashed
		default:
			continue
		}
		rec.EndedAt = e.Timestamp
	}
	return records
}
