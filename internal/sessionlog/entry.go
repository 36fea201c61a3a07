package sessionlog

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// TimeFormat is the layout of [Entry.Timestamp] on disk, in local time.
const TimeFormat = "2006/01/02 15:04:05"

// Event names with lifecycle meaning.
const (
	EventSessionStart       = "SessionStart"
	EventSessionEnd         = "SessionEnd"
	EventSessionInterrupted = "SessionInterrupted"
	EventSessionCrashed     = "SessionCrashed"
)

// Level is the severity written with an entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// ErrMalformedEntry is returned by [ParseEntry] for lines that are not a valid entry.
var ErrMalformedEntry = errors.New("malformed log entry")

// Entry is one line of a service log.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Event     string
	SessionID *string
	Data      map[string]Value
}

type wireEntry struct {
	Timestamp string           `json:"timestamp"`
	Level     Level            `json:"level"`
	Event     string           `json:"event"`
	SessionID *string          `json:"sessionId"`
	Data      map[string]Value `json:"data"`
}

// HasSession reports whether the entry belongs to session id.
func (e Entry) HasSession(id string) bool {
	return e.SessionID != nil && *e.SessionID == id
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Timestamp: e.Timestamp.Local().Format(TimeFormat),
		Level:     e.Level,
		Event:     e.Event,
		SessionID: e.SessionID,
		Data:      e.Data,
	})
}

// UnmarshalJSON decodes an entry. Data values that are not a string, number, bool or list of strings (nested
// objects, nulls, mixed lists) are dropped rather than failing the whole line.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w struct {
		Timestamp string                     `json:"timestamp"`
		Level     Level                      `json:"level"`
		Event     string                     `json:"event"`
		SessionID *string                    `json:"sessionId"`
		Data      map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.ParseInLocation(TimeFormat, w.Timestamp, time.Local)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", w.Timestamp, err)
	}

	var values map[string]Value
	if w.Data != nil {
		values = make(map[string]Value, len(w.Data))
		for k, raw := range w.Data {
			var v Value
			if err := v.UnmarshalJSON(raw); err != nil {
				continue
			}
			values[k] = v
		}
	}
	*e = Entry{Timestamp: ts, Level: w.Level, Event: w.Event, SessionID: w.SessionID, Data: values}
	return nil
}

// ParseEntry decodes a single log line.
func ParseEntry(line string) (Entry, error) {
	var e Entry
	line = strings.TrimSpace(line)
	if line == "" {
		return e, fmt.Errorf("%w: empty line", ErrMalformedEntry)
	}
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	if e.Event == "" {
		return e, fmt.Errorf("%w: missing event", ErrMalformedEntry)
	}
	return e, nil
}

// ValueKind tags the variant held by a [Value].
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindList
)

// Value is an entry data value: a string, a number, a bool or a list of strings.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []string
}

func String(s string) Value       { return Value{kind: KindString, str: s} }
func Number(n float64) Value      { return Value{kind: KindNumber, num: n} }
func Int(n int) Value             { return Value{kind: KindNumber, num: float64(n)} }
func Bool(b bool) Value           { return Value{kind: KindBool, b: b} }
func List(items ...string) Value  { return Value{kind: KindList, list: append([]string{}, items...)} }
func (v Value) Kind() ValueKind   { return v.kind }
func (v Value) AsString() string  { return v.str }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsBool() bool      { return v.b }
func (v Value) AsList() []string  { return v.list }

// String renders the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	default:
		return v.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrMalformedEntry)
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = List(list...)
	case 'n':
		return fmt.Errorf("%w: null value", ErrMalformedEntry)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
	}
	return nil
}
