package sessionlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	json "github.com/goccy/go-json"

	"github.com/desertthunder/syncx/internal/shared"
)

// ErrSessionActive is returned by [Manager.Start] while this process still holds an open session for the service.
var ErrSessionActive = errors.New("a session is already active for this service")

// ManagerOpts configures a [Manager].
type ManagerOpts struct {
	Dir    string           // directory holding one <service>.log per service
	Logger *log.Logger      // receives crash warnings and write failures
	Now    func() time.Time // defaults to [time.Now]
	NewID  func() string    // defaults to [shared.ShortID]
}

// Manager owns the session logs under one directory.
type Manager struct {
	dir    string
	logger *log.Logger
	now    func() time.Time
	newID  func() string

	writeMu sync.Mutex // serializes every line written by this process

	stateMu sync.Mutex
	active  map[Service]*Session
}

// NewManager creates a manager for the logs in opts.Dir.
func NewManager(opts ManagerOpts) *Manager {
	m := &Manager{
		dir:    opts.Dir,
		logger: opts.Logger,
		now:    opts.Now,
		newID:  opts.NewID,
		active: map[Service]*Session{},
	}
	if m.logger == nil {
		m.logger = shared.NewQuietLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = shared.ShortID
	}
	return m
}

// Path returns the log file for service.
func (m *Manager) Path(service Service) string {
	return filepath.Join(m.dir, string(service)+".log")
}

// Start opens a new session for service.
//
// Before the new session is written, the log is replayed and a SessionCrashed event is appended for every earlier
// session that never finished. Crash detection and log writes degrade to warnings; only a session already active
// in this process stops Start.
func (m *Manager) Start(service Service) (*Session, error) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if cur, ok := m.active[service]; ok {
		return nil, fmt.Errorf("%w: %s session %s", ErrSessionActive, service, cur.id)
	}

	m.markCrashed(service, m.detect(service))

	s := &Session{
		m:         m,
		service:   service,
		id:        m.newID(),
		startedAt: m.now(),
		status:    StatusActive,
	}
	m.write(service, s.entry(LevelInfo, EventSessionStart, map[string]Value{
		"service": String(string(service)),
		"pid":     Int(os.Getpid()),
	}))
	m.active[service] = s
	return s, nil
}

// Scan runs crash detection for service without opening a session and returns the sessions it marked crashed.
func (m *Manager) Scan(service Service) ([]Orphan, error) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	lines, err := m.readLines(service)
	if err != nil {
		return nil, err
	}
	orphans := m.excludeActive(service, ReplayLog(lines))
	m.markCrashed(service, orphans)
	return orphans, nil
}

// detect replays the service log, treating an unreadable log as empty.
func (m *Manager) detect(service Service) []Orphan {
	lines, err := m.readLines(service)
	if err != nil {
		m.logger.Warn("crash detection skipped", "service", service, "error", err)
		return nil
	}
	return m.excludeActive(service, ReplayLog(lines))
}

func (m *Manager) excludeActive(service Service, orphans []Orphan) []Orphan {
	cur, ok := m.active[service]
	if !ok {
		return orphans
	}
	kept := orphans[:0]
	for _, o := range orphans {
		if o.SessionID != cur.id {
			kept = append(kept, o)
		}
	}
	return kept
}

func (m *Manager) markCrashed(service Service, orphans []Orphan) {
	detected := m.now()
	for _, o := range orphans {
		id := o.SessionID
		m.write(service, Entry{
			Timestamp: detected,
			Level:     LevelWarn,
			Event:     EventSessionCrashed,
			SessionID: &id,
			Data: map[string]Value{
				"originalStartTime": String(o.StartedAt.Format(TimeFormat)),
				"detectedAt":        String(detected.Format(TimeFormat)),
			},
		})
		m.logger.Warn("previous session did not finish",
			"service", service,
			"session", id,
			"started", o.StartedAt.Format(TimeFormat),
		)
	}
}

// ReadEntries returns every parseable entry in the service log, in file order. A missing log yields none.
func (m *Manager) ReadEntries(service Service) ([]Entry, error) {
	lines, err := m.readLines(service)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if e, err := ParseEntry(line); err == nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// History reconstructs the session records of service from its log.
func (m *Manager) History(service Service) ([]SessionRecord, error) {
	entries, err := m.ReadEntries(service)
	if err != nil {
		return nil, err
	}
	return Records(service, entries), nil
}

func (m *Manager) readLines(service Service) ([]string, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	data, err := os.ReadFile(m.Path(service))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session log: %w", err)
	}
	return strings.Split(string(data), "\n"), nil
}

// write appends one line. Failures are logged and swallowed.
func (m *Manager) write(service Service, e Entry) {
	if err := m.append(service, e); err != nil {
		m.logger.Warn("session log write failed", "service", service, "event", e.Event, "error", err)
	}
}

func (m *Manager) append(service Service, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(m.Path(service), os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 0, len(line)+2)
	if torn, err := endsMidLine(f); err != nil {
		return err
	} else if torn {
		buf = append(buf, '\n')
	}
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("append session log: %w", err)
	}
	return nil
}

// endsMidLine reports whether the file's last byte is not a newline, as left by a killed writer.
func endsMidLine(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat session log: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("read session log tail: %w", err)
	}
	return last[0] != '\n', nil
}

func (m *Manager) release(s *Session) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.active[s.service] == s {
		delete(m.active, s.service)
	}
}
