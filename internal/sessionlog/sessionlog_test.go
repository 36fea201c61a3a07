package sessionlog

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(ts, event, session string) string {
	sid := "null"
	if session != "" {
		sid = fmt.Sprintf("%q", session)
	}
	return fmt.Sprintf(`{"timestamp":%q,"level":"info","event":%q,"sessionId":%s,"data":null}`, ts, event, sid)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestManager(t *testing.T, ids ...string) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	c := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.Local)}
	next := 0
	m := NewManager(ManagerOpts{
		Dir: dir,
		Now: c.now,
		NewID: func() string {
			id := ids[next%len(ids)]
			next++
			return id
		},
	})
	return m, dir
}

func TestParseService(t *testing.T) {
	svc, err := ParseService(" Discogs ")
	require.NoError(t, err)
	assert.Equal(t, Discogs, svc)

	_, err = ParseService("spotify")
	assert.Error(t, err)
}

func TestEntryJSON(t *testing.T) {
	id := "abcd1234"
	in := Entry{
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local),
		Level:     LevelWarn,
		Event:     "ItemSkipped",
		SessionID: &id,
		Data: map[string]Value{
			"reason": String("not found"),
			"index":  Int(41),
			"retry":  Bool(false),
			"ids":    List("a", "b"),
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp":"2026/01/02 03:04:05"`)
	assert.Contains(t, string(data), `"sessionId":"abcd1234"`)

	out, err := ParseEntry(string(data))
	require.NoError(t, err)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, in.Event, out.Event)
	assert.Equal(t, in.Level, out.Level)
	assert.Equal(t, "not found", out.Data["reason"].AsString())
	assert.Equal(t, float64(41), out.Data["index"].AsNumber())
	assert.Equal(t, KindBool, out.Data["retry"].Kind())
	assert.Equal(t, []string{"a", "b"}, out.Data["ids"].AsList())

	t.Run("null session and data", func(t *testing.T) {
		data, err := json.Marshal(Entry{Timestamp: time.Now(), Level: LevelInfo, Event: "Boot"})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"sessionId":null`)
		assert.Contains(t, string(data), `"data":null`)
	})
}

func TestParseEntryMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"not json", "garbage"},
		{"truncated", `{"timestamp":"2026/01/02 03:04:05","lev`},
		{"bad timestamp", `{"timestamp":"yesterday","level":"info","event":"SessionStart","sessionId":"x","data":null}`},
		{"missing event", `{"timestamp":"2026/01/02 03:04:05","level":"info","sessionId":"x","data":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEntry(tt.line)
			assert.ErrorIs(t, err, ErrMalformedEntry)
		})
	}
}

func TestParseEntryDropsUnrepresentableData(t *testing.T) {
	e, err := ParseEntry(`{"timestamp":"2026/01/02 03:04:05","level":"info","event":"SessionEnd","sessionId":"x",` +
		`"data":{"success":true,"summary":null,"progress":{"done":3},"mixed":[1,"a"],"tags":["a","b"]}}`)
	require.NoError(t, err)
	assert.Len(t, e.Data, 2)
	assert.True(t, e.Data["success"].AsBool())
	assert.Equal(t, []string{"a", "b"}, e.Data["tags"].AsList())
	_, ok := e.Data["summary"]
	assert.False(t, ok)
}

func TestReplayLog(t *testing.T) {
	const ts = "2026/05/04 09:00:00"

	t.Run("terminal lines with arbitrary data still close their session", func(t *testing.T) {
		lines := []string{
			line(ts, EventSessionStart, "aaaa1111"),
			`{"timestamp":"2026/05/04 09:01:00","level":"warn","event":"SessionInterrupted","sessionId":"aaaa1111","data":{"progress":{"done":3}}}`,
			line(ts, EventSessionStart, "bbbb2222"),
			`{"timestamp":"2026/05/04 09:02:00","level":"info","event":"SessionEnd","sessionId":"bbbb2222","data":{"success":true,"summary":null}}`,
		}
		assert.Empty(t, ReplayLog(lines))
	})

	t.Run("finished sessions are not orphans", func(t *testing.T) {
		lines := []string{
			line(ts, EventSessionStart, "a"),
			line(ts, EventSessionEnd, "a"),
			line(ts, EventSessionStart, "b"),
			line(ts, EventSessionInterrupted, "b"),
			line(ts, EventSessionStart, "c"),
			line(ts, EventSessionCrashed, "c"),
		}
		assert.Empty(t, ReplayLog(lines))
	})

	t.Run("open session is reported once with its first start time", func(t *testing.T) {
		lines := []string{
			line("2026/05/04 08:00:00", EventSessionStart, "x"),
			line(ts, "ItemDone", "x"),
			line("2026/05/04 08:30:00", EventSessionStart, "x"),
			line(ts, EventSessionStart, "y"),
			line(ts, EventSessionEnd, "y"),
		}
		orphans := ReplayLog(lines)
		require.Len(t, orphans, 1)
		assert.Equal(t, "x", orphans[0].SessionID)
		assert.Equal(t, 8, orphans[0].StartedAt.Hour())
		assert.Zero(t, orphans[0].StartedAt.Minute())
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		lines := []string{
			"{not json",
			line(ts, EventSessionStart, "a"),
			"",
			`{"timestamp":"2026/05/04 09:00:00","level":"info","event":"SessionEnd","sess`,
			line(ts, EventSessionStart, "b"),
			line(ts, EventSessionEnd, "b"),
		}
		orphans := ReplayLog(lines)
		require.Len(t, orphans, 1)
		assert.Equal(t, "a", orphans[0].SessionID)
	})

	t.Run("orphans keep start order", func(t *testing.T) {
		lines := []string{
			line(ts, EventSessionStart, "b"),
			line(ts, EventSessionStart, "a"),
			line(ts, EventSessionStart, "c"),
			line(ts, EventSessionEnd, "a"),
		}
		orphans := ReplayLog(lines)
		require.Len(t, orphans, 2)
		assert.Equal(t, "b", orphans[0].SessionID)
		assert.Equal(t, "c", orphans[1].SessionID)
	})
}

func countEvents(t *testing.T, m *Manager, svc Service, event, session string) int {
	t.Helper()
	entries, err := m.ReadEntries(svc)
	require.NoError(t, err)
	n := 0
	for _, e := range entries {
		if e.Event == event && e.HasSession(session) {
			n++
		}
	}
	return n
}

func TestManagerCrashDetection(t *testing.T) {
	m, dir := newTestManager(t, "killed01", "clean001", "next0001", "again001")

	// A previous process started a session and was killed.
	first, err := m.Start(Discogs)
	require.NoError(t, err)
	m.release(first)

	clean, err := m.Start(Discogs)
	require.NoError(t, err)
	clean.End(true, "3 releases")

	next, err := m.Start(Discogs)
	require.NoError(t, err)
	assert.Equal(t, "next0001", next.ID())

	assert.Equal(t, 1, countEvents(t, m, Discogs, EventSessionCrashed, "killed01"))
	assert.Zero(t, countEvents(t, m, Discogs, EventSessionCrashed, "clean001"))

	next.End(false, "quota")
	again, err := m.Start(Discogs)
	require.NoError(t, err)
	again.End(true, "")

	assert.Equal(t, 1, countEvents(t, m, Discogs, EventSessionCrashed, "killed01"), "crash is marked only once")

	data, err := os.ReadFile(m.Path(Discogs))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.DirExists(t, dir)

	history, err := m.History(Discogs)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, StatusCrashed, history[0].Status)
	assert.Equal(t, StatusCompleted, history[1].Status)
	assert.Equal(t, "3 releases", history[1].Summary)
	assert.Equal(t, StatusFailed, history[2].Status)
	assert.Equal(t, StatusCompleted, history[3].Status)
}

func TestManagerCrashDetectionOnCorruptLog(t *testing.T) {
	m, _ := newTestManager(t, "fresh001")

	seed := strings.Join([]string{
		line("2026/05/03 22:00:00", EventSessionStart, "old00001"),
		"\x00\x00garbage",
		line("2026/05/03 22:10:00", EventSessionStart, "done0001"),
		line("2026/05/03 22:11:00", EventSessionEnd, "done0001"),
		`{"timestamp":"2026/05/03 22:12:00","level":"info","event":"Sess`,
	}, "\n")
	require.NoError(t, os.MkdirAll(m.dir, 0o755))
	require.NoError(t, os.WriteFile(m.Path(YouTube), []byte(seed), 0o644))

	s, err := m.Start(YouTube)
	require.NoError(t, err)
	defer s.End(true, "")

	assert.Equal(t, 1, countEvents(t, m, YouTube, EventSessionCrashed, "old00001"))
	assert.Zero(t, countEvents(t, m, YouTube, EventSessionCrashed, "done0001"))
	assert.Equal(t, 1, countEvents(t, m, YouTube, EventSessionStart, "fresh001"), "torn tail does not swallow the next line")
}

func TestManagerSingleActiveSession(t *testing.T) {
	m, _ := newTestManager(t, "one00001", "two00001", "three001")

	s, err := m.Start(LastFM)
	require.NoError(t, err)

	_, err = m.Start(LastFM)
	assert.ErrorIs(t, err, ErrSessionActive)

	other, err := m.Start(Sheets)
	require.NoError(t, err, "other services are independent")
	other.Interrupted(map[string]Value{"processed": Int(5), "total": Int(10)})

	s.End(true, "")
	_, err = m.Start(LastFM)
	assert.NoError(t, err)
}

func TestSessionTerminalOnce(t *testing.T) {
	m, _ := newTestManager(t, "sess0001")

	s, err := m.Start(MusicBrainz)
	require.NoError(t, err)
	s.Event("Lookup", map[string]Value{"mbid": String("123")}, LevelDebug)
	s.Interrupted(nil)
	s.End(true, "ignored")

	assert.Equal(t, StatusInterrupted, s.Record().Status)
	assert.Equal(t, 1, countEvents(t, m, MusicBrainz, EventSessionInterrupted, "sess0001"))
	assert.Zero(t, countEvents(t, m, MusicBrainz, EventSessionEnd, "sess0001"))
	assert.Equal(t, 1, countEvents(t, m, MusicBrainz, "Lookup", "sess0001"))
}

func TestScanSkipsActiveSession(t *testing.T) {
	m, _ := newTestManager(t, "live0001")

	s, err := m.Start(MailTM)
	require.NoError(t, err)

	orphans, err := m.Scan(MailTM)
	require.NoError(t, err)
	assert.Empty(t, orphans)
	assert.Equal(t, StatusActive, s.Record().Status)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	dir := t.TempDir()
	blocker := dir + "/file"
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	m := NewManager(ManagerOpts{Dir: blocker + "/logs"})
	s, err := m.Start(Discogs)
	require.NoError(t, err)
	s.Event("Anything", nil, LevelInfo)
	s.End(true, "")
	assert.Equal(t, StatusCompleted, s.Record().Status)
}
