package cache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type release struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year"`
}

type releaseCodec struct{}

func (releaseCodec) Header() []string { return []string{"id", "title", "year"} }

func (releaseCodec) Encode(r release) []string {
	return []string{r.ID, r.Title, strconv.Itoa(r.Year)}
}

func (releaseCodec) Decode(f []string) (release, error) {
	year, err := strconv.Atoi(f[2])
	if err != nil {
		return release{}, fmt.Errorf("%w: year %q", ErrCorruptRecord, f[2])
	}
	return release{ID: f[0], Title: f[1], Year: year}, nil
}

func sampleReleases(n int) []release {
	out := make([]release, n)
	for i := range out {
		out[i] = release{ID: fmt.Sprintf("r%d", i+1), Title: fmt.Sprintf("Title, \"%d\"", i+1), Year: 1990 + i}
	}
	return out
}

func TestStore(t *testing.T) {
	t.Run("missing cache loads empty", func(t *testing.T) {
		s := NewStore[release](t.TempDir(), releaseCodec{})
		got, err := s.Load("nothing")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("restart after every append sees exactly what was appended", func(t *testing.T) {
		dir := t.TempDir()
		want := sampleReleases(6)

		for i, rec := range want {
			require.NoError(t, NewStore[release](dir, releaseCodec{}).Append("discogs-enrich", rec))

			restarted := NewStore[release](dir, releaseCodec{})
			got, err := restarted.Load("discogs-enrich")
			require.NoError(t, err)
			assert.Equal(t, want[:i+1], got)
		}
	})

	t.Run("header written once", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore[release](dir, releaseCodec{})
		for _, rec := range sampleReleases(3) {
			require.NoError(t, s.Append("job", rec))
		}
		data, err := os.ReadFile(s.Path("job"))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(data), "id,title,year"))
	})

	t.Run("torn final line is ignored and repaired", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore[release](dir, releaseCodec{})
		recs := sampleReleases(3)
		require.NoError(t, s.Append("job", recs[0]))
		require.NoError(t, s.Append("job", recs[1]))

		f, err := os.OpenFile(s.Path("job"), os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("r3,Half writ")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		got, err := s.Load("job")
		require.NoError(t, err)
		assert.Equal(t, recs[:2], got)

		require.NoError(t, s.Append("job", recs[2]))
		got, err = s.Load("job")
		require.NoError(t, err)
		assert.Equal(t, recs, got)
	})

	t.Run("schema mismatch", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore[release](dir, releaseCodec{})
		require.NoError(t, os.WriteFile(s.Path("job"), []byte("id,name\nr1,x\n"), 0o644))

		_, err := s.Load("job")
		assert.ErrorIs(t, err, ErrSchemaMismatch)
	})

	t.Run("corrupt record", func(t *testing.T) {
		dir := t.TempDir()
		s := NewStore[release](dir, releaseCodec{})
		require.NoError(t, os.WriteFile(s.Path("job"), []byte("id,title,year\nr1,x,notayear\n"), 0o644))

		_, err := s.Load("job")
		assert.ErrorIs(t, err, ErrCorruptRecord)
	})

	t.Run("delete", func(t *testing.T) {
		s := NewStore[release](t.TempDir(), releaseCodec{})
		require.NoError(t, s.Append("job", sampleReleases(1)[0]))
		require.NoError(t, s.Delete("job"))
		require.NoError(t, s.Delete("job"), "deleting twice is fine")

		n, err := s.Count("job")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("jobs are independent", func(t *testing.T) {
		s := NewStore[release](t.TempDir(), releaseCodec{})
		recs := sampleReleases(2)
		require.NoError(t, s.Append("a", recs[0]))
		require.NoError(t, s.Append("b", recs[1]))

		a, err := s.Load("a")
		require.NoError(t, err)
		assert.Equal(t, recs[:1], a)
		assert.NotEqual(t, s.Path("a"), s.Path("b"))
	})
}

func TestJSONCodec(t *testing.T) {
	s := NewStore[release](t.TempDir(), JSONCodec[release]{})
	want := sampleReleases(2)
	for _, rec := range want {
		require.NoError(t, s.Append("json-job", rec))
	}
	got, err := s.Load("json-job")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = JSONCodec[release]{}.Decode([]string{"{"})
	assert.ErrorIs(t, err, ErrCorruptRecord)
	_, err = JSONCodec[release]{}.Decode([]string{"a", "b"})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestSnapshotStore(t *testing.T) {
	t.Run("missing snapshot", func(t *testing.T) {
		snaps := NewSnapshotStore[release](t.TempDir())
		snap, err := snaps.Load("job")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run("round trip", func(t *testing.T) {
		snaps := NewSnapshotStore[release](t.TempDir())
		fixed := time.Date(2026, 3, 1, 12, 30, 15, 500, time.UTC)
		snaps.now = func() time.Time { return fixed }

		in := &Snapshot[release]{JobID: "job/1", ExpectedTotal: 10, Records: sampleReleases(3)}
		require.NoError(t, snaps.Save(in))

		out, err := snaps.Load("job/1")
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, "job/1", out.JobID)
		assert.Equal(t, 10, out.ExpectedTotal)
		assert.True(t, fixed.Truncate(time.Second).Equal(out.UpdatedAt))
		assert.Equal(t, in.Records, out.Records)

		require.NoError(t, snaps.Delete("job/1"))
		out, err = snaps.Load("job/1")
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		snaps := NewSnapshotStore[release](dir)
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job"}))
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job", ExpectedTotal: 2}))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "job.state.json", entries[0].Name())
	})
}

func TestResume(t *testing.T) {
	setup := func(t *testing.T) (*Store[release], *SnapshotStore[release]) {
		dir := t.TempDir()
		return NewStore[release](dir, releaseCodec{}), NewSnapshotStore[release](dir)
	}

	t.Run("nothing saved starts from zero", func(t *testing.T) {
		store, snaps := setup(t)
		point, err := Resume(store, snaps, "job", 5)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, point.Source)
		assert.Zero(t, point.Cursor())
	})

	t.Run("per-item cache wins over snapshot", func(t *testing.T) {
		store, snaps := setup(t)
		recs := sampleReleases(3)
		for _, r := range recs {
			require.NoError(t, store.Append("job", r))
		}
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job", ExpectedTotal: 5, Records: recs[:1]}))

		point, err := Resume(store, snaps, "job", 5)
		require.NoError(t, err)
		assert.Equal(t, SourceCache, point.Source)
		assert.Equal(t, 3, point.Cursor())
	})

	t.Run("snapshot used when cache is corrupt and reseeds the cache", func(t *testing.T) {
		store, snaps := setup(t)
		recs := sampleReleases(2)
		require.NoError(t, os.WriteFile(store.Path("job"), []byte("bogus header\n"), 0o644))
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job", ExpectedTotal: 4, Records: recs}))

		point, err := Resume(store, snaps, "job", 4)
		require.NoError(t, err)
		assert.Equal(t, SourceSnapshot, point.Source)
		assert.True(t, point.Discarded)
		assert.Equal(t, recs, point.Records)

		reloaded, err := store.Load("job")
		require.NoError(t, err)
		assert.Equal(t, recs, reloaded)
	})

	t.Run("cache longer than expected total is untrusted", func(t *testing.T) {
		store, snaps := setup(t)
		for _, r := range sampleReleases(4) {
			require.NoError(t, store.Append("job", r))
		}

		point, err := Resume(store, snaps, "job", 2)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, point.Source)
		assert.True(t, point.Discarded)
		_, statErr := os.Stat(store.Path("job"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("unreadable cache is reported and kept", func(t *testing.T) {
		store, snaps := setup(t)
		require.NoError(t, os.MkdirAll(store.Path("job"), 0o755))
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job", ExpectedTotal: 4, Records: sampleReleases(2)}))

		_, err := Resume(store, snaps, "job", 4)
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrSchemaMismatch))
		assert.False(t, errors.Is(err, ErrCorruptRecord))

		info, statErr := os.Stat(store.Path("job"))
		require.NoError(t, statErr)
		assert.True(t, info.IsDir())
	})

	t.Run("undecodable record discards the cache", func(t *testing.T) {
		store, snaps := setup(t)
		body := "id,title,year\nr1,Blue Train,not-a-year\n"
		require.NoError(t, os.WriteFile(store.Path("job"), []byte(body), 0o644))

		point, err := Resume(store, snaps, "job", 4)
		require.NoError(t, err)
		assert.True(t, point.Discarded)
		assert.Equal(t, SourceNone, point.Source)
		_, statErr := os.Stat(store.Path("job"))
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("snapshot with a different expected total is ignored", func(t *testing.T) {
		store, snaps := setup(t)
		require.NoError(t, snaps.Save(&Snapshot[release]{JobID: "job", ExpectedTotal: 9, Records: sampleReleases(2)}))

		point, err := Resume(store, snaps, "job", 4)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, point.Source)
		assert.Zero(t, point.Cursor())
	})

	t.Run("nil snapshot store", func(t *testing.T) {
		store, _ := setup(t)
		point, err := Resume[release](store, nil, "job", 3)
		require.NoError(t, err)
		assert.Equal(t, SourceNone, point.Source)
	})
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "youtube%2FPL123", FileName("youtube/PL123"))
	assert.Equal(t, "%20a%20b%3Ac%20", FileName(" a b:c "))
	assert.Equal(t, "%", FileName(""))
	assert.Equal(t, "job-1.v2", FileName("job-1.v2"))
	assert.Equal(t, "100%25", FileName("100%"))

	t.Run("distinct ids never share files", func(t *testing.T) {
		ids := []string{"a/b", "a_b", "a:b", "a%2Fb", "a b", "a\\b", "", "%", "_"}
		seen := map[string]string{}
		for _, id := range ids {
			name := FileName(id)
			prev, dup := seen[name]
			assert.False(t, dup, "%q and %q both map to %q", prev, id, name)
			seen[name] = id
		}
	})

	t.Run("jobs with similar ids stay independent", func(t *testing.T) {
		s := NewStore[release](t.TempDir(), releaseCodec{})
		recs := sampleReleases(2)
		require.NoError(t, s.Append("discogs/2024", recs[0]))
		require.NoError(t, s.Append("discogs_2024", recs[1]))

		got, err := s.Load("discogs/2024")
		require.NoError(t, err)
		assert.Equal(t, recs[:1], got)
	})
}

func TestInspect(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		info, err := Inspect(t.TempDir(), "empty")
		require.NoError(t, err)
		assert.False(t, info.Exists())
	})

	t.Run("reports cache and snapshot without a codec", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore[release](dir, releaseCodec{})
		for _, rec := range sampleReleases(3) {
			require.NoError(t, store.Append("job", rec))
		}
		require.NoError(t, NewSnapshotStore[release](dir).Save(&Snapshot[release]{
			JobID:         "job",
			ExpectedTotal: 10,
			Records:       sampleReleases(2),
		}))

		f, err := os.OpenFile(store.Path("job"), os.O_APPEND|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		_, err = f.WriteString("r9,partial")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		info, err := Inspect(dir, "job")
		require.NoError(t, err)
		assert.True(t, info.Exists())
		assert.Equal(t, []string{"id", "title", "year"}, info.CacheHeader)
		assert.Equal(t, 3, info.CacheRecords)
		assert.True(t, info.TornTail)
		assert.True(t, info.HasSnapshot)
		assert.Equal(t, 10, info.SnapshotTotal)
		assert.Equal(t, 2, info.SnapshotItems)
		assert.False(t, info.SnapshotSaved.IsZero())

		require.NoError(t, Reset(dir, "job"))
		require.NoError(t, Reset(dir, "job"))
		info, err = Inspect(dir, "job")
		require.NoError(t, err)
		assert.False(t, info.Exists())
	})
}
