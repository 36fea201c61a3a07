package cache

import (
	"errors"
	"fmt"
)

// Source identifies which resumption path a [ResumePoint] came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceSnapshot
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceSnapshot:
		return "snapshot"
	default:
		return "none"
	}
}

// ResumePoint is where a job restarts.
type ResumePoint[T any] struct {
	Source  Source
	Records []T
	// Discarded is set when an unreadable or oversized per-item cache was thrown away.
	Discarded bool
}

// Cursor is the index of the first item still to process.
func (r ResumePoint[T]) Cursor() int {
	return len(r.Records)
}

// Resume decides where job jobID restarts, given how many items it is expected to produce.
//
// The per-item cache wins when it is readable and holds no more than expectedTotal records. A cache with a
// foreign header, an undecodable record or too many records is deleted; any other read failure is returned and
// the file is left alone. Otherwise a snapshot with the same expectedTotal is used, and its records are written back into a fresh per-item cache so later
// appends continue from the same cursor. With neither, the job starts from zero.
func Resume[T any](store *Store[T], snapshots *SnapshotStore[T], jobID string, expectedTotal int) (ResumePoint[T], error) {
	var point ResumePoint[T]

	records, err := store.Load(jobID)
	if err != nil && !errors.Is(err, ErrSchemaMismatch) && !errors.Is(err, ErrCorruptRecord) {
		return point, fmt.Errorf("load cache for %s: %w", jobID, err)
	}
	trusted := err == nil && (expectedTotal <= 0 || len(records) <= expectedTotal)
	if trusted && len(records) > 0 {
		return ResumePoint[T]{Source: SourceCache, Records: records}, nil
	}
	if !trusted {
		if err := store.Delete(jobID); err != nil {
			return point, err
		}
		point.Discarded = true
	}

	point.Records = []T{}
	if snapshots == nil {
		return point, nil
	}

	snap, err := snapshots.Load(jobID)
	if err != nil || snap == nil {
		return point, nil
	}
	if snap.ExpectedTotal != expectedTotal || (expectedTotal > 0 && len(snap.Records) > expectedTotal) {
		return point, nil
	}

	for i, rec := range snap.Records {
		if err := store.Append(jobID, rec); err != nil {
			return point, fmt.Errorf("reseed cache from snapshot at record %d: %w", i, err)
		}
	}
	point.Source = SourceSnapshot
	point.Records = snap.Records
	return point, nil
}
