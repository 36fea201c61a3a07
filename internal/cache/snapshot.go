package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/syncx/internal/shared"
)

// Snapshot is the full state of a job at one point in time.
type Snapshot[T any] struct {
	JobID         string    `json:"job_id"`
	ExpectedTotal int       `json:"expected_total"`
	UpdatedAt     time.Time `json:"updated_at"`
	Records       []T       `json:"records"`
}

// SnapshotStore saves one JSON snapshot per job under dir.
type SnapshotStore[T any] struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewSnapshotStore creates a snapshot store rooted at dir.
func NewSnapshotStore[T any](dir string) *SnapshotStore[T] {
	return &SnapshotStore[T]{dir: dir, now: time.Now}
}

// Path returns the snapshot file for jobID.
func (s *SnapshotStore[T]) Path(jobID string) string {
	return filepath.Join(s.dir, FileName(jobID)+".state.json")
}

// Save stamps UpdatedAt and atomically replaces the job's snapshot.
func (s *SnapshotStore[T]) Save(snap *Snapshot[T]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Records == nil {
		snap.Records = []T{}
	}
	snap.UpdatedAt = s.now().UTC().Truncate(time.Second)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.JobID, err)
	}
	data = append(data, '\n')
	return shared.WriteFileAtomic(s.Path(snap.JobID), data)
}

// Load returns the saved snapshot for jobID, or nil when there is none.
func (s *SnapshotStore[T]) Load(jobID string) (*Snapshot[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(jobID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var snap Snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if snap.Records == nil {
		snap.Records = []T{}
	}
	return &snap, nil
}

// Delete removes the job's snapshot; a missing snapshot is not an error.
func (s *SnapshotStore[T]) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shared.RemoveIfExists(s.Path(jobID))
}
