package cache

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"

	"github.com/desertthunder/syncx/internal/shared"
)

// Info describes a job's stored state without decoding its records.
type Info struct {
	JobID         string
	CachePath     string
	CacheHeader   []string
	CacheRecords  int
	TornTail      bool
	SnapshotPath  string
	HasSnapshot   bool
	SnapshotTotal int
	SnapshotItems int
	SnapshotSaved time.Time
}

// Exists reports whether any state is stored for the job.
func (i Info) Exists() bool {
	return i.CacheHeader != nil || i.HasSnapshot
}

// Inspect reads the cache and snapshot files for jobID under dir, whatever their record type.
func Inspect(dir, jobID string) (Info, error) {
	name := FileName(jobID)
	info := Info{
		JobID:        jobID,
		CachePath:    filepath.Join(dir, name+".csv"),
		SnapshotPath: filepath.Join(dir, name+".state.json"),
	}

	data, err := os.ReadFile(info.CachePath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return info, fmt.Errorf("read cache %s: %w", info.CachePath, err)
	default:
		if i := bytes.LastIndexByte(data, '\n'); i < len(data)-1 {
			info.TornTail = true
			data = data[:i+1]
		}
		rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			return info, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, info.CachePath, err)
		}
		if len(rows) > 0 {
			info.CacheHeader = rows[0]
			info.CacheRecords = len(rows) - 1
		}
	}

	data, err = os.ReadFile(info.SnapshotPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return info, fmt.Errorf("read snapshot %s: %w", info.SnapshotPath, err)
	default:
		var snap Snapshot[json.RawMessage]
		if err := json.Unmarshal(data, &snap); err != nil {
			return info, fmt.Errorf("decode snapshot %s: %w", info.SnapshotPath, err)
		}
		info.HasSnapshot = true
		info.SnapshotTotal = snap.ExpectedTotal
		info.SnapshotItems = len(snap.Records)
		info.SnapshotSaved = snap.UpdatedAt
	}
	return info, nil
}

// Reset deletes the cache and snapshot for jobID under dir. Missing files are not an error.
func Reset(dir, jobID string) error {
	name := FileName(jobID)
	if err := shared.RemoveIfExists(filepath.Join(dir, name+".csv")); err != nil {
		return err
	}
	return shared.RemoveIfExists(filepath.Join(dir, name+".state.json"))
}
