package cache

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/desertthunder/syncx/internal/shared"
)

var (
	ErrSchemaMismatch = errors.New("cache header does not match record schema")
	ErrCorruptRecord  = errors.New("corrupt cache record")
)

// Store is the append-only per-item cache, one CSV file per job under dir.
//
// A single mutex guards every file; concurrent appends to the same job are not supported by callers.
type Store[T any] struct {
	dir   string
	codec Codec[T]
	mu    sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created on first append.
func NewStore[T any](dir string, codec Codec[T]) *Store[T] {
	return &Store[T]{dir: dir, codec: codec}
}

// Path returns the cache file for jobID.
func (s *Store[T]) Path(jobID string) string {
	return filepath.Join(s.dir, FileName(jobID)+".csv")
}

// Append writes rec as the next line of the job's cache and syncs it to disk before returning.
func (s *Store[T]) Append(jobID string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory %s: %w", s.dir, err)
	}

	path := s.Path(jobID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open cache %s: %w", path, err)
	}
	defer f.Close()

	size, err := trimTornTail(f)
	if err != nil {
		return fmt.Errorf("repair cache %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if size == 0 {
		if err := w.Write(s.codec.Header()); err != nil {
			return fmt.Errorf("encode cache header: %w", err)
		}
	}
	if err := w.Write(s.codec.Encode(rec)); err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}

	// One write call per line keeps a kill from leaving more than one torn line behind.
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append cache %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync cache %s: %w", path, err)
	}
	return f.Close()
}

// trimTornTail truncates a final line left without its newline by an interrupted append and returns the new size.
func trimTornTail(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size == 0 {
		return 0, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return 0, err
	}
	if last[0] == '\n' {
		return size, nil
	}

	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
		return 0, err
	}
	keep := int64(bytes.LastIndexByte(data, '\n') + 1)
	if err := f.Truncate(keep); err != nil {
		return 0, err
	}
	return keep, nil
}

// Load returns every record appended for jobID, in append order.
//
// A missing or empty cache yields an empty slice. A final line without a trailing newline is an append that
// never completed and is ignored.
func (s *Store[T]) Load(jobID string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(jobID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read cache %s: %w", path, err)
	}

	if i := bytes.LastIndexByte(data, '\n'); i < len(data)-1 {
		data = data[:i+1]
	}
	if len(data) == 0 {
		return []T{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", ErrSchemaMismatch, path, err)
	}
	if !slices.Equal(header, s.codec.Header()) {
		return nil, fmt.Errorf("%w: %s has %v", ErrSchemaMismatch, path, header)
	}
	r.FieldsPerRecord = len(header)

	records := []T{}
	for line := 2; ; line++ {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorruptRecord, path, line, err)
		}
		rec, err := s.codec.Decode(fields)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count returns how many records have been appended for jobID.
func (s *Store[T]) Count(jobID string) (int, error) {
	records, err := s.Load(jobID)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Delete removes the job's cache. Call it only once the job has completed successfully.
func (s *Store[T]) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shared.RemoveIfExists(s.Path(jobID))
}
