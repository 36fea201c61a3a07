// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"testing"
	"time"
)

// MemorySheet is an in-memory positional destination. Row 1 is an implicit header.
type MemorySheet struct {
	mu    sync.Mutex
	rows  [][]string
	calls []string

	// FailNext makes the next call of the named method ("ReadIDs", "DeleteRows", "AppendRows", "Rewrite")
	// return the queued errors one at a time.
	FailNext map[string][]error
}

// NewMemorySheet creates a sheet holding one row per ID.
func NewMemorySheet(ids ...string) *MemorySheet {
	s := &MemorySheet{FailNext: map[string][]error{}}
	for _, id := range ids {
		s.rows = append(s.rows, []string{id})
	}
	return s
}

func (s *MemorySheet) fail(method string) error {
	s.calls = append(s.calls, method)
	queue := s.FailNext[method]
	if len(queue) == 0 {
		return nil
	}
	s.FailNext[method] = queue[1:]
	return queue[0]
}

func (s *MemorySheet) ReadIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ReadIDs"); err != nil {
		return nil, err
	}
	ids := make([]string, len(s.rows))
	for i, row := range s.rows {
		ids[i] = row[0]
	}
	return ids, nil
}

// DeleteRows deletes one row at a time in the order given, as a spreadsheet API would.
func (s *MemorySheet) DeleteRows(ctx context.Context, positions []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteRows"); err != nil {
		return err
	}
	for _, pos := range positions {
		i := pos - 2
		if i < 0 || i >= len(s.rows) {
			return errors.New("row out of range")
		}
		s.rows = slices.Delete(s.rows, i, i+1)
	}
	return nil
}

func (s *MemorySheet) AppendRows(ctx context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AppendRows"); err != nil {
		return err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *MemorySheet) Rewrite(ctx context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("Rewrite"); err != nil {
		return err
	}
	s.rows = slices.Clone(rows)
	return nil
}

// IDs returns the current ID column.
func (s *MemorySheet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.rows))
	for i, row := range s.rows {
		ids[i] = row[0]
	}
	return ids
}

// Calls returns the method names invoked so far, failed attempts included.
func (s *MemorySheet) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// NoWait is a backoff wait that returns at once unless ctx is done.
func NoWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("File should not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
