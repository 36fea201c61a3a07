package formatter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/desertthunder/syncx/internal/changes"
	"github.com/desertthunder/syncx/internal/shared"
)

// CSVSheet is a positional destination backed by a CSV file whose first row is a header.
//
// Rows are addressed the way a spreadsheet addresses them: 1-based, with the header as row 1. Column 0 holds
// each row's ID. Every write replaces the file atomically.
type CSVSheet struct {
	path   string
	header []string
	mu     sync.Mutex
}

// NewCSVSheet creates a sheet at path with the given header, or a single "id" column when header is empty.
// The file is created on first write.
func NewCSVSheet(path string, header []string) *CSVSheet {
	if len(header) == 0 {
		header = []string{"id"}
	}
	return &CSVSheet{path: path, header: header}
}

func (s *CSVSheet) Path() string { return s.path }

// ReadIDs returns the ID column in row order. A missing file holds no rows.
func (s *CSVSheet) ReadIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row[0])
	}
	return ids, nil
}

// Rows returns the data rows without the header.
func (s *CSVSheet) Rows() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// DeleteRows removes the rows at the given 1-based positions, header counted.
//
// Positions refer to the sheet as it was before the call, so their order does not matter.
func (s *CSVSheet) DeleteRows(ctx context.Context, positions []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.read()
	if err != nil {
		return err
	}

	drop := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		i := pos - 1 - changes.HeaderRows
		if i < 0 || i >= len(rows) {
			return fmt.Errorf("%w: row %d outside data rows 2..%d of %s", shared.ErrInvalidArgument, pos, len(rows)+changes.HeaderRows, s.path)
		}
		drop[i] = struct{}{}
	}

	kept := make([][]string, 0, len(rows))
	for i, row := range rows {
		if _, ok := drop[i]; !ok {
			kept = append(kept, row)
		}
	}
	return s.write(kept)
}

// AppendRows adds rows after the last data row.
func (s *CSVSheet) AppendRows(ctx context.Context, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read()
	if err != nil {
		return err
	}
	return s.write(append(existing, rows...))
}

// Rewrite replaces every data row.
func (s *CSVSheet) Rewrite(ctx context.Context, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(rows)
}

func (s *CSVSheet) read() ([][]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return [][]string{}, nil
		}
		return nil, fmt.Errorf("read sheet %s: %w", s.path, err)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse sheet %s: %v", shared.ErrStorage, s.path, err)
	}
	if len(records) == 0 {
		return [][]string{}, nil
	}
	if !slices.Equal(records[0], s.header) {
		return nil, fmt.Errorf("%w: sheet %s has header %v, want %v", shared.ErrStorage, s.path, records[0], s.header)
	}

	rows := records[1:]
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			return nil, fmt.Errorf("%w: sheet %s row %d has no ID", shared.ErrStorage, s.path, i+1+changes.HeaderRows)
		}
	}
	return rows, nil
}

func (s *CSVSheet) write(rows [][]string) error {
	data, err := ExportToCSV(&Table{Header: s.header, Rows: rows})
	if err != nil {
		return err
	}
	return shared.WriteFileAtomic(s.path, data)
}

// ReadIDList reads one ID per line from path. Blank lines and lines starting with # are skipped.
func ReadIDList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id list: %w", err)
	}
	defer f.Close()

	ids := []string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read id list: %w", err)
	}
	return ids, nil
}

// ReadTable reads a CSV file whose first record is its header. Every row must have the header's width.
func ReadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse table %s: %v", shared.ErrInvalidInput, path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: table %s has no header", shared.ErrInvalidInput, path)
	}
	return &Table{Title: path, Header: records[0], Rows: records[1:]}, nil
}
