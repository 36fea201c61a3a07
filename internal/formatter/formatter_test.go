package formatter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/desertthunder/syncx/internal/changes"
	"github.com/desertthunder/syncx/internal/shared"
	th "github.com/desertthunder/syncx/internal/testing"
)

func sampleTable() *Table {
	return &Table{
		Title:  "Sync history",
		Header: []string{"ID", "Target", "Change"},
		Rows: [][]string{
			{"1", "sheet.csv", "+2 -1"},
			{"2", "other|file.csv", "no changes"},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTable())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)
		if !strings.HasPrefix(output, "ID,Target,Change\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,sheet.csv,+2 -1") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if strings.Contains(output, "Sync history") {
			t.Error("CSV should not include the title")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleTable())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)
		if !strings.Contains(output, "# Sync history") {
			t.Error("Markdown missing title")
		}
		if !strings.Contains(output, "| ID | Target | Change |") {
			t.Errorf("Markdown missing header row, got: %s", output)
		}
		if !strings.Contains(output, "| --- | --- | --- |") {
			t.Errorf("Markdown missing separator, got: %s", output)
		}
		if !strings.Contains(output, `other\|file.csv`) {
			t.Error("Markdown should escape pipes in cells")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleTable())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if lines[0] != "Sync history" {
			t.Errorf("expected title first, got %q", lines[0])
		}
		if lines[2] != "ID  Target          Change" {
			t.Errorf("unexpected header line %q", lines[2])
		}
		if lines[3] != "1   sheet.csv       +2 -1" {
			t.Errorf("unexpected first row %q", lines[3])
		}
	})

	t.Run("Render", func(t *testing.T) {
		for _, format := range []string{"csv", "md", "markdown", "text", "txt", ""} {
			if _, err := Render(sampleTable(), format); err != nil {
				t.Errorf("Render(%q) failed: %v", format, err)
			}
		}
		if _, err := Render(sampleTable(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for xml, got %v", err)
		}
	})
}

func rowsFor(ids ...string) [][]string {
	rows := make([][]string, len(ids))
	for i, id := range ids {
		rows[i] = []string{id, "title " + id}
	}
	return rows
}

func TestCSVSheet(t *testing.T) {
	ctx := context.Background()
	header := []string{"id", "title"}

	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "sheet.csv"), header)
		ids, err := sheet.ReadIDs(ctx)
		if err != nil {
			t.Fatalf("ReadIDs failed: %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("expected no ids, got %v", ids)
		}
	})

	t.Run("AppendAndRead", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "sheet.csv"), header)
		if err := sheet.AppendRows(ctx, rowsFor("a", "b")); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}
		if err := sheet.AppendRows(ctx, rowsFor("c")); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}

		ids, err := sheet.ReadIDs(ctx)
		if err != nil {
			t.Fatalf("ReadIDs failed: %v", err)
		}
		if !slices.Equal(ids, []string{"a", "b", "c"}) {
			t.Errorf("unexpected ids %v", ids)
		}

		content := th.MustReadFile(t, sheet.Path())
		if strings.Count(content, "id,title") != 1 {
			t.Errorf("header should appear once, got:\n%s", content)
		}
	})

	t.Run("DeleteRowsUsesSheetPositions", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "sheet.csv"), header)
		if err := sheet.Rewrite(ctx, rowsFor("a", "b", "c", "d")); err != nil {
			t.Fatalf("Rewrite failed: %v", err)
		}

		cs := changes.Detect([]string{"a", "d"}, []string{"a", "b", "c", "d"})
		if err := sheet.DeleteRows(ctx, cs.DeletionOrder()); err != nil {
			t.Fatalf("DeleteRows failed: %v", err)
		}

		ids, err := sheet.ReadIDs(ctx)
		if err != nil {
			t.Fatalf("ReadIDs failed: %v", err)
		}
		if !slices.Equal(ids, []string{"a", "d"}) {
			t.Errorf("unexpected ids after delete %v", ids)
		}
	})

	t.Run("DeleteRowsRejectsHeaderAndOutOfRange", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "sheet.csv"), header)
		if err := sheet.Rewrite(ctx, rowsFor("a")); err != nil {
			t.Fatalf("Rewrite failed: %v", err)
		}
		for _, pos := range []int{1, 3} {
			if err := sheet.DeleteRows(ctx, []int{pos}); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("DeleteRows(%d): expected ErrInvalidArgument, got %v", pos, err)
			}
		}
	})

	t.Run("HeaderMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sheet.csv")
		if err := os.WriteFile(path, []byte("name,year\nx,1999\n"), 0o644); err != nil {
			t.Fatalf("failed to seed sheet: %v", err)
		}
		sheet := NewCSVSheet(path, header)
		if _, err := sheet.ReadIDs(ctx); !errors.Is(err, shared.ErrStorage) {
			t.Errorf("expected ErrStorage, got %v", err)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "sheet.csv"), header)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := sheet.AppendRows(cctx, rowsFor("a")); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if _, err := os.Stat(sheet.Path()); !os.IsNotExist(err) {
			t.Error("cancelled append should not create the file")
		}
	})

	t.Run("DefaultHeader", func(t *testing.T) {
		sheet := NewCSVSheet(filepath.Join(t.TempDir(), "ids.csv"), nil)
		if err := sheet.AppendRows(ctx, [][]string{{"x"}}); err != nil {
			t.Fatalf("AppendRows failed: %v", err)
		}
		if got := th.MustReadFile(t, sheet.Path()); got != "id\nx\n" {
			t.Errorf("unexpected content %q", got)
		}
	})
}

func TestReadIDList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ids.txt")
	content := "# releases to sync\nr1\n\n  r2  \n#r3\nr4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write id list: %v", err)
	}

	ids, err := ReadIDList(path)
	if err != nil {
		t.Fatalf("ReadIDList failed: %v", err)
	}
	if !slices.Equal(ids, []string{"r1", "r2", "r4"}) {
		t.Errorf("unexpected ids %v", ids)
	}

	if _, err := ReadIDList(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestReadTable(t *testing.T) {
	dir := t.TempDir()

	t.Run("HeaderAndRows", func(t *testing.T) {
		path := filepath.Join(dir, "catalog.csv")
		if err := os.WriteFile(path, []byte("id,title\nr1,\"Blue, Train\"\nr2,Kind of Blue\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		table, err := ReadTable(path)
		if err != nil {
			t.Fatalf("ReadTable failed: %v", err)
		}
		if !slices.Equal(table.Header, []string{"id", "title"}) {
			t.Errorf("unexpected header %v", table.Header)
		}
		if len(table.Rows) != 2 || table.Rows[0][1] != "Blue, Train" {
			t.Errorf("unexpected rows %v", table.Rows)
		}
	})

	t.Run("RaggedRowsRejected", func(t *testing.T) {
		path := filepath.Join(dir, "ragged.csv")
		if err := os.WriteFile(path, []byte("id,title\nr1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadTable(path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("EmptyFileRejected", func(t *testing.T) {
		path := filepath.Join(dir, "empty.csv")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadTable(path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
