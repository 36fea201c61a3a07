// package formatter renders tabular sync data as CSV, Markdown or plain text and provides the CSV sheet destination
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/desertthunder/syncx/internal/shared"
)

// Table is a titled grid of string cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// ExportToCSV converts a Table to CSV with its header as the first record
func ExportToCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(t.Header); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Table to a Markdown heading and pipe table
func ExportToMarkdown(t *Table) ([]byte, error) {
	var buf bytes.Buffer

	if t.Title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", t.Title)
	}
	if len(t.Header) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(escapeCells(t.Header), " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(t.Header)) + "\n")
	for _, row := range t.Rows {
		buf.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return buf.Bytes(), nil
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

// ExportToText converts a Table to left-aligned plain text columns
func ExportToText(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if t.Title != "" {
		fmt.Fprintf(&buf, "%s\n\n", t.Title)
	}

	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		buf.WriteString(strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
	}

	writeRow(t.Header)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return buf.Bytes(), nil
}

// Render converts t to format: csv, markdown (md) or text (txt).
func Render(t *Table, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ExportToCSV(t)
	case "markdown", "md":
		return ExportToMarkdown(t)
	case "text", "txt", "":
		return ExportToText(t)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}
