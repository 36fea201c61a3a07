package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/cache"
	"github.com/desertthunder/syncx/internal/formatter"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/tasks"
)

// catalogRecord is one ID resolved against a catalog: its catalog columns, or none when the catalog lacks it.
type catalogRecord struct {
	ID     string   `json:"id"`
	Found  bool     `json:"found"`
	Fields []string `json:"fields"`
}

// catalogCodec stores catalog records with the catalog's own columns after id and found.
type catalogCodec struct {
	columns []string
}

func (c catalogCodec) Header() []string {
	return append([]string{"id", "found"}, c.columns...)
}

func (c catalogCodec) Encode(rec catalogRecord) []string {
	row := make([]string, 2+len(c.columns))
	row[0] = rec.ID
	row[1] = strconv.FormatBool(rec.Found)
	copy(row[2:], rec.Fields)
	return row
}

func (c catalogCodec) Decode(fields []string) (catalogRecord, error) {
	if len(fields) != 2+len(c.columns) {
		return catalogRecord{}, fmt.Errorf("%w: expected %d columns, got %d", cache.ErrSchemaMismatch, 2+len(c.columns), len(fields))
	}
	found, err := strconv.ParseBool(fields[1])
	if err != nil {
		return catalogRecord{}, fmt.Errorf("%w: found %q", cache.ErrCorruptRecord, fields[1])
	}
	rec := catalogRecord{ID: fields[0], Found: found}
	if found {
		rec.Fields = append([]string{}, fields[2:]...)
	}
	return rec, nil
}

// EnrichCSV resolves every ID in --source against the --catalog table and writes the results to --dest.
//
// Each resolved ID is cached under --job as soon as it completes, so an interrupted run picks up where it stopped
// when started again with the same job and source.
func (r *Runner) EnrichCSV(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.String("job")
	service, err := sessionlog.ParseService(cmd.String("service"))
	if err != nil {
		return err
	}

	ids, err := formatter.ReadIDList(cmd.String("source"))
	if err != nil {
		return err
	}
	catalog, err := formatter.ReadTable(cmd.String("catalog"))
	if err != nil {
		return err
	}
	index := make(map[string][]string, len(catalog.Rows))
	for _, row := range catalog.Rows {
		index[row[0]] = row[1:]
	}

	codec := catalogCodec{columns: catalog.Header[1:]}
	job := tasks.EnrichmentJob[string, catalogRecord]{
		ID:      jobID,
		Service: service,
		Items:   ids,
		Key:     func(id string) string { return id },
		Enrich: func(ctx context.Context, id string) (catalogRecord, error) {
			if err := ctx.Err(); err != nil {
				return catalogRecord{}, err
			}
			fields, ok := index[id]
			return catalogRecord{ID: id, Found: ok, Fields: fields}, nil
		},
		Store:     cache.NewStore[catalogRecord](r.config.Paths.CacheDir, codec),
		Snapshots: cache.NewSnapshotStore[catalogRecord](r.config.Paths.CacheDir),
	}

	updates, done := r.logUpdates()
	result, err := tasks.RunEnrichment(ctx, r.engine(service, nil), job, updates)
	close(updates)
	<-done
	if err != nil {
		return err
	}

	rows := make([][]string, len(result.Records))
	missing := 0
	for i, rec := range result.Records {
		rows[i] = codec.Encode(rec)
		if !rec.Found {
			missing++
		}
	}
	destPath := cmd.String("dest")
	if err := formatter.NewCSVSheet(destPath, codec.Header()).Rewrite(ctx, rows); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	r.writePlainHeader("Enrich " + jobID)
	r.writePlain("Items:   %d\n", len(result.Records))
	r.writePlain("Resumed: %d (%s)\n", result.Resumed, result.Source)
	r.writePlain("Missing: %d\n", missing)
	r.writePlain("Session: %s\n", result.SessionID)
	r.writePlain("Wrote %s\n", destPath)
	return nil
}
