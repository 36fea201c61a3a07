package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/syncx/internal/formatter"
	"github.com/desertthunder/syncx/internal/sessionlog"
	"github.com/desertthunder/syncx/internal/ui"
)

type sessionView struct {
	SessionID string `json:"session_id"`
	Service   string `json:"service"`
	Status    string `json:"status"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// SessionsList prints every session recorded for --service.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	service, err := sessionlog.ParseService(cmd.String("service"))
	if err != nil {
		return err
	}

	records, err := r.sessions.History(service)
	if err != nil {
		return fmt.Errorf("failed to read session log: %w", err)
	}

	if cmd.Bool("json") {
		views := make([]sessionView, len(records))
		for i, rec := range records {
			views[i] = toSessionView(rec)
		}
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	format := cmd.String("format")
	if format == "text" {
		return r.writePlain("%s", ui.RenderSessions(service, records))
	}

	table := &formatter.Table{
		Title:  fmt.Sprintf("%s sessions", service),
		Header: []string{"session", "status", "started", "ended", "summary"},
	}
	for _, rec := range records {
		v := toSessionView(rec)
		table.Rows = append(table.Rows, []string{v.SessionID, v.Status, v.StartedAt, v.EndedAt, v.Summary})
	}
	out, err := formatter.Render(table, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(out)
	return err
}

// SessionsScan reports sessions that started without a terminal entry, without modifying the log.
//
// The next session started for the service records them as crashed.
func (r *Runner) SessionsScan(ctx context.Context, cmd *cli.Command) error {
	service, err := sessionlog.ParseService(cmd.String("service"))
	if err != nil {
		return err
	}

	orphans, err := r.sessions.Scan(service)
	if err != nil {
		return fmt.Errorf("failed to scan session log: %w", err)
	}
	if len(orphans) == 0 {
		return r.writePlain("No unfinished %s sessions\n", service)
	}

	r.writePlainHeader(fmt.Sprintf("Unfinished %s sessions", service))
	for _, o := range orphans {
		r.writePlain("  %s  started %s (%s ago)\n",
			o.SessionID, o.StartedAt.Format(sessionlog.TimeFormat), time.Since(o.StartedAt).Round(time.Second))
	}
	return nil
}

func toSessionView(rec sessionlog.SessionRecord) sessionView {
	v := sessionView{
		SessionID: rec.SessionID,
		Service:   string(rec.Service),
		Status:    string(rec.Status),
		StartedAt: rec.StartedAt.Format(sessionlog.TimeFormat),
		Summary:   rec.Summary,
	}
	if !rec.EndedAt.IsZero() {
		v.EndedAt = rec.EndedAt.Format(sessionlog.TimeFormat)
	}
	return v
}
