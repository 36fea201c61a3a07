package ui

import (
	"fmt"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"

	"github.com/desertthunder/syncx/internal/progress"
	"github.com/desertthunder/syncx/internal/sessionlog"
)

const defaultBarWidth = 40

func newBar(width int) bprogress.Model {
	return bprogress.New(bprogress.WithDefaultGradient(), bprogress.WithWidth(width), bprogress.WithoutPercentage())
}

// RenderSnapshot renders a progress line: bar, percent, counts, throughput and ETA.
func RenderSnapshot(snap progress.Snapshot) string {
	return renderSnapshot(newBar(defaultBarWidth), snap)
}

func renderSnapshot(bar bprogress.Model, snap progress.Snapshot) string {
	var b strings.Builder
	b.WriteString(bar.ViewAs(snap.Percent() / 100))
	fmt.Fprintf(&b, " %5.1f%%  %d/%d", snap.Percent(), snap.CompletedItems, snap.TotalItems)

	if snap.TotalUnits > 1 {
		fmt.Fprintf(&b, "  unit %d/%d", min(snap.CompletedUnits+1, snap.TotalUnits), snap.TotalUnits)
	}
	if snap.Throughput > 0 {
		fmt.Fprintf(&b, "  %.2f/s", snap.Throughput)
	}
	if snap.HasETA {
		b.WriteString("  ETA " + FormatETA(snap.Remaining))
	}
	return b.String()
}

// FormatETA rounds d for display: seconds under a minute, then minutes, then hours and minutes.
func FormatETA(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Round(time.Second).Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// RenderStatus colors a session status.
func RenderStatus(s sessionlog.Status) string {
	switch s {
	case sessionlog.StatusCompleted:
		return styles.OK(string(s))
	case sessionlog.StatusFailed, sessionlog.StatusCrashed:
		return styles.Err(string(s))
	case sessionlog.StatusInterrupted:
		return styles.Warn(string(s))
	default:
		return string(s)
	}
}

// RenderSessions renders session records newest first, one per line.
func RenderSessions(service sessionlog.Service, records []sessionlog.SessionRecord) string {
	var b strings.Builder
	b.WriteString(styles.Title(fmt.Sprintf("%s sessions", service)))
	b.WriteString("\n")
	if len(records) == 0 {
		b.WriteString(styles.Help("no sessions recorded"))
		b.WriteString("\n")
		return b.String()
	}

	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		line := fmt.Sprintf("%s  %s  %s", r.SessionID, r.StartedAt.Format(sessionlog.TimeFormat), RenderStatus(r.Status))
		if !r.EndedAt.IsZero() {
			line += fmt.Sprintf("  (%s)", r.EndedAt.Sub(r.StartedAt).Round(time.Second))
		}
		if r.Summary != "" {
			line += "  " + styles.Help(r.Summary)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
