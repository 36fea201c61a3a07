package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/syncx/internal/shared"
)

// SyncRun records one sync pass against a destination.
type SyncRun struct {
	id          string
	sequence    int
	target      string
	sessionID   string
	added       int
	removed     int
	fullRewrite bool
	createdAt   time.Time
}

// NewSyncRun creates an unsaved run for target. The repository assigns the ID and sequence.
func NewSyncRun(target, sessionID string, added, removed int, fullRewrite bool) *SyncRun {
	return &SyncRun{
		target:      target,
		sessionID:   sessionID,
		added:       added,
		removed:     removed,
		fullRewrite: fullRewrite,
		createdAt:   time.Now().UTC(),
	}
}

// RestoreSyncRun rebuilds a run from stored columns.
func RestoreSyncRun(id string, sequence int, target, sessionID string, added, removed int, fullRewrite bool, createdAt time.Time) *SyncRun {
	return &SyncRun{
		id:          id,
		sequence:    sequence,
		target:      target,
		sessionID:   sessionID,
		added:       added,
		removed:     removed,
		fullRewrite: fullRewrite,
		createdAt:   createdAt,
	}
}

func (r *SyncRun) ID() string           { return r.id }
func (r *SyncRun) Sequence() int        { return r.sequence }
func (r *SyncRun) Target() string       { return r.target }
func (r *SyncRun) SessionID() string    { return r.sessionID }
func (r *SyncRun) Added() int           { return r.added }
func (r *SyncRun) Removed() int         { return r.removed }
func (r *SyncRun) FullRewrite() bool    { return r.fullRewrite }
func (r *SyncRun) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt equals CreatedAt; runs are never modified.
func (r *SyncRun) UpdatedAt() time.Time { return r.createdAt }

func (r *SyncRun) SetID(id string)          { r.id = id }
func (r *SyncRun) SetSequence(seq int)      { r.sequence = seq }
func (r *SyncRun) SetCreatedAt(t time.Time) { r.createdAt = t }

// Validate checks the run before it is written.
func (r *SyncRun) Validate() error {
	if strings.TrimSpace(r.target) == "" {
		return fmt.Errorf("%w: sync run target is required", shared.ErrInvalidInput)
	}
	if r.added < 0 || r.removed < 0 {
		return fmt.Errorf("%w: negative change counts (%d added, %d removed)", shared.ErrInvalidInput, r.added, r.removed)
	}
	if r.createdAt.IsZero() {
		return fmt.Errorf("%w: sync run has no creation time", shared.ErrInvalidInput)
	}
	return nil
}

// Summary renders the change applied by the run.
func (r *SyncRun) Summary() string {
	if r.fullRewrite {
		return fmt.Sprintf("full rewrite (+%d -%d)", r.added, r.removed)
	}
	if r.added == 0 && r.removed == 0 {
		return "no changes"
	}
	return fmt.Sprintf("+%d -%d", r.added, r.removed)
}
