package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/syncx/internal/models"
	"github.com/desertthunder/syncx/internal/shared"
)

const syncRunColumns = "id, sequence, target, session_id, added, removed, full_rewrite, created_at"

// SyncRunRepository implements models.Repository[*models.SyncRun] for sync history.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts run with a generated ID and the next sequence number.
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(tx, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	id := shared.GenerateID()

	query := `
		INSERT INTO sync_runs (` + syncRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.Exec(query,
		id,
		sequence,
		run.Target(),
		run.SessionID(),
		run.Added(),
		run.Removed(),
		run.FullRewrite(),
		run.CreatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID.
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ?`
	return scanSyncRun(r.db.QueryRow(query, id))
}

// Latest returns the most recent run for target.
func (r *SyncRunRepository) Latest(target string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE target = ? ORDER BY sequence DESC LIMIT 1`
	return scanSyncRun(r.db.QueryRow(query, target))
}

// ListByTarget returns the newest runs for target first, at most limit of them (all when limit <= 0).
func (r *SyncRunRepository) ListByTarget(target string, limit int) ([]*models.SyncRun, error) {
	return r.List(map[string]any{"target": target, "limit": limit, "newest_first": true})
}

// List retrieves runs matching criteria: "target" (string), "session_id" (string), "limit" (int) and
// "newest_first" (bool). Runs are in sequence order unless newest_first is set.
func (r *SyncRunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE 1 = 1`
	args := []any{}

	if target, ok := criteria["target"].(string); ok && target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}
	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	if newest, ok := criteria["newest_first"].(bool); ok && newest {
		query += " ORDER BY sequence DESC"
	} else {
		query += " ORDER BY sequence ASC"
	}

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.SyncRun{}
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSyncRun scans a [sql.Row] or the current row of [sql.Rows] into a [models.SyncRun]
func scanSyncRun(row scanner) (*models.SyncRun, error) {
	var (
		id          string
		sequence    int
		target      string
		sessionID   string
		added       int
		removed     int
		fullRewrite bool
		createdAt   time.Time
	)

	err := row.Scan(&id, &sequence, &target, &sessionID, &added, &removed, &fullRewrite, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync run: %w", err)
	}

	return models.RestoreSyncRun(id, sequence, target, sessionID, added, removed, fullRewrite, createdAt), nil
}

var _ models.Repository[*models.SyncRun] = (*SyncRunRepository)(nil)
