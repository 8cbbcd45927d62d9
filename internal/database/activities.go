package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

// ActivityRepository handles activity database operations. A timeline is the
// set of activities sharing a planning id, ordered by start time.
type ActivityRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// SetLogger attaches a logger for slow-path diagnostics.
func (r *ActivityRepository) SetLogger(logger *zap.Logger) {
	r.logger = logger
}

// ListByPlanning retrieves the persisted timeline for a planning, ordered by
// start time ascending. An unknown planning id yields an empty slice.
func (r *ActivityRepository) ListByPlanning(ctx context.Context, planningID uuid.UUID) ([]models.Activity, error) {
	query := `
		SELECT id, planning_id, title, category, block, leg, seq,
		       start_time, end_time, duration_min, pinned_start,
		       is_highlight, notes, assigned_to, source, created_at, updated_at
		FROM activities
		WHERE planning_id = $1
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, planningID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}

// ReplaceForPlanning stores the full timeline for a planning in one
// transaction, replacing whatever was persisted before. Saving the whole set
// keeps the persisted record consistent with the recalculated in-memory
// timeline after reorders and deletions.
func (r *ActivityRepository) ReplaceForPlanning(ctx context.Context, planningID uuid.UUID, activities []models.Activity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			if r.logger != nil {
				r.logger.Warn("failed_to_rollback_replace", zap.Error(rbErr))
			}
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE planning_id = $1`, planningID); err != nil {
		return fmt.Errorf("failed to clear timeline: %w", err)
	}

	insert := `
		INSERT INTO activities (id, planning_id, title, category, block, leg, seq,
		                        start_time, end_time, duration_min, pinned_start,
		                        is_highlight, notes, assigned_to, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	now := time.Now()
	for i := range activities {
		a := &activities[i]
		assignedJSON, err := json.Marshal(a.AssignedTo)
		if err != nil {
			return fmt.Errorf("failed to marshal assignees: %w", err)
		}

		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		var pinned sql.NullTime
		if a.PinnedStart != nil {
			pinned = sql.NullTime{Time: *a.PinnedStart, Valid: true}
		}

		if _, err := tx.ExecContext(ctx, insert,
			a.ID,
			planningID,
			a.Title,
			a.Category,
			a.Block,
			a.Leg,
			a.Seq,
			a.StartTime,
			a.EndTime,
			a.DurationMin,
			pinned,
			a.IsHighlight,
			a.Notes,
			assignedJSON,
			a.Source,
			createdAt,
			now,
		); err != nil {
			return fmt.Errorf("failed to insert activity %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit timeline: %w", err)
	}
	return nil
}

// DeleteForPlanning removes every activity of a planning.
func (r *ActivityRepository) DeleteForPlanning(ctx context.Context, planningID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE planning_id = $1`, planningID); err != nil {
		return fmt.Errorf("failed to delete timeline: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (models.Activity, error) {
	var a models.Activity
	var assignedJSON []byte
	var pinned sql.NullTime
	var notes sql.NullString

	if err := row.Scan(
		&a.ID,
		&a.PlanningID,
		&a.Title,
		&a.Category,
		&a.Block,
		&a.Leg,
		&a.Seq,
		&a.StartTime,
		&a.EndTime,
		&a.DurationMin,
		&pinned,
		&a.IsHighlight,
		&notes,
		&assignedJSON,
		&a.Source,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return models.Activity{}, fmt.Errorf("failed to scan activity: %w", err)
	}

	if pinned.Valid {
		t := pinned.Time
		a.PinnedStart = &t
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if len(assignedJSON) > 0 {
		if err := json.Unmarshal(assignedJSON, &a.AssignedTo); err != nil {
			return models.Activity{}, fmt.Errorf("failed to unmarshal assignees: %w", err)
		}
	}

	return a, nil
}
