package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleancare/backend/internal/models"
)

// AssignmentStore persists zone assignments, the single-valued
// ward/city pointers on the staff row, and the per-staff scope
// version.
//
// Every mutation runs in one transaction with the version bump. The
// version row is updated with a plain UPDATE inside the transaction,
// which also serializes concurrent mutations to the same staff: the
// second writer blocks on the row lock until the first commits.
type AssignmentStore struct {
	pool *pgxpool.Pool
}

func NewAssignmentStore(pool *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{pool: pool}
}

// bumpVersion increments and returns the staff's scope version inside
// the caller's transaction. The upsert seeds the row on first use.
func bumpVersion(ctx context.Context, tx pgx.Tx, staffID uuid.UUID) (int64, error) {
	query := `
		INSERT INTO staff_scope_versions (staff_id, version)
		VALUES ($1, 1)
		ON CONFLICT (staff_id) DO UPDATE SET version = staff_scope_versions.version + 1
		RETURNING version`

	var version int64
	if err := tx.QueryRow(ctx, query, staffID).Scan(&version); err != nil {
		return 0, fmt.Errorf("bump scope version: %w", err)
	}
	return version, nil
}

func (s *AssignmentStore) InsertZoneAssignment(ctx context.Context, staffID, zoneID uuid.UUID, assignedBy *uuid.UUID) (bool, int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// ON CONFLICT DO NOTHING makes the grant idempotent: a duplicate
	// (staff_id, zone_id) inserts zero rows instead of failing.
	query := `
		INSERT INTO zone_assignments (staff_id, zone_id, assigned_at, assigned_by)
		VALUES ($1, $2, now(), $3)
		ON CONFLICT (staff_id, zone_id) DO NOTHING`

	tag, err := tx.Exec(ctx, query, staffID, zoneID, assignedBy)
	if err != nil {
		return false, 0, fmt.Errorf("insert zone assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Nothing changed; leave the version alone.
		return false, 0, tx.Commit(ctx)
	}

	version, err := bumpVersion(ctx, tx, staffID)
	if err != nil {
		return false, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit: %w", err)
	}
	return true, version, nil
}

func (s *AssignmentStore) DeleteZoneAssignment(ctx context.Context, staffID, zoneID uuid.UUID) (bool, int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		DELETE FROM zone_assignments
		WHERE staff_id = $1 AND zone_id = $2`

	tag, err := tx.Exec(ctx, query, staffID, zoneID)
	if err != nil {
		return false, 0, fmt.Errorf("delete zone assignment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, 0, tx.Commit(ctx)
	}

	version, err := bumpVersion(ctx, tx, staffID)
	if err != nil {
		return false, 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, 0, fmt.Errorf("commit: %w", err)
	}
	return true, version, nil
}

func (s *AssignmentStore) ZoneIDsByStaff(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT zone_id
		FROM zone_assignments
		WHERE staff_id = $1`

	rows, err := s.pool.Query(ctx, query, staffID)
	if err != nil {
		return nil, fmt.Errorf("list assigned zone ids: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan zone id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone ids: %w", err)
	}
	return ids, nil
}

func (s *AssignmentStore) AssignmentsByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ZoneAssignment, error) {
	query := `
		SELECT staff_id, zone_id, assigned_at, assigned_by
		FROM zone_assignments
		WHERE staff_id = $1
		ORDER BY assigned_at`

	rows, err := s.pool.Query(ctx, query, staffID)
	if err != nil {
		return nil, fmt.Errorf("list zone assignments: %w", err)
	}
	defer rows.Close()

	out := make([]models.ZoneAssignment, 0)
	for rows.Next() {
		var a models.ZoneAssignment
		if err := rows.Scan(&a.StaffID, &a.ZoneID, &a.AssignedAt, &a.AssignedBy); err != nil {
			return nil, fmt.Errorf("scan zone assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zone assignments: %w", err)
	}
	return out, nil
}

func (s *AssignmentStore) SetWardAssignment(ctx context.Context, staffID, wardID uuid.UUID) (int64, error) {
	return s.setPointer(ctx, staffID, `UPDATE staff SET ward_id = $2 WHERE id = $1`, wardID)
}

func (s *AssignmentStore) SetCityAssignment(ctx context.Context, staffID uuid.UUID, code string) (int64, error) {
	return s.setPointer(ctx, staffID, `UPDATE staff SET city_corporation_code = $2 WHERE id = $1`, code)
}

func (s *AssignmentStore) setPointer(ctx context.Context, staffID uuid.UUID, query string, value any) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, query, staffID, value)
	if err != nil {
		return 0, fmt.Errorf("set assignment pointer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("set assignment pointer: staff %s not found", staffID)
	}

	version, err := bumpVersion(ctx, tx, staffID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return version, nil
}

func (s *AssignmentStore) ScopeVersion(ctx context.Context, staffID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(
			(SELECT version FROM staff_scope_versions WHERE staff_id = $1),
			0
		)`

	var version int64
	if err := s.pool.QueryRow(ctx, query, staffID).Scan(&version); err != nil {
		return 0, fmt.Errorf("get scope version: %w", err)
	}
	return version, nil
}
