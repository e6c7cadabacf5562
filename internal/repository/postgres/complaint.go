package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

const complaintColumns = `
	id, citizen_id, title, description, category, status,
	reporter_city_corporation_code, reporter_zone_id, reporter_ward_id,
	incident_city_corporation_code, incident_zone_id, incident_ward_id,
	thana_id, created_at, updated_at`

type ComplaintStore struct {
	pool *pgxpool.Pool
}

func NewComplaintStore(pool *pgxpool.Pool) *ComplaintStore {
	return &ComplaintStore{pool: pool}
}

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(
		&c.ID, &c.CitizenID, &c.Title, &c.Description, &c.Category, &c.Status,
		&c.ReporterCityCorporationCode, &c.ReporterZoneID, &c.ReporterWardID,
		&c.IncidentCityCorporationCode, &c.IncidentZoneID, &c.IncidentWardID,
		&c.ThanaID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectComplaints(rows pgx.Rows) ([]models.Complaint, error) {
	defer rows.Close()

	out := make([]models.Complaint, 0)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complaints: %w", err)
	}
	return out, nil
}

func (s *ComplaintStore) Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	query := `
		INSERT INTO complaints (
			citizen_id, title, description, category, status,
			reporter_city_corporation_code, reporter_zone_id, reporter_ward_id,
			incident_city_corporation_code, incident_zone_id, incident_ward_id,
			thana_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING ` + complaintColumns

	row := s.pool.QueryRow(ctx, query,
		c.CitizenID, c.Title, c.Description, c.Category, c.Status,
		c.ReporterCityCorporationCode, c.ReporterZoneID, c.ReporterWardID,
		c.IncidentCityCorporationCode, c.IncidentZoneID, c.IncidentWardID,
		c.ThanaID,
	)
	out, err := scanComplaint(row)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}
	return out, nil
}

func (s *ComplaintStore) GetByID(ctx context.Context, id int64) (*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	out, err := scanComplaint(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return out, nil
}

func (s *ComplaintStore) ListByCitizen(ctx context.Context, citizenID uuid.UUID, limit, offset int) ([]models.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE citizen_id = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, citizenID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list complaints by citizen: %w", err)
	}
	return collectComplaints(rows)
}

// ListByScope applies the resolved scope filter with OR semantics over
// the three incident columns. The caller short-circuits an empty
// filter; passing one here returns no rows rather than all rows.
func (s *ComplaintStore) ListByScope(ctx context.Context, filter repository.ScopeFilter, limit, offset int) ([]models.Complaint, error) {
	if filter.Empty() {
		return []models.Complaint{}, nil
	}

	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE incident_ward_id = ANY($1)
		   OR incident_zone_id = ANY($2)
		   OR incident_city_corporation_code = ANY($3)
		ORDER BY id DESC
		LIMIT $4 OFFSET $5`

	wardIDs := filter.WardIDs
	if wardIDs == nil {
		wardIDs = []uuid.UUID{}
	}
	zoneIDs := filter.ZoneIDs
	if zoneIDs == nil {
		zoneIDs = []uuid.UUID{}
	}
	codes := filter.CityCorporationCodes
	if codes == nil {
		codes = []string{}
	}

	rows, err := s.pool.Query(ctx, query, wardIDs, zoneIDs, codes, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list complaints by scope: %w", err)
	}
	return collectComplaints(rows)
}

func (s *ComplaintStore) UpdateStatus(ctx context.Context, id int64, status models.ComplaintStatus) error {
	query := `
		UPDATE complaints
		SET status = $2, updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update complaint status: complaint %d not found", id)
	}
	return nil
}

func (s *ComplaintStore) SetIncidentLocation(ctx context.Context, id int64, loc models.GeoPoint) error {
	query := `
		UPDATE complaints
		SET incident_city_corporation_code = $2,
		    incident_zone_id = $3,
		    incident_ward_id = $4,
		    updated_at = now()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id, loc.CityCorporationCode, loc.ZoneID, loc.WardID)
	if err != nil {
		return fmt.Errorf("set incident location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set incident location: complaint %d not found", id)
	}
	return nil
}

// SetIncidentLocationIfUnset only lands where the whole incident
// triple is still NULL. Backfill idempotence rests on this predicate.
func (s *ComplaintStore) SetIncidentLocationIfUnset(ctx context.Context, id int64, loc models.GeoPoint) (bool, error) {
	query := `
		UPDATE complaints
		SET incident_city_corporation_code = $2,
		    incident_zone_id = $3,
		    incident_ward_id = $4,
		    updated_at = now()
		WHERE id = $1
		  AND incident_city_corporation_code IS NULL
		  AND incident_zone_id IS NULL
		  AND incident_ward_id IS NULL`

	tag, err := s.pool.Exec(ctx, query, id, loc.CityCorporationCode, loc.ZoneID, loc.WardID)
	if err != nil {
		return false, fmt.Errorf("set incident location if unset: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *ComplaintStore) ListMissingIncident(ctx context.Context, afterID int64, limit int) ([]models.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE incident_city_corporation_code IS NULL
		  AND incident_zone_id IS NULL
		  AND incident_ward_id IS NULL
		  AND id > $1
		ORDER BY id
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list complaints missing incident: %w", err)
	}
	return collectComplaints(rows)
}

func (s *ComplaintStore) ListByThana(ctx context.Context, thanaID uuid.UUID, afterID int64, limit int) ([]models.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + `
		FROM complaints
		WHERE thana_id = $1
		  AND incident_city_corporation_code IS NULL
		  AND incident_zone_id IS NULL
		  AND incident_ward_id IS NULL
		  AND id > $2
		ORDER BY id
		LIMIT $3`

	rows, err := s.pool.Query(ctx, query, thanaID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list complaints by thana: %w", err)
	}
	return collectComplaints(rows)
}
