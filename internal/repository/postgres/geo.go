package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cleancare/backend/internal/models"
)

// GeoStore persists the geography tree. Zone and ward uniqueness
// (zone_number per corporation, ward_number per zone) is enforced
// twice: by geo.Tree's write-side validation and by unique indexes
// underneath, so a racing duplicate still loses.
type GeoStore struct {
	pool *pgxpool.Pool
}

func NewGeoStore(pool *pgxpool.Pool) *GeoStore {
	return &GeoStore{pool: pool}
}

func (s *GeoStore) CityCorporationByCode(ctx context.Context, code string) (*models.CityCorporation, error) {
	query := `
		SELECT code, name, min_ward, max_ward, status, created_at
		FROM city_corporations
		WHERE code = $1`

	var cc models.CityCorporation
	err := s.pool.QueryRow(ctx, query, code).Scan(
		&cc.Code,
		&cc.Name,
		&cc.MinWard,
		&cc.MaxWard,
		&cc.Status,
		&cc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get city corporation: %w", err)
	}
	return &cc, nil
}

func (s *GeoStore) ListCityCorporations(ctx context.Context) ([]models.CityCorporation, error) {
	query := `
		SELECT code, name, min_ward, max_ward, status, created_at
		FROM city_corporations
		ORDER BY code`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list city corporations: %w", err)
	}
	defer rows.Close()

	ccs := make([]models.CityCorporation, 0)
	for rows.Next() {
		var cc models.CityCorporation
		if err := rows.Scan(&cc.Code, &cc.Name, &cc.MinWard, &cc.MaxWard, &cc.Status, &cc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan city corporation: %w", err)
		}
		ccs = append(ccs, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate city corporations: %w", err)
	}
	return ccs, nil
}

func (s *GeoStore) CreateCityCorporation(ctx context.Context, cc *models.CityCorporation) (*models.CityCorporation, error) {
	query := `
		INSERT INTO city_corporations (code, name, min_ward, max_ward, status, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING code, name, min_ward, max_ward, status, created_at`

	var out models.CityCorporation
	err := s.pool.QueryRow(ctx, query, cc.Code, cc.Name, cc.MinWard, cc.MaxWard, cc.Status).Scan(
		&out.Code,
		&out.Name,
		&out.MinWard,
		&out.MaxWard,
		&out.Status,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert city corporation: %w", err)
	}
	return &out, nil
}

func (s *GeoStore) ZoneByID(ctx context.Context, id uuid.UUID) (*models.Zone, error) {
	query := `
		SELECT id, zone_number, city_corporation_code, name, officer_name, officer_contact, status, created_at
		FROM zones
		WHERE id = $1`

	var z models.Zone
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&z.ID,
		&z.ZoneNumber,
		&z.CityCorporationCode,
		&z.Name,
		&z.OfficerName,
		&z.OfficerContact,
		&z.Status,
		&z.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get zone: %w", err)
	}
	return &z, nil
}

func (s *GeoStore) ZonesByCityCorporation(ctx context.Context, code string) ([]models.Zone, error) {
	query := `
		SELECT id, zone_number, city_corporation_code, name, officer_name, officer_contact, status, created_at
		FROM zones
		WHERE city_corporation_code = $1
		ORDER BY zone_number`

	rows, err := s.pool.Query(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	zones := make([]models.Zone, 0)
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.ZoneNumber, &z.CityCorporationCode, &z.Name, &z.OfficerName, &z.OfficerContact, &z.Status, &z.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return zones, nil
}

func (s *GeoStore) CreateZone(ctx context.Context, z *models.Zone) (*models.Zone, error) {
	query := `
		INSERT INTO zones (id, zone_number, city_corporation_code, name, officer_name, officer_contact, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		RETURNING id, zone_number, city_corporation_code, name, officer_name, officer_contact, status, created_at`

	var out models.Zone
	err := s.pool.QueryRow(ctx, query, z.ZoneNumber, z.CityCorporationCode, z.Name, z.OfficerName, z.OfficerContact, z.Status).Scan(
		&out.ID,
		&out.ZoneNumber,
		&out.CityCorporationCode,
		&out.Name,
		&out.OfficerName,
		&out.OfficerContact,
		&out.Status,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert zone: %w", err)
	}
	return &out, nil
}

func (s *GeoStore) WardByID(ctx context.Context, id uuid.UUID) (*models.Ward, error) {
	query := `
		SELECT id, ward_number, zone_id, inspector_name, inspector_contact, status, created_at
		FROM wards
		WHERE id = $1`

	var w models.Ward
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.WardNumber,
		&w.ZoneID,
		&w.InspectorName,
		&w.InspectorContact,
		&w.Status,
		&w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ward: %w", err)
	}
	return &w, nil
}

func (s *GeoStore) WardsByZone(ctx context.Context, zoneID uuid.UUID) ([]models.Ward, error) {
	query := `
		SELECT id, ward_number, zone_id, inspector_name, inspector_contact, status, created_at
		FROM wards
		WHERE zone_id = $1
		ORDER BY ward_number`

	rows, err := s.pool.Query(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("list wards: %w", err)
	}
	defer rows.Close()

	wards := make([]models.Ward, 0)
	for rows.Next() {
		var w models.Ward
		if err := rows.Scan(&w.ID, &w.WardNumber, &w.ZoneID, &w.InspectorName, &w.InspectorContact, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ward: %w", err)
		}
		wards = append(wards, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wards: %w", err)
	}
	return wards, nil
}

func (s *GeoStore) CreateWard(ctx context.Context, w *models.Ward) (*models.Ward, error) {
	query := `
		INSERT INTO wards (id, ward_number, zone_id, inspector_name, inspector_contact, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, now())
		RETURNING id, ward_number, zone_id, inspector_name, inspector_contact, status, created_at`

	var out models.Ward
	err := s.pool.QueryRow(ctx, query, w.WardNumber, w.ZoneID, w.InspectorName, w.InspectorContact, w.Status).Scan(
		&out.ID,
		&out.WardNumber,
		&out.ZoneID,
		&out.InspectorName,
		&out.InspectorContact,
		&out.Status,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ward: %w", err)
	}
	return &out, nil
}

func (s *GeoStore) ListThanas(ctx context.Context) ([]models.Thana, error) {
	query := `
		SELECT id, name, city_corporation_code, zone_id, ward_id
		FROM thanas
		ORDER BY name`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list thanas: %w", err)
	}
	defer rows.Close()

	thanas := make([]models.Thana, 0)
	for rows.Next() {
		var t models.Thana
		if err := rows.Scan(&t.ID, &t.Name, &t.CityCorporationCode, &t.ZoneID, &t.WardID); err != nil {
			return nil, fmt.Errorf("scan thana: %w", err)
		}
		thanas = append(thanas, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thanas: %w", err)
	}
	return thanas, nil
}

func (s *GeoStore) SetThanaMapping(ctx context.Context, thanaID, zoneID, wardID uuid.UUID) error {
	query := `
		UPDATE thanas
		SET zone_id = $2, ward_id = $3
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, thanaID, zoneID, wardID)
	if err != nil {
		return fmt.Errorf("set thana mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set thana mapping: thana %s not found", thanaID)
	}
	return nil
}
