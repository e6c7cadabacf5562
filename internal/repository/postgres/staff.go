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

const staffColumns = `
	id, email, name, password_hash, role, ward_id, city_corporation_code, status, created_at`

type StaffStore struct {
	pool *pgxpool.Pool
}

func NewStaffStore(pool *pgxpool.Pool) *StaffStore {
	return &StaffStore{pool: pool}
}

func scanStaff(row pgx.Row) (*models.StaffIdentity, error) {
	var s models.StaffIdentity
	err := row.Scan(
		&s.ID, &s.Email, &s.Name, &s.PasswordHash, &s.Role,
		&s.WardID, &s.CityCorporationCode, &s.Status, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *StaffStore) GetByID(ctx context.Context, id uuid.UUID) (*models.StaffIdentity, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1`

	out, err := scanStaff(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff: %w", err)
	}
	return out, nil
}

func (s *StaffStore) GetByEmail(ctx context.Context, email string) (*models.StaffIdentity, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE email = $1`

	out, err := scanStaff(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get staff by email: %w", err)
	}
	return out, nil
}

func (s *StaffStore) Create(ctx context.Context, staff *models.StaffIdentity) (*models.StaffIdentity, error) {
	query := `
		INSERT INTO staff (id, email, name, password_hash, role, ward_id, city_corporation_code, status, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, $7, now())
		RETURNING ` + staffColumns

	out, err := scanStaff(s.pool.QueryRow(ctx, query,
		staff.Email, staff.Name, staff.PasswordHash, staff.Role,
		staff.WardID, staff.CityCorporationCode, staff.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("insert staff: %w", err)
	}
	return out, nil
}
