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

const citizenColumns = `
	id, phone, name, password_hash, city_corporation_code, zone_id, ward_id, created_at`

type CitizenStore struct {
	pool *pgxpool.Pool
}

func NewCitizenStore(pool *pgxpool.Pool) *CitizenStore {
	return &CitizenStore{pool: pool}
}

func scanCitizen(row pgx.Row) (*models.Citizen, error) {
	var c models.Citizen
	err := row.Scan(
		&c.ID, &c.Phone, &c.Name, &c.PasswordHash,
		&c.CityCorporationCode, &c.ZoneID, &c.WardID, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CitizenStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Citizen, error) {
	query := `SELECT ` + citizenColumns + ` FROM citizens WHERE id = $1`

	out, err := scanCitizen(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get citizen: %w", err)
	}
	return out, nil
}

func (s *CitizenStore) GetByPhone(ctx context.Context, phone string) (*models.Citizen, error) {
	query := `SELECT ` + citizenColumns + ` FROM citizens WHERE phone = $1`

	out, err := scanCitizen(s.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get citizen by phone: %w", err)
	}
	return out, nil
}

func (s *CitizenStore) Create(ctx context.Context, c *models.Citizen) (*models.Citizen, error) {
	query := `
		INSERT INTO citizens (id, phone, name, password_hash, city_corporation_code, zone_id, ward_id, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		RETURNING ` + citizenColumns

	out, err := scanCitizen(s.pool.QueryRow(ctx, query,
		c.Phone, c.Name, c.PasswordHash, c.CityCorporationCode, c.ZoneID, c.WardID,
	))
	if err != nil {
		return nil, fmt.Errorf("insert citizen: %w", err)
	}
	return out, nil
}
