package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// ErrNotAssigned is returned by UnassignZone when the zone was never
// assigned. Benign: callers usually treat it as a no-op.
var ErrNotAssigned = errors.New("zone not assigned")

// ErrStaffNotFound means the staff identity does not exist.
var ErrStaffNotFound = errors.New("staff not found")

// ErrRoleMismatch means the assignment shape does not fit the staff's
// role (e.g. granting a zone to a WARD_ADMIN).
var ErrRoleMismatch = errors.New("assignment does not match staff role")

// Store manages the staff-to-geography assignment relation. Every
// mutation is one repository transaction that also bumps the staff's
// scope version; on a real state change the committed version is
// published as a Changed event for the notification guard to
// reconcile on.
//
// Mutations for different staff identities are independent; the
// per-staff version row serializes concurrent mutations to the same
// identity (last committed wins).
type Store struct {
	repo   repository.AssignmentRepository
	staff  repository.StaffRepository
	tree   *geo.Tree
	bus    Bus
	logger *zap.Logger
}

func NewStore(repo repository.AssignmentRepository, staff repository.StaffRepository, tree *geo.Tree, bus Bus, logger *zap.Logger) *Store {
	return &Store{repo: repo, staff: staff, tree: tree, bus: bus, logger: logger}
}

// AssignZone grants a zone to a ZONE_ADMIN. Granting an
// already-assigned zone is an idempotent no-op success: no version
// bump, no event.
//
// Nothing here forbids one ZONE_ADMIN's zones spanning city
// corporations; the grant is validated purely against the geography.
func (s *Store) AssignZone(ctx context.Context, staffID, zoneID uuid.UUID, assignedBy *uuid.UUID) error {
	if err := s.requireRole(ctx, staffID, models.RoleZoneAdmin); err != nil {
		return err
	}

	ok, err := s.tree.ZoneExists(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("check zone: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: zone %s does not exist", geo.ErrInvalidGeography, zoneID)
	}

	inserted, version, err := s.repo.InsertZoneAssignment(ctx, staffID, zoneID, assignedBy)
	if err != nil {
		return fmt.Errorf("insert zone assignment: %w", err)
	}
	if !inserted {
		return nil
	}

	s.logger.Info("zone assigned",
		zap.String("staff_id", staffID.String()),
		zap.String("zone_id", zoneID.String()),
		zap.Int64("scope_version", version),
	)
	return s.publish(ctx, staffID, version)
}

// UnassignZone revokes a zone grant. Returns ErrNotAssigned when the
// pair does not exist.
func (s *Store) UnassignZone(ctx context.Context, staffID, zoneID uuid.UUID) error {
	removed, version, err := s.repo.DeleteZoneAssignment(ctx, staffID, zoneID)
	if err != nil {
		return fmt.Errorf("delete zone assignment: %w", err)
	}
	if !removed {
		return fmt.Errorf("%w: staff %s, zone %s", ErrNotAssigned, staffID, zoneID)
	}

	s.logger.Info("zone unassigned",
		zap.String("staff_id", staffID.String()),
		zap.String("zone_id", zoneID.String()),
		zap.Int64("scope_version", version),
	)
	return s.publish(ctx, staffID, version)
}

// AssignedZones returns the staff's current zone set. Also satisfies
// scope.AssignmentReader.
func (s *Store) AssignedZones(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	return s.repo.ZoneIDsByStaff(ctx, staffID)
}

// Assignments returns the full zone-assignment rows, provenance
// included.
func (s *Store) Assignments(ctx context.Context, staffID uuid.UUID) ([]models.ZoneAssignment, error) {
	return s.repo.AssignmentsByStaff(ctx, staffID)
}

// SetWardAssignment points a WARD_ADMIN at a ward, replacing any
// previous ward atomically.
func (s *Store) SetWardAssignment(ctx context.Context, staffID, wardID uuid.UUID) error {
	if err := s.requireRole(ctx, staffID, models.RoleWardAdmin); err != nil {
		return err
	}

	ok, err := s.tree.WardExists(ctx, wardID)
	if err != nil {
		return fmt.Errorf("check ward: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: ward %s does not exist", geo.ErrInvalidGeography, wardID)
	}

	version, err := s.repo.SetWardAssignment(ctx, staffID, wardID)
	if err != nil {
		return fmt.Errorf("set ward assignment: %w", err)
	}

	s.logger.Info("ward assignment set",
		zap.String("staff_id", staffID.String()),
		zap.String("ward_id", wardID.String()),
		zap.Int64("scope_version", version),
	)
	return s.publish(ctx, staffID, version)
}

// SetCityAssignment points a CITY_ADMIN at a city corporation,
// replacing any previous one atomically.
func (s *Store) SetCityAssignment(ctx context.Context, staffID uuid.UUID, code string) error {
	if err := s.requireRole(ctx, staffID, models.RoleCityAdmin); err != nil {
		return err
	}

	ok, err := s.tree.CityCorporationExists(ctx, code)
	if err != nil {
		return fmt.Errorf("check city corporation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: city corporation %q does not exist", geo.ErrInvalidGeography, code)
	}

	version, err := s.repo.SetCityAssignment(ctx, staffID, code)
	if err != nil {
		return fmt.Errorf("set city assignment: %w", err)
	}

	s.logger.Info("city assignment set",
		zap.String("staff_id", staffID.String()),
		zap.String("city_corporation_code", code),
		zap.Int64("scope_version", version),
	)
	return s.publish(ctx, staffID, version)
}

// ScopeVersion exposes the committed per-staff version, letting a
// reconciliation sweep confirm its read is at least as new as the
// event that triggered it.
func (s *Store) ScopeVersion(ctx context.Context, staffID uuid.UUID) (int64, error) {
	return s.repo.ScopeVersion(ctx, staffID)
}

func (s *Store) requireRole(ctx context.Context, staffID uuid.UUID, role models.Role) error {
	staff, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		return fmt.Errorf("load staff: %w", err)
	}
	if staff == nil {
		return fmt.Errorf("%w: %s", ErrStaffNotFound, staffID)
	}
	if staff.Role != role {
		return fmt.Errorf("%w: staff %s has role %s, need %s", ErrRoleMismatch, staffID, staff.Role, role)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, staffID uuid.UUID, version int64) error {
	ev := Changed{StaffID: staffID, Version: version, At: time.Now().UTC()}
	if err := s.bus.Publish(ctx, ev); err != nil {
		// The mutation is committed; the event is what drives prompt
		// reconciliation. Surface the failure so the caller can retry —
		// the guard re-resolves per decision, so a delayed event only
		// delays cleanup, it never deletes wrongly.
		return fmt.Errorf("assignment committed but event publish failed: %w", err)
	}
	return nil
}
