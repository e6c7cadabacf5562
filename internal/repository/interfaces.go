package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cleancare/backend/internal/models"
)

// ErrNotFound is returned by lookups when the row does not exist and
// the caller asked for a hard failure. Most Get* methods instead
// return nil, nil for "not found" so handlers can translate to 404;
// ErrNotFound is for internal callers that need to distinguish a
// missing referent (see ErrReferentialIntegrity in the geo package).
var ErrNotFound = errors.New("not found")

// GeoRepository is the persistence contract for the geography tree.
//
// Writes here are rare (platform administration); reads are the hot
// path and sit behind geo.Tree's cache. Every Get* returns nil, nil
// when the row does not exist.
type GeoRepository interface {
	CityCorporationByCode(ctx context.Context, code string) (*models.CityCorporation, error)
	ListCityCorporations(ctx context.Context) ([]models.CityCorporation, error)
	CreateCityCorporation(ctx context.Context, cc *models.CityCorporation) (*models.CityCorporation, error)

	ZoneByID(ctx context.Context, id uuid.UUID) (*models.Zone, error)
	ZonesByCityCorporation(ctx context.Context, code string) ([]models.Zone, error)
	CreateZone(ctx context.Context, z *models.Zone) (*models.Zone, error)

	WardByID(ctx context.Context, id uuid.UUID) (*models.Ward, error)
	WardsByZone(ctx context.Context, zoneID uuid.UUID) ([]models.Ward, error)
	CreateWard(ctx context.Context, w *models.Ward) (*models.Ward, error)

	// Thana access is read-plus-mapping only: the legacy layer is never
	// a write target for new geography.
	ListThanas(ctx context.Context) ([]models.Thana, error)
	SetThanaMapping(ctx context.Context, thanaID, zoneID, wardID uuid.UUID) error
}

// AssignmentRepository persists the staff-to-geography assignment
// relation together with a per-staff scope version.
//
// Every mutating method runs as one transaction that also bumps the
// staff's scope version, and returns the committed version. The
// version is what orders AssignmentChanged events: reconciliation can
// tell whether the state it is reading is at least as new as the
// event that triggered it.
type AssignmentRepository interface {
	// InsertZoneAssignment returns inserted=false when the (staff, zone)
	// pair already exists; the version is only bumped on a real insert.
	InsertZoneAssignment(ctx context.Context, staffID, zoneID uuid.UUID, assignedBy *uuid.UUID) (inserted bool, version int64, err error)

	// DeleteZoneAssignment returns removed=false when the pair was not
	// assigned; the version is only bumped on a real delete.
	DeleteZoneAssignment(ctx context.Context, staffID, zoneID uuid.UUID) (removed bool, version int64, err error)

	ZoneIDsByStaff(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error)
	AssignmentsByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ZoneAssignment, error)

	// SetWardAssignment / SetCityAssignment replace the single-valued
	// pointer on the staff row atomically.
	SetWardAssignment(ctx context.Context, staffID, wardID uuid.UUID) (version int64, err error)
	SetCityAssignment(ctx context.Context, staffID uuid.UUID, code string) (version int64, err error)

	ScopeVersion(ctx context.Context, staffID uuid.UUID) (int64, error)
}

// StaffRepository handles staff account reads for auth and scope
// resolution. GetByID returns nil, nil when not found.
type StaffRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.StaffIdentity, error)
	GetByEmail(ctx context.Context, email string) (*models.StaffIdentity, error)
	Create(ctx context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error)
}

// CitizenRepository handles resident accounts.
type CitizenRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Citizen, error)
	GetByPhone(ctx context.Context, phone string) (*models.Citizen, error)
	Create(ctx context.Context, c *models.Citizen) (*models.Citizen, error)
}

// ScopeFilter is the SQL-facing form of a resolved scope predicate:
// a complaint matches when its incident ward, zone, or corporation
// code is in any one of the three sets (OR semantics). An all-empty
// filter matches nothing — callers short-circuit before querying.
type ScopeFilter struct {
	CityCorporationCodes []string
	ZoneIDs              []uuid.UUID
	WardIDs              []uuid.UUID
}

// Empty reports whether the filter can never match.
func (f ScopeFilter) Empty() bool {
	return len(f.CityCorporationCodes) == 0 && len(f.ZoneIDs) == 0 && len(f.WardIDs) == 0
}

// ComplaintRepository persists complaints and their two location
// triples.
type ComplaintRepository interface {
	Create(ctx context.Context, c *models.Complaint) (*models.Complaint, error)
	GetByID(ctx context.Context, id int64) (*models.Complaint, error)
	ListByCitizen(ctx context.Context, citizenID uuid.UUID, limit, offset int) ([]models.Complaint, error)
	ListByScope(ctx context.Context, filter ScopeFilter, limit, offset int) ([]models.Complaint, error)
	UpdateStatus(ctx context.Context, id int64, status models.ComplaintStatus) error

	// SetIncidentLocation overwrites the incident triple. Used only for
	// explicit relocation edits, after chain validation.
	SetIncidentLocation(ctx context.Context, id int64, loc models.GeoPoint) error

	// SetIncidentLocationIfUnset writes the triple only when all three
	// incident columns are still NULL, and reports whether a row
	// changed. This is the primitive that makes backfill idempotent.
	SetIncidentLocationIfUnset(ctx context.Context, id int64, loc models.GeoPoint) (bool, error)

	// ListMissingIncident pages through complaints whose incident triple
	// is entirely NULL, oldest first.
	ListMissingIncident(ctx context.Context, afterID int64, limit int) ([]models.Complaint, error)

	// ListByThana pages through pre-migration complaints still carrying
	// a legacy thana reference and no incident triple.
	ListByThana(ctx context.Context, thanaID uuid.UUID, afterID int64, limit int) ([]models.Complaint, error)
}

// NotificationRepository persists staff notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	ListByStaff(ctx context.Context, staffID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	ListUnreadByStaff(ctx context.Context, staffID uuid.UUID) ([]models.Notification, error)
	UnreadCount(ctx context.Context, staffID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, staffID uuid.UUID, id int64) error
	Delete(ctx context.Context, id int64) error
}
