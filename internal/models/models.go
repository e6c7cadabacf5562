package models

import (
	"time"

	"github.com/google/uuid"
)

// Status marks whether a geographic unit is operational. INACTIVE units
// stay readable for historical complaints but reject new writes.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Role is the staff tier. Each role is scoped by a different assignment
// shape: a single ward, a set of zones, or a whole city corporation.
//
// The legacy database called these ADMIN / SUPER_ADMIN / MASTER_ADMIN;
// the names here say what the role actually covers.
type Role string

const (
	RoleWardAdmin Role = "WARD_ADMIN"
	RoleZoneAdmin Role = "ZONE_ADMIN"
	RoleCityAdmin Role = "CITY_ADMIN"
)

// CityCorporation is the root of the geography tree (e.g. DSCC, DNCC).
// Code is the stable identifier everything else hangs off; MinWard and
// MaxWard declare the valid ward-number range for the whole corporation.
type CityCorporation struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	MinWard   int       `json:"min_ward"`
	MaxWard   int       `json:"max_ward"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Zone is a subdivision of a city corporation. ZoneNumber is unique per
// city corporation, not globally — DSCC zone 3 and DNCC zone 3 are
// unrelated units.
type Zone struct {
	ID                  uuid.UUID `json:"id"`
	ZoneNumber          int       `json:"zone_number"`
	CityCorporationCode string    `json:"city_corporation_code"`
	Name                string    `json:"name"`
	OfficerName         string    `json:"officer_name"`
	OfficerContact      string    `json:"officer_contact"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

// Ward is a subdivision of a zone. There is deliberately no direct
// ward-to-city-corporation pointer; the corporation is always derived
// through the owning zone, so the chain can never disagree with itself.
type Ward struct {
	ID               uuid.UUID `json:"id"`
	WardNumber       int       `json:"ward_number"`
	ZoneID           uuid.UUID `json:"zone_id"`
	InspectorName    string    `json:"inspector_name"`
	InspectorContact string    `json:"inspector_contact"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Thana is the legacy administrative unit that predates the zone/ward
// hierarchy. It is read-only: historical complaints may still reference
// one, and the migration backfill maps each thana to its replacement
// zone/ward pair. New scope decisions never accept a thana.
type Thana struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	CityCorporationCode string     `json:"city_corporation_code"`
	ZoneID              *uuid.UUID `json:"zone_id,omitempty"`
	WardID              *uuid.UUID `json:"ward_id,omitempty"`
}

// GeoPoint is a complete ward/zone/city-corporation triple. Validity
// (the ward actually belonging to the zone, the zone to the
// corporation) is checked by geo.Tree.ValidateChain, not here.
type GeoPoint struct {
	CityCorporationCode string    `json:"city_corporation_code"`
	ZoneID              uuid.UUID `json:"zone_id"`
	WardID              uuid.UUID `json:"ward_id"`
}

// StaffIdentity is a staff account plus its single-valued assignment
// pointers. WardID is only meaningful for WARD_ADMIN and
// CityCorporationCode only for CITY_ADMIN; zone assignments for
// ZONE_ADMIN live in zone_assignments (many-to-many) and are fetched
// through the assignment store.
//
// A staff with a role but no assignment is valid — it resolves to an
// empty scope, never to full access.
type StaffIdentity struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	WardID              *uuid.UUID `json:"ward_id,omitempty"`
	CityCorporationCode *string    `json:"city_corporation_code,omitempty"`
	Status              Status     `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ZoneAssignment grants one zone to one ZONE_ADMIN. AssignedBy is kept
// for provenance and nulled if the granting staff is later removed; the
// assignment itself survives.
type ZoneAssignment struct {
	StaffID    uuid.UUID  `json:"staff_id"`
	ZoneID     uuid.UUID  `json:"zone_id"`
	AssignedAt time.Time  `json:"assigned_at"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
}

// Citizen is a resident account. The profile location triple is what
// gets copied onto complaints they file.
type Citizen struct {
	ID                  uuid.UUID `json:"id"`
	Phone               string    `json:"phone"`
	Name                string    `json:"name"`
	PasswordHash        string    `json:"-"`
	CityCorporationCode string    `json:"city_corporation_code"`
	ZoneID              uuid.UUID `json:"zone_id"`
	WardID              uuid.UUID `json:"ward_id"`
	CreatedAt           time.Time `json:"created_at"`
}

// GeoPoint returns the citizen's profile location triple.
func (c *Citizen) GeoPoint() GeoPoint {
	return GeoPoint{
		CityCorporationCode: c.CityCorporationCode,
		ZoneID:              c.ZoneID,
		WardID:              c.WardID,
	}
}

// ComplaintStatus is the triage state of a complaint.
type ComplaintStatus string

const (
	ComplaintPending  ComplaintStatus = "PENDING"
	ComplaintApproved ComplaintStatus = "APPROVED"
	ComplaintRejected ComplaintStatus = "REJECTED"
	ComplaintResolved ComplaintStatus = "RESOLVED"
)

// Complaint carries two independent location triples:
//
//   - Reporter*: where the submitting citizen lives, copied from their
//     profile at creation time. Never used for scope filtering.
//   - Incident*: where the problem actually is. This is what every
//     scope decision reads. It may be supplied explicitly (the pothole
//     is not in front of the reporter's house) or left nil, in which
//     case LocationFieldSync fills it from the reporter triple.
//
// Once the incident triple is set it is never silently overwritten by
// a backfill pass; only an explicit relocation edit may change it.
//
// ID is bigserial rather than UUID: complaints are the highest-volume
// table and a monotonically increasing int64 gives natural ordering
// and cheaper indexes.
type Complaint struct {
	ID          int64           `json:"id"`
	CitizenID   uuid.UUID       `json:"citizen_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Status      ComplaintStatus `json:"status"`

	ReporterCityCorporationCode string    `json:"reporter_city_corporation_code"`
	ReporterZoneID              uuid.UUID `json:"reporter_zone_id"`
	ReporterWardID              uuid.UUID `json:"reporter_ward_id"`

	IncidentCityCorporationCode *string    `json:"incident_city_corporation_code,omitempty"`
	IncidentZoneID              *uuid.UUID `json:"incident_zone_id,omitempty"`
	IncidentWardID              *uuid.UUID `json:"incident_ward_id,omitempty"`

	// ThanaID survives on pre-migration complaints for historical
	// display. Scope filtering never reads it.
	ThanaID *uuid.UUID `json:"thana_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IncidentLocation returns the incident triple if fully set.
func (c *Complaint) IncidentLocation() (GeoPoint, bool) {
	if c.IncidentCityCorporationCode == nil || c.IncidentZoneID == nil || c.IncidentWardID == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{
		CityCorporationCode: *c.IncidentCityCorporationCode,
		ZoneID:              *c.IncidentZoneID,
		WardID:              *c.IncidentWardID,
	}, true
}

// ReporterLocation returns the reporter-profile triple.
func (c *Complaint) ReporterLocation() GeoPoint {
	return GeoPoint{
		CityCorporationCode: c.ReporterCityCorporationCode,
		ZoneID:              c.ReporterZoneID,
		WardID:              c.ReporterWardID,
	}
}

// Notification is an in-app notice to a staff member about a complaint
// event. Unread notifications are subject to scope reconciliation when
// the recipient's assignment changes; read ones are historical record
// and left alone.
type Notification struct {
	ID               int64     `json:"id"`
	RecipientStaffID uuid.UUID `json:"recipient_staff_id"`
	ComplaintID      int64     `json:"complaint_id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	Type             string    `json:"type"`
	Delivered        bool      `json:"delivered"`
	Read             bool      `json:"read"`
	CreatedAt        time.Time `json:"created_at"`
}
