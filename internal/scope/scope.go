package scope

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// Assignment is the closed set of scope shapes a staff identity can
// hold. The resolver switches over it exhaustively, so adding a role
// means adding a variant here and the compiler (and the default case)
// points at every place that needs updating — instead of string-typed
// role checks scattered across call sites.
type Assignment interface {
	isAssignment()
}

// WardAssignment scopes a WARD_ADMIN to exactly one ward.
type WardAssignment struct {
	WardID uuid.UUID
}

// ZoneAssignments scopes a ZONE_ADMIN to a set of zones. The set may
// span city corporations; nothing in the geography forbids it.
type ZoneAssignments struct {
	ZoneIDs []uuid.UUID
}

// CityAssignment scopes a CITY_ADMIN to one whole city corporation.
// It is matched by code, not by a materialized zone/ward list, so
// coverage follows the live tree.
type CityAssignment struct {
	Code string
}

// Unscoped is a staff identity whose role has no assignment yet. It is
// a valid terminal state that matches nothing — never an implicit
// "everything".
type Unscoped struct{}

func (WardAssignment) isAssignment()  {}
func (ZoneAssignments) isAssignment() {}
func (CityAssignment) isAssignment()  {}
func (Unscoped) isAssignment()        {}

// Predicate is the structural description of the geographic units a
// staff identity may act on. A complaint is in scope iff its incident
// ward, zone, OR city-corporation code appears in the corresponding
// set — OR semantics, because different roles populate different
// levels, never more than one.
type Predicate struct {
	CityCorporationCodes map[string]struct{}
	ZoneIDs              map[uuid.UUID]struct{}
	WardIDs              map[uuid.UUID]struct{}
}

// EmptyPredicate matches nothing. It is what every unscoped or
// malformed identity resolves to.
func EmptyPredicate() Predicate {
	return Predicate{
		CityCorporationCodes: map[string]struct{}{},
		ZoneIDs:              map[uuid.UUID]struct{}{},
		WardIDs:              map[uuid.UUID]struct{}{},
	}
}

// IsEmpty reports whether the predicate can never match.
func (p Predicate) IsEmpty() bool {
	return len(p.CityCorporationCodes) == 0 && len(p.ZoneIDs) == 0 && len(p.WardIDs) == 0
}

// Matches checks an incident location against the predicate.
func (p Predicate) Matches(loc models.GeoPoint) bool {
	if _, ok := p.WardIDs[loc.WardID]; ok {
		return true
	}
	if _, ok := p.ZoneIDs[loc.ZoneID]; ok {
		return true
	}
	if _, ok := p.CityCorporationCodes[loc.CityCorporationCode]; ok {
		return true
	}
	return false
}

// Filter converts the predicate to the repository's SQL-facing form.
func (p Predicate) Filter() repository.ScopeFilter {
	f := repository.ScopeFilter{}
	for code := range p.CityCorporationCodes {
		f.CityCorporationCodes = append(f.CityCorporationCodes, code)
	}
	for id := range p.ZoneIDs {
		f.ZoneIDs = append(f.ZoneIDs, id)
	}
	for id := range p.WardIDs {
		f.WardIDs = append(f.WardIDs, id)
	}
	return f
}

// AssignmentReader is the slice of the assignment store the resolver
// needs: just the current zone set for a staff identity.
type AssignmentReader interface {
	AssignedZones(ctx context.Context, staffID uuid.UUID) ([]uuid.UUID, error)
}

// Resolver computes scope predicates from staff identities. It is
// stateless with respect to a given read of the assignment relation
// and the geography tree, so it is safe to call from any number of
// workers.
type Resolver struct {
	assignments AssignmentReader
	tree        *geo.Tree
	logger      *zap.Logger
}

func NewResolver(assignments AssignmentReader, tree *geo.Tree, logger *zap.Logger) *Resolver {
	return &Resolver{assignments: assignments, tree: tree, logger: logger}
}

// AssignmentFor builds the Assignment variant for a staff identity
// from its role and current assignment pointers.
func (r *Resolver) AssignmentFor(ctx context.Context, staff *models.StaffIdentity) (Assignment, error) {
	if staff == nil {
		return Unscoped{}, nil
	}

	switch staff.Role {
	case models.RoleWardAdmin:
		if staff.WardID == nil {
			return Unscoped{}, nil
		}
		return WardAssignment{WardID: *staff.WardID}, nil

	case models.RoleZoneAdmin:
		zoneIDs, err := r.assignments.AssignedZones(ctx, staff.ID)
		if err != nil {
			return nil, fmt.Errorf("assigned zones for %s: %w", staff.ID, err)
		}
		if len(zoneIDs) == 0 {
			return Unscoped{}, nil
		}
		return ZoneAssignments{ZoneIDs: zoneIDs}, nil

	case models.RoleCityAdmin:
		if staff.CityCorporationCode == nil || *staff.CityCorporationCode == "" {
			return Unscoped{}, nil
		}
		return CityAssignment{Code: *staff.CityCorporationCode}, nil

	default:
		// Unknown role strings fail closed, same as a missing assignment.
		return Unscoped{}, nil
	}
}

// Resolve computes the exact scope predicate for a staff identity.
//
// An unscoped identity resolves to the empty predicate and is logged
// as a likely misconfiguration — it is never escalated to full access.
func (r *Resolver) Resolve(ctx context.Context, staff *models.StaffIdentity) (Predicate, error) {
	a, err := r.AssignmentFor(ctx, staff)
	if err != nil {
		return EmptyPredicate(), err
	}

	pred := EmptyPredicate()
	switch v := a.(type) {
	case WardAssignment:
		pred.WardIDs[v.WardID] = struct{}{}
	case ZoneAssignments:
		for _, id := range v.ZoneIDs {
			pred.ZoneIDs[id] = struct{}{}
		}
	case CityAssignment:
		pred.CityCorporationCodes[v.Code] = struct{}{}
	case Unscoped:
		if staff != nil {
			r.logger.Warn("staff resolves to empty scope",
				zap.String("staff_id", staff.ID.String()),
				zap.String("role", string(staff.Role)),
			)
		}
	default:
		return EmptyPredicate(), fmt.Errorf("unhandled assignment variant %T", a)
	}
	return pred, nil
}

// CoveredWards expands the predicate to the concrete set of ward IDs
// it currently covers, walking the live tree for zone- and city-level
// entries. Because the tree reads through an invalidating cache, a
// CITY_ADMIN's answer grows the moment a new zone or ward is created
// under their corporation.
func (r *Resolver) CoveredWards(ctx context.Context, pred Predicate) (map[uuid.UUID]struct{}, error) {
	wards := make(map[uuid.UUID]struct{}, len(pred.WardIDs))
	for id := range pred.WardIDs {
		wards[id] = struct{}{}
	}

	zoneIDs := make([]uuid.UUID, 0, len(pred.ZoneIDs))
	for id := range pred.ZoneIDs {
		zoneIDs = append(zoneIDs, id)
	}
	for code := range pred.CityCorporationCodes {
		under, err := r.tree.ZonesUnder(ctx, code)
		if err != nil {
			return nil, err
		}
		zoneIDs = append(zoneIDs, under...)
	}

	for _, zoneID := range zoneIDs {
		under, err := r.tree.WardsUnder(ctx, zoneID)
		if err != nil {
			return nil, err
		}
		for _, id := range under {
			wards[id] = struct{}{}
		}
	}
	return wards, nil
}
