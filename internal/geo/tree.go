package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// ErrInvalidGeography means a ward/zone/city-corporation chain is
// internally inconsistent, or a ward number falls outside the
// corporation's declared range. Writes carrying such a chain are
// rejected outright — the tree never auto-corrects.
var ErrInvalidGeography = errors.New("invalid geography")

// ErrReferentialIntegrity means an assignment or complaint references
// a zone or ward that no longer exists. It is surfaced, not swallowed,
// because it indicates the geography and the referencing table have
// drifted apart.
var ErrReferentialIntegrity = errors.New("referential integrity violation")

// Tree answers structural questions about the City Corporation → Zone
// → Ward hierarchy. It is read-mostly: all lookups go through the
// repository with an explicit cache in front, and geography writes
// call InvalidateCache before committing so readers never expand a
// stale tree.
type Tree struct {
	repo   repository.GeoRepository
	cache  *Cache
	logger *zap.Logger
}

func NewTree(repo repository.GeoRepository, cache *Cache, logger *zap.Logger) *Tree {
	return &Tree{repo: repo, cache: cache, logger: logger}
}

// ValidateChain confirms that the ward belongs to the zone, the zone
// belongs to the city corporation, and the ward number sits inside the
// corporation's declared range. Any mismatch — including a referent
// that simply does not exist — fails closed with ErrInvalidGeography.
func (t *Tree) ValidateChain(ctx context.Context, wardID, zoneID uuid.UUID, ccCode string) error {
	ward, err := t.repo.WardByID(ctx, wardID)
	if err != nil {
		return fmt.Errorf("load ward: %w", err)
	}
	if ward == nil {
		return fmt.Errorf("%w: ward %s does not exist", ErrInvalidGeography, wardID)
	}
	if ward.ZoneID != zoneID {
		return fmt.Errorf("%w: ward %s belongs to zone %s, not %s", ErrInvalidGeography, wardID, ward.ZoneID, zoneID)
	}

	zone, err := t.repo.ZoneByID(ctx, zoneID)
	if err != nil {
		return fmt.Errorf("load zone: %w", err)
	}
	if zone == nil {
		return fmt.Errorf("%w: zone %s does not exist", ErrInvalidGeography, zoneID)
	}
	if zone.CityCorporationCode != ccCode {
		return fmt.Errorf("%w: zone %s belongs to %s, not %s", ErrInvalidGeography, zoneID, zone.CityCorporationCode, ccCode)
	}

	cc, err := t.repo.CityCorporationByCode(ctx, ccCode)
	if err != nil {
		return fmt.Errorf("load city corporation: %w", err)
	}
	if cc == nil {
		return fmt.Errorf("%w: city corporation %q does not exist", ErrInvalidGeography, ccCode)
	}
	if ward.WardNumber < cc.MinWard || ward.WardNumber > cc.MaxWard {
		return fmt.Errorf("%w: ward number %d outside %s range [%d, %d]",
			ErrInvalidGeography, ward.WardNumber, ccCode, cc.MinWard, cc.MaxWard)
	}

	return nil
}

// ValidatePoint is ValidateChain over a complete triple.
func (t *Tree) ValidatePoint(ctx context.Context, p models.GeoPoint) error {
	return t.ValidateChain(ctx, p.WardID, p.ZoneID, p.CityCorporationCode)
}

// ZonesUnder returns the IDs of every zone under the corporation as it
// exists right now. A CITY_ADMIN's effective coverage grows the moment
// a new zone is created under their corporation, with no re-assignment
// step — which is exactly why this reads through the invalidating
// cache instead of holding a snapshot.
func (t *Tree) ZonesUnder(ctx context.Context, ccCode string) ([]uuid.UUID, error) {
	if ids, ok := t.cache.getZones(ccCode); ok {
		return ids, nil
	}

	zones, err := t.repo.ZonesByCityCorporation(ctx, ccCode)
	if err != nil {
		return nil, fmt.Errorf("zones under %s: %w", ccCode, err)
	}
	ids := make([]uuid.UUID, 0, len(zones))
	for _, z := range zones {
		ids = append(ids, z.ID)
	}
	t.cache.setZones(ccCode, ids)
	return ids, nil
}

// WardsUnder returns the IDs of every ward under the zone.
func (t *Tree) WardsUnder(ctx context.Context, zoneID uuid.UUID) ([]uuid.UUID, error) {
	if ids, ok := t.cache.getWards(zoneID); ok {
		return ids, nil
	}

	wards, err := t.repo.WardsByZone(ctx, zoneID)
	if err != nil {
		return nil, fmt.Errorf("wards under %s: %w", zoneID, err)
	}
	ids := make([]uuid.UUID, 0, len(wards))
	for _, w := range wards {
		ids = append(ids, w.ID)
	}
	t.cache.setWards(zoneID, ids)
	return ids, nil
}

// ZoneExists reports whether the zone is present, distinguishing a
// clean "no" from a repository failure.
func (t *Tree) ZoneExists(ctx context.Context, zoneID uuid.UUID) (bool, error) {
	z, err := t.repo.ZoneByID(ctx, zoneID)
	if err != nil {
		return false, err
	}
	return z != nil, nil
}

// WardExists reports whether the ward is present.
func (t *Tree) WardExists(ctx context.Context, wardID uuid.UUID) (bool, error) {
	w, err := t.repo.WardByID(ctx, wardID)
	if err != nil {
		return false, err
	}
	return w != nil, nil
}

// CityCorporationExists reports whether the corporation is present.
func (t *Tree) CityCorporationExists(ctx context.Context, code string) (bool, error) {
	cc, err := t.repo.CityCorporationByCode(ctx, code)
	if err != nil {
		return false, err
	}
	return cc != nil, nil
}

// ValidateNewZone is the write-side hook for zone creation: the owning
// corporation must exist and be active, and the zone number must be
// unused within it.
func (t *Tree) ValidateNewZone(ctx context.Context, z *models.Zone) error {
	cc, err := t.repo.CityCorporationByCode(ctx, z.CityCorporationCode)
	if err != nil {
		return fmt.Errorf("load city corporation: %w", err)
	}
	if cc == nil {
		return fmt.Errorf("%w: city corporation %q does not exist", ErrInvalidGeography, z.CityCorporationCode)
	}
	if cc.Status != models.StatusActive {
		return fmt.Errorf("%w: city corporation %q is inactive", ErrInvalidGeography, z.CityCorporationCode)
	}

	siblings, err := t.repo.ZonesByCityCorporation(ctx, z.CityCorporationCode)
	if err != nil {
		return fmt.Errorf("load sibling zones: %w", err)
	}
	for _, s := range siblings {
		if s.ZoneNumber == z.ZoneNumber {
			return fmt.Errorf("%w: zone number %d already exists in %s", ErrInvalidGeography, z.ZoneNumber, z.CityCorporationCode)
		}
	}
	return nil
}

// ValidateNewWard is the write-side hook for ward creation: the owning
// zone must exist, the ward number must be unused within it and inside
// the corporation's declared range.
func (t *Tree) ValidateNewWard(ctx context.Context, w *models.Ward) error {
	zone, err := t.repo.ZoneByID(ctx, w.ZoneID)
	if err != nil {
		return fmt.Errorf("load zone: %w", err)
	}
	if zone == nil {
		return fmt.Errorf("%w: zone %s does not exist", ErrInvalidGeography, w.ZoneID)
	}

	cc, err := t.repo.CityCorporationByCode(ctx, zone.CityCorporationCode)
	if err != nil {
		return fmt.Errorf("load city corporation: %w", err)
	}
	if cc == nil {
		// The zone points at a corporation that is gone: the tree itself
		// has drifted.
		return fmt.Errorf("%w: zone %s references missing city corporation %q",
			ErrReferentialIntegrity, w.ZoneID, zone.CityCorporationCode)
	}
	if w.WardNumber < cc.MinWard || w.WardNumber > cc.MaxWard {
		return fmt.Errorf("%w: ward number %d outside %s range [%d, %d]",
			ErrInvalidGeography, w.WardNumber, cc.Code, cc.MinWard, cc.MaxWard)
	}

	siblings, err := t.repo.WardsByZone(ctx, w.ZoneID)
	if err != nil {
		return fmt.Errorf("load sibling wards: %w", err)
	}
	for _, s := range siblings {
		if s.WardNumber == w.WardNumber {
			return fmt.Errorf("%w: ward number %d already exists in zone %s", ErrInvalidGeography, w.WardNumber, w.ZoneID)
		}
	}
	return nil
}

// InvalidateCache drops the expansion cache. Every zone/ward write
// must call this before the write is acknowledged.
func (t *Tree) InvalidateCache() {
	t.cache.Invalidate()
	t.logger.Debug("geo cache invalidated")
}
