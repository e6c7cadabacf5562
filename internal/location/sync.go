package location

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// backfillBatch is how many incident-less complaints one repository
// page holds during a backfill sweep.
const backfillBatch = 500

// Sync keeps a complaint's two location triples consistent without
// destructive overwrites. The reporter triple answers "where does the
// reporter live"; the incident triple answers "where is the problem"
// and is the only one scope filtering reads.
type Sync struct {
	tree       *geo.Tree
	complaints repository.ComplaintRepository
	logger     *zap.Logger
}

func NewSync(tree *geo.Tree, complaints repository.ComplaintRepository, logger *zap.Logger) *Sync {
	return &Sync{tree: tree, complaints: complaints, logger: logger}
}

// DeriveIncidentLocation fills the incident triple from the reporter
// triple when, and only when, all three incident fields are unset. If
// any incident field is already present the complaint is returned
// untouched: partial incident data is never mixed with partial
// reporter data, so the chain on a complaint is always from a single
// source.
func DeriveIncidentLocation(c models.Complaint, reporter models.GeoPoint) models.Complaint {
	if c.IncidentCityCorporationCode != nil || c.IncidentZoneID != nil || c.IncidentWardID != nil {
		return c
	}
	code := reporter.CityCorporationCode
	zoneID := reporter.ZoneID
	wardID := reporter.WardID
	c.IncidentCityCorporationCode = &code
	c.IncidentZoneID = &zoneID
	c.IncidentWardID = &wardID
	return c
}

// SetIncidentLocation is the explicit relocation edit: the only path
// that may overwrite an already-set incident triple. The new chain is
// validated before the write; an inconsistent chain is rejected with
// ErrInvalidGeography, never corrected after the fact.
func (s *Sync) SetIncidentLocation(ctx context.Context, complaintID int64, loc models.GeoPoint) error {
	if err := s.tree.ValidatePoint(ctx, loc); err != nil {
		return err
	}
	if err := s.complaints.SetIncidentLocation(ctx, complaintID, loc); err != nil {
		return fmt.Errorf("set incident location: %w", err)
	}
	return nil
}

// Backfill sweeps complaints whose incident triple is entirely NULL
// and fills it from the reporter triple. Returns how many rows
// changed.
//
// The write primitive only touches rows where all three incident
// columns are still NULL, so a second run over the same set changes
// zero rows — the sweep is idempotent and safe to abort anywhere.
func (s *Sync) Backfill(ctx context.Context) (int64, error) {
	var updated int64
	var afterID int64

	for {
		batch, err := s.complaints.ListMissingIncident(ctx, afterID, backfillBatch)
		if err != nil {
			return updated, fmt.Errorf("list complaints missing incident location: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			changed, err := s.complaints.SetIncidentLocationIfUnset(ctx, c.ID, c.ReporterLocation())
			if err != nil {
				return updated, fmt.Errorf("backfill complaint %d: %w", c.ID, err)
			}
			if changed {
				updated++
			}
			afterID = c.ID
		}
	}

	s.logger.Info("incident location backfill finished", zap.Int64("updated", updated))
	return updated, nil
}
