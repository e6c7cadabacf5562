package migrate

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

const complaintBatch = 500

// ThanaMigrator retires the legacy thana layer. Each thana is mapped
// once to its replacement zone/ward pair, then historical complaints
// that still carry only a thana reference get their incident triple
// backfilled from that mapping. Thanas stay readable forever; they are
// just never a write target for new scope decisions.
type ThanaMigrator struct {
	geoRepo    repository.GeoRepository
	complaints repository.ComplaintRepository
	tree       *geo.Tree
	logger     *zap.Logger
}

func NewThanaMigrator(geoRepo repository.GeoRepository, complaints repository.ComplaintRepository, tree *geo.Tree, logger *zap.Logger) *ThanaMigrator {
	return &ThanaMigrator{geoRepo: geoRepo, complaints: complaints, tree: tree, logger: logger}
}

// MapThana records which zone/ward replaces a thana. The replacement
// chain is validated against the thana's own city corporation before
// the mapping is stored; an inconsistent chain is rejected with
// ErrInvalidGeography.
func (m *ThanaMigrator) MapThana(ctx context.Context, thanaID, zoneID, wardID uuid.UUID) error {
	thanas, err := m.geoRepo.ListThanas(ctx)
	if err != nil {
		return fmt.Errorf("list thanas: %w", err)
	}

	var ccCode string
	found := false
	for _, t := range thanas {
		if t.ID == thanaID {
			ccCode = t.CityCorporationCode
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: thana %s does not exist", geo.ErrInvalidGeography, thanaID)
	}

	if err := m.tree.ValidateChain(ctx, wardID, zoneID, ccCode); err != nil {
		return err
	}
	if err := m.geoRepo.SetThanaMapping(ctx, thanaID, zoneID, wardID); err != nil {
		return fmt.Errorf("store thana mapping: %w", err)
	}
	return nil
}

// Result reports one migration run.
type Result struct {
	Backfilled     int64
	UnmappedThanas int
}

// Run backfills the incident triple on every pre-migration complaint
// whose thana has a mapping. The write only lands where all three
// incident columns are still NULL, so re-running after a previous
// successful run changes zero rows. Thanas without a mapping are
// counted and skipped, never guessed.
func (m *ThanaMigrator) Run(ctx context.Context) (Result, error) {
	var res Result

	thanas, err := m.geoRepo.ListThanas(ctx)
	if err != nil {
		return res, fmt.Errorf("list thanas: %w", err)
	}

	for _, t := range thanas {
		if t.ZoneID == nil || t.WardID == nil {
			res.UnmappedThanas++
			m.logger.Warn("thana has no zone/ward mapping, skipping",
				zap.String("thana_id", t.ID.String()),
				zap.String("thana_name", t.Name),
			)
			continue
		}

		target := models.GeoPoint{
			CityCorporationCode: t.CityCorporationCode,
			ZoneID:              *t.ZoneID,
			WardID:              *t.WardID,
		}
		if err := m.tree.ValidatePoint(ctx, target); err != nil {
			return res, fmt.Errorf("thana %s mapping: %w", t.ID, err)
		}

		var afterID int64
		for {
			batch, err := m.complaints.ListByThana(ctx, t.ID, afterID, complaintBatch)
			if err != nil {
				return res, fmt.Errorf("list complaints for thana %s: %w", t.ID, err)
			}
			if len(batch) == 0 {
				break
			}
			for _, c := range batch {
				changed, err := m.complaints.SetIncidentLocationIfUnset(ctx, c.ID, target)
				if err != nil {
					return res, fmt.Errorf("backfill complaint %d: %w", c.ID, err)
				}
				if changed {
					res.Backfilled++
				}
				afterID = c.ID
			}
		}
	}

	m.logger.Info("thana migration run finished",
		zap.Int64("backfilled", res.Backfilled),
		zap.Int("unmapped_thanas", res.UnmappedThanas),
	)
	return res, nil
}
