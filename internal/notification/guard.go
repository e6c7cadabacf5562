package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/assignment"
	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
	"github.com/cleancare/backend/internal/scope"
)

// ReconcileResult reports what one reconciliation sweep did.
type ReconcileResult struct {
	Removed int `json:"removed"`
	Kept    int `json:"kept"`
}

// Guard filters outbound notifications through the scope resolver and
// cleans up already-stored ones when a staff member's assignment
// changes, so revoked access provably stops showing complaints instead
// of lingering in an inbox.
type Guard struct {
	resolver      *scope.Resolver
	staff         repository.StaffRepository
	complaints    repository.ComplaintRepository
	notifications repository.NotificationRepository
	logger        *zap.Logger
}

func NewGuard(
	resolver *scope.Resolver,
	staff repository.StaffRepository,
	complaints repository.ComplaintRepository,
	notifications repository.NotificationRepository,
	logger *zap.Logger,
) *Guard {
	return &Guard{
		resolver:      resolver,
		staff:         staff,
		complaints:    complaints,
		notifications: notifications,
		logger:        logger,
	}
}

// ShouldDeliver decides whether a notification about the complaint may
// reach its recipient right now, by resolving the recipient's current
// predicate and matching it against the complaint's incident location.
// A recipient that no longer exists gets nothing.
func (g *Guard) ShouldDeliver(ctx context.Context, n *models.Notification, c *models.Complaint) (bool, error) {
	staff, err := g.staff.GetByID(ctx, n.RecipientStaffID)
	if err != nil {
		return false, fmt.Errorf("load recipient: %w", err)
	}
	if staff == nil {
		g.logger.Warn("notification recipient no longer exists",
			zap.String("staff_id", n.RecipientStaffID.String()),
			zap.Int64("notification_id", n.ID),
		)
		return false, nil
	}

	pred, err := g.resolver.Resolve(ctx, staff)
	if err != nil {
		return false, fmt.Errorf("resolve recipient scope: %w", err)
	}
	return pred.Matches(complaintLocation(c)), nil
}

// Reconcile re-checks every unread notification stored for the staff
// against their current scope and removes the ones whose complaint is
// no longer covered. Read notifications are historical record and are
// left alone.
//
// The predicate is re-resolved immediately before each delete
// decision rather than once up front. That is what makes the sweep
// safe to run concurrently with a new grant for the same staff: a
// zone added mid-sweep is visible to every later decision, so its
// notifications are kept, and the grant's own event triggers another
// sweep anyway. Each decision is independent and idempotent, so the
// sweep is abortable at any point with nothing to roll back.
//
// A failure on one notification does not stop the sweep; failures are
// joined and returned at the end.
func (g *Guard) Reconcile(ctx context.Context, staffID uuid.UUID) (ReconcileResult, error) {
	var res ReconcileResult

	unread, err := g.notifications.ListUnreadByStaff(ctx, staffID)
	if err != nil {
		return res, fmt.Errorf("list unread notifications: %w", err)
	}

	var errs []error
	for _, n := range unread {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		c, err := g.complaints.GetByID(ctx, n.ComplaintID)
		if err != nil {
			errs = append(errs, fmt.Errorf("notification %d: load complaint %d: %w", n.ID, n.ComplaintID, err))
			res.Kept++
			continue
		}
		if c == nil {
			// The notification points at a complaint that is gone. Keep it
			// and report the drift instead of guessing.
			errs = append(errs, fmt.Errorf("notification %d: %w: complaint %d missing",
				n.ID, geo.ErrReferentialIntegrity, n.ComplaintID))
			res.Kept++
			continue
		}

		// Fresh staff read plus fresh resolve per decision, so an
		// assignment committed mid-sweep is honored from here on.
		staff, err := g.staff.GetByID(ctx, staffID)
		if err != nil {
			errs = append(errs, fmt.Errorf("notification %d: load staff: %w", n.ID, err))
			res.Kept++
			continue
		}
		pred, err := g.resolver.Resolve(ctx, staff)
		if err != nil {
			errs = append(errs, fmt.Errorf("notification %d: resolve scope: %w", n.ID, err))
			res.Kept++
			continue
		}

		if pred.Matches(complaintLocation(c)) {
			res.Kept++
			continue
		}

		if err := g.notifications.Delete(ctx, n.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete notification %d: %w", n.ID, err))
			res.Kept++
			continue
		}
		res.Removed++
	}

	return res, errors.Join(errs...)
}

// Run consumes AssignmentChanged events until ctx is cancelled. A
// failed sweep for one staff identity is logged and never stops
// reconciliation for the others.
func (g *Guard) Run(ctx context.Context, events <-chan assignment.Changed) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			res, err := g.Reconcile(ctx, ev.StaffID)
			if err != nil {
				g.logger.Error("notification reconciliation failed",
					zap.String("staff_id", ev.StaffID.String()),
					zap.Int64("scope_version", ev.Version),
					zap.Error(err),
				)
			}
			g.logger.Info("notifications reconciled",
				zap.String("staff_id", ev.StaffID.String()),
				zap.Int64("scope_version", ev.Version),
				zap.Int("removed", res.Removed),
				zap.Int("kept", res.Kept),
			)
		}
	}
}

// complaintLocation is the triple scope decisions read: the incident
// location, falling back to the reporter triple only for legacy rows
// the backfill has not reached yet.
func complaintLocation(c *models.Complaint) models.GeoPoint {
	if loc, ok := c.IncidentLocation(); ok {
		return loc
	}
	return c.ReporterLocation()
}
