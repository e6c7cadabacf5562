package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
	"github.com/cleancare/backend/internal/scope"
)

type fakeStaffRepo struct {
	staff map[uuid.UUID]models.StaffIdentity
}

func (f *fakeStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*models.StaffIdentity, error) {
	if s, ok := f.staff[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeStaffRepo) GetByEmail(context.Context, string) (*models.StaffIdentity, error) {
	return nil, nil
}

func (f *fakeStaffRepo) Create(_ context.Context, s *models.StaffIdentity) (*models.StaffIdentity, error) {
	f.staff[s.ID] = *s
	return s, nil
}

type fakeComplaintRepo struct {
	repository.ComplaintRepository
	complaints map[int64]models.Complaint
}

func (f *fakeComplaintRepo) GetByID(_ context.Context, id int64) (*models.Complaint, error) {
	if c, ok := f.complaints[id]; ok {
		return &c, nil
	}
	return nil, nil
}

type fakeNotificationRepo struct {
	repository.NotificationRepository
	notifications map[int64]models.Notification
}

func (f *fakeNotificationRepo) ListUnreadByStaff(_ context.Context, staffID uuid.UUID) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.RecipientStaffID == staffID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, id int64) error {
	delete(f.notifications, id)
	return nil
}

type fakeAssignments struct {
	zones map[uuid.UUID][]uuid.UUID
}

func (f *fakeAssignments) AssignedZones(_ context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	return f.zones[staffID], nil
}

type stubGeoRepo struct {
	repository.GeoRepository
}

type guardFixture struct {
	guard         *Guard
	staff         *fakeStaffRepo
	complaints    *fakeComplaintRepo
	notifications *fakeNotificationRepo
	assignments   *fakeAssignments

	staffID uuid.UUID
	zoneIn  uuid.UUID
	zoneOut uuid.UUID
}

func newGuardFixture() *guardFixture {
	f := &guardFixture{
		staff:         &fakeStaffRepo{staff: map[uuid.UUID]models.StaffIdentity{}},
		complaints:    &fakeComplaintRepo{complaints: map[int64]models.Complaint{}},
		notifications: &fakeNotificationRepo{notifications: map[int64]models.Notification{}},
		staffID:       uuid.New(),
		zoneIn:        uuid.New(),
		zoneOut:       uuid.New(),
	}

	// A ZONE_ADMIN holding only zoneIn.
	f.staff.staff[f.staffID] = models.StaffIdentity{ID: f.staffID, Role: models.RoleZoneAdmin}
	f.assignments = &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{f.staffID: {f.zoneIn}}}

	tree := geo.NewTree(&stubGeoRepo{}, geo.NewCache(), zap.NewNop())
	resolver := scope.NewResolver(f.assignments, tree, zap.NewNop())
	f.guard = NewGuard(resolver, f.staff, f.complaints, f.notifications, zap.NewNop())
	return f
}

func (f *guardFixture) addComplaint(id int64, zoneID uuid.UUID) {
	code := "DSCC"
	wardID := uuid.New()
	f.complaints.complaints[id] = models.Complaint{
		ID:                          id,
		IncidentCityCorporationCode: &code,
		IncidentZoneID:              &zoneID,
		IncidentWardID:              &wardID,
	}
}

func (f *guardFixture) addNotification(id, complaintID int64, read bool) {
	f.notifications.notifications[id] = models.Notification{
		ID:               id,
		RecipientStaffID: f.staffID,
		ComplaintID:      complaintID,
		Read:             read,
	}
}

func TestReconcileRemovesOutOfScopeUnread(t *testing.T) {
	f := newGuardFixture()
	f.addComplaint(1, f.zoneIn)
	f.addComplaint(2, f.zoneOut)
	f.addNotification(10, 1, false)
	f.addNotification(11, 2, false)

	res, err := f.guard.Reconcile(context.Background(), f.staffID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Removed)
	require.Equal(t, 1, res.Kept)

	require.Contains(t, f.notifications.notifications, int64(10))
	require.NotContains(t, f.notifications.notifications, int64(11))
}

func TestReconcileLeavesReadNotificationsAlone(t *testing.T) {
	f := newGuardFixture()
	f.addComplaint(2, f.zoneOut)
	// Out of scope, but already read: historical record.
	f.addNotification(11, 2, true)

	res, err := f.guard.Reconcile(context.Background(), f.staffID)
	require.NoError(t, err)
	require.Zero(t, res.Removed)
	require.Contains(t, f.notifications.notifications, int64(11))
}

func TestReconcileKeepsNotificationWithMissingComplaint(t *testing.T) {
	f := newGuardFixture()
	f.addNotification(12, 999, false)

	res, err := f.guard.Reconcile(context.Background(), f.staffID)
	require.ErrorIs(t, err, geo.ErrReferentialIntegrity)
	require.Zero(t, res.Removed)
	require.Equal(t, 1, res.Kept)
	require.Contains(t, f.notifications.notifications, int64(12))
}

func TestReconcileRemovesEverythingWhenUnscoped(t *testing.T) {
	f := newGuardFixture()
	f.assignments.zones[f.staffID] = nil
	f.addComplaint(1, f.zoneIn)
	f.addNotification(10, 1, false)

	res, err := f.guard.Reconcile(context.Background(), f.staffID)
	require.NoError(t, err)
	require.Equal(t, 1, res.Removed)
	require.Empty(t, f.notifications.notifications)
}

func TestShouldDeliver(t *testing.T) {
	f := newGuardFixture()
	f.addComplaint(1, f.zoneIn)
	f.addComplaint(2, f.zoneOut)

	in := f.complaints.complaints[1]
	out := f.complaints.complaints[2]

	deliver, err := f.guard.ShouldDeliver(context.Background(), &models.Notification{RecipientStaffID: f.staffID, ComplaintID: 1}, &in)
	require.NoError(t, err)
	require.True(t, deliver)

	deliver, err = f.guard.ShouldDeliver(context.Background(), &models.Notification{RecipientStaffID: f.staffID, ComplaintID: 2}, &out)
	require.NoError(t, err)
	require.False(t, deliver)

	// Recipient that no longer exists: suppressed, not an error.
	deliver, err = f.guard.ShouldDeliver(context.Background(), &models.Notification{RecipientStaffID: uuid.New(), ComplaintID: 1}, &in)
	require.NoError(t, err)
	require.False(t, deliver)
}

func TestShouldDeliverFallsBackToReporterForLegacyRows(t *testing.T) {
	f := newGuardFixture()

	// Pre-backfill row: no incident triple, reporter lives in zoneIn.
	legacy := models.Complaint{
		ID:                          3,
		ReporterCityCorporationCode: "DSCC",
		ReporterZoneID:              f.zoneIn,
		ReporterWardID:              uuid.New(),
	}
	f.complaints.complaints[3] = legacy

	deliver, err := f.guard.ShouldDeliver(context.Background(), &models.Notification{RecipientStaffID: f.staffID, ComplaintID: 3}, &legacy)
	require.NoError(t, err)
	require.True(t, deliver)
}
