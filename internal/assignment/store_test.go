package assignment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// fakeAssignmentRepo keeps the zone relation and per-staff versions in
// maps, bumping the version only on real state changes — same contract
// as the Postgres store.
type fakeAssignmentRepo struct {
	pairs    map[uuid.UUID]map[uuid.UUID]bool
	versions map[uuid.UUID]int64
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		pairs:    map[uuid.UUID]map[uuid.UUID]bool{},
		versions: map[uuid.UUID]int64{},
	}
}

func (f *fakeAssignmentRepo) bump(staffID uuid.UUID) int64 {
	f.versions[staffID]++
	return f.versions[staffID]
}

func (f *fakeAssignmentRepo) InsertZoneAssignment(_ context.Context, staffID, zoneID uuid.UUID, _ *uuid.UUID) (bool, int64, error) {
	if f.pairs[staffID][zoneID] {
		return false, 0, nil
	}
	if f.pairs[staffID] == nil {
		f.pairs[staffID] = map[uuid.UUID]bool{}
	}
	f.pairs[staffID][zoneID] = true
	return true, f.bump(staffID), nil
}

func (f *fakeAssignmentRepo) DeleteZoneAssignment(_ context.Context, staffID, zoneID uuid.UUID) (bool, int64, error) {
	if !f.pairs[staffID][zoneID] {
		return false, 0, nil
	}
	delete(f.pairs[staffID], zoneID)
	return true, f.bump(staffID), nil
}

func (f *fakeAssignmentRepo) ZoneIDsByStaff(_ context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for id := range f.pairs[staffID] {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeAssignmentRepo) AssignmentsByStaff(_ context.Context, staffID uuid.UUID) ([]models.ZoneAssignment, error) {
	var out []models.ZoneAssignment
	for id := range f.pairs[staffID] {
		out = append(out, models.ZoneAssignment{StaffID: staffID, ZoneID: id})
	}
	return out, nil
}

func (f *fakeAssignmentRepo) SetWardAssignment(_ context.Context, staffID, _ uuid.UUID) (int64, error) {
	return f.bump(staffID), nil
}

func (f *fakeAssignmentRepo) SetCityAssignment(_ context.Context, staffID uuid.UUID, _ string) (int64, error) {
	return f.bump(staffID), nil
}

func (f *fakeAssignmentRepo) ScopeVersion(_ context.Context, staffID uuid.UUID) (int64, error) {
	return f.versions[staffID], nil
}

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

// recordingBus captures published events; Subscribe is unused here.
type recordingBus struct {
	events []Changed
}

func (b *recordingBus) Publish(_ context.Context, ev Changed) error {
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Subscribe(context.Context) (<-chan Changed, error) {
	ch := make(chan Changed)
	close(ch)
	return ch, nil
}

type stubGeoRepo struct {
	repository.GeoRepository
	ccs   map[string]models.CityCorporation
	zones map[uuid.UUID]models.Zone
	wards map[uuid.UUID]models.Ward
}

func (s *stubGeoRepo) CityCorporationByCode(_ context.Context, code string) (*models.CityCorporation, error) {
	if cc, ok := s.ccs[code]; ok {
		return &cc, nil
	}
	return nil, nil
}

func (s *stubGeoRepo) ZoneByID(_ context.Context, id uuid.UUID) (*models.Zone, error) {
	if z, ok := s.zones[id]; ok {
		return &z, nil
	}
	return nil, nil
}

func (s *stubGeoRepo) WardByID(_ context.Context, id uuid.UUID) (*models.Ward, error) {
	if w, ok := s.wards[id]; ok {
		return &w, nil
	}
	return nil, nil
}

type fixture struct {
	store *Store
	repo  *fakeAssignmentRepo
	staff *fakeStaffRepo
	bus   *recordingBus

	zoneAdmin uuid.UUID
	wardAdmin uuid.UUID
	cityAdmin uuid.UUID
	zoneID    uuid.UUID
	wardID    uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		repo:      newFakeAssignmentRepo(),
		staff:     &fakeStaffRepo{staff: map[uuid.UUID]models.StaffIdentity{}},
		bus:       &recordingBus{},
		zoneAdmin: uuid.New(),
		wardAdmin: uuid.New(),
		cityAdmin: uuid.New(),
		zoneID:    uuid.New(),
		wardID:    uuid.New(),
	}
	f.staff.staff[f.zoneAdmin] = models.StaffIdentity{ID: f.zoneAdmin, Role: models.RoleZoneAdmin}
	f.staff.staff[f.wardAdmin] = models.StaffIdentity{ID: f.wardAdmin, Role: models.RoleWardAdmin}
	f.staff.staff[f.cityAdmin] = models.StaffIdentity{ID: f.cityAdmin, Role: models.RoleCityAdmin}

	geoRepo := &stubGeoRepo{
		ccs:   map[string]models.CityCorporation{"DSCC": {Code: "DSCC", MinWard: 1, MaxWard: 75}},
		zones: map[uuid.UUID]models.Zone{f.zoneID: {ID: f.zoneID, CityCorporationCode: "DSCC"}},
		wards: map[uuid.UUID]models.Ward{f.wardID: {ID: f.wardID, WardNumber: 3, ZoneID: f.zoneID}},
	}
	tree := geo.NewTree(geoRepo, geo.NewCache(), zap.NewNop())
	f.store = NewStore(f.repo, f.staff, tree, f.bus, zap.NewNop())
	return f
}

func TestAssignZonePublishesOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.store.AssignZone(ctx, f.zoneAdmin, f.zoneID, nil))
	require.Len(t, f.bus.events, 1)
	require.Equal(t, f.zoneAdmin, f.bus.events[0].StaffID)
	require.EqualValues(t, 1, f.bus.events[0].Version)

	// Re-granting the same zone is a silent no-op: no version bump, no
	// second event.
	require.NoError(t, f.store.AssignZone(ctx, f.zoneAdmin, f.zoneID, nil))
	require.Len(t, f.bus.events, 1)

	v, err := f.store.ScopeVersion(ctx, f.zoneAdmin)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
}

func TestAssignZoneRejectsWrongRole(t *testing.T) {
	f := newFixture()
	err := f.store.AssignZone(context.Background(), f.wardAdmin, f.zoneID, nil)
	require.ErrorIs(t, err, ErrRoleMismatch)
	require.Empty(t, f.bus.events)
}

func TestAssignZoneRejectsUnknownStaff(t *testing.T) {
	f := newFixture()
	err := f.store.AssignZone(context.Background(), uuid.New(), f.zoneID, nil)
	require.ErrorIs(t, err, ErrStaffNotFound)
}

func TestAssignZoneRejectsMissingZone(t *testing.T) {
	f := newFixture()
	err := f.store.AssignZone(context.Background(), f.zoneAdmin, uuid.New(), nil)
	require.ErrorIs(t, err, geo.ErrInvalidGeography)
	require.Empty(t, f.bus.events)
}

func TestUnassignZone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.store.AssignZone(ctx, f.zoneAdmin, f.zoneID, nil))
	require.NoError(t, f.store.UnassignZone(ctx, f.zoneAdmin, f.zoneID))
	require.Len(t, f.bus.events, 2)
	require.EqualValues(t, 2, f.bus.events[1].Version)

	zones, err := f.store.AssignedZones(ctx, f.zoneAdmin)
	require.NoError(t, err)
	require.Empty(t, zones)

	// Revoking a grant that does not exist is an error, not a no-op.
	err = f.store.UnassignZone(ctx, f.zoneAdmin, f.zoneID)
	require.ErrorIs(t, err, ErrNotAssigned)
	require.Len(t, f.bus.events, 2)
}

func TestSetWardAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.store.SetWardAssignment(ctx, f.wardAdmin, f.wardID))
	require.Len(t, f.bus.events, 1)

	err := f.store.SetWardAssignment(ctx, f.wardAdmin, uuid.New())
	require.ErrorIs(t, err, geo.ErrInvalidGeography)

	err = f.store.SetWardAssignment(ctx, f.zoneAdmin, f.wardID)
	require.ErrorIs(t, err, ErrRoleMismatch)
}

func TestSetCityAssignment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	require.NoError(t, f.store.SetCityAssignment(ctx, f.cityAdmin, "DSCC"))
	require.Len(t, f.bus.events, 1)

	err := f.store.SetCityAssignment(ctx, f.cityAdmin, "NOPE")
	require.ErrorIs(t, err, geo.ErrInvalidGeography)
}
