package scope

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
)

// fakeAssignments is an in-memory AssignmentReader.
type fakeAssignments struct {
	zones map[uuid.UUID][]uuid.UUID
}

func (f *fakeAssignments) AssignedZones(_ context.Context, staffID uuid.UUID) ([]uuid.UUID, error) {
	return f.zones[staffID], nil
}

// fakeGeoRepo implements repository.GeoRepository over maps; only the
// read paths the resolver exercises matter here.
type fakeGeoRepo struct {
	ccs   map[string]models.CityCorporation
	zones map[uuid.UUID]models.Zone
	wards map[uuid.UUID]models.Ward
}

func newFakeGeoRepo() *fakeGeoRepo {
	return &fakeGeoRepo{
		ccs:   map[string]models.CityCorporation{},
		zones: map[uuid.UUID]models.Zone{},
		wards: map[uuid.UUID]models.Ward{},
	}
}

func (f *fakeGeoRepo) CityCorporationByCode(_ context.Context, code string) (*models.CityCorporation, error) {
	if cc, ok := f.ccs[code]; ok {
		return &cc, nil
	}
	return nil, nil
}

func (f *fakeGeoRepo) ListCityCorporations(context.Context) ([]models.CityCorporation, error) {
	return nil, nil
}

func (f *fakeGeoRepo) CreateCityCorporation(_ context.Context, cc *models.CityCorporation) (*models.CityCorporation, error) {
	f.ccs[cc.Code] = *cc
	return cc, nil
}

func (f *fakeGeoRepo) ZoneByID(_ context.Context, id uuid.UUID) (*models.Zone, error) {
	if z, ok := f.zones[id]; ok {
		return &z, nil
	}
	return nil, nil
}

func (f *fakeGeoRepo) ZonesByCityCorporation(_ context.Context, code string) ([]models.Zone, error) {
	var out []models.Zone
	for _, z := range f.zones {
		if z.CityCorporationCode == code {
			out = append(out, z)
		}
	}
	return out, nil
}

func (f *fakeGeoRepo) CreateZone(_ context.Context, z *models.Zone) (*models.Zone, error) {
	f.zones[z.ID] = *z
	return z, nil
}

func (f *fakeGeoRepo) WardByID(_ context.Context, id uuid.UUID) (*models.Ward, error) {
	if w, ok := f.wards[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (f *fakeGeoRepo) WardsByZone(_ context.Context, zoneID uuid.UUID) ([]models.Ward, error) {
	var out []models.Ward
	for _, w := range f.wards {
		if w.ZoneID == zoneID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeGeoRepo) CreateWard(_ context.Context, w *models.Ward) (*models.Ward, error) {
	f.wards[w.ID] = *w
	return w, nil
}

func (f *fakeGeoRepo) ListThanas(context.Context) ([]models.Thana, error) { return nil, nil }

func (f *fakeGeoRepo) SetThanaMapping(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func newResolver(repo *fakeGeoRepo, assignments *fakeAssignments) (*Resolver, *geo.Tree) {
	tree := geo.NewTree(repo, geo.NewCache(), zap.NewNop())
	return NewResolver(assignments, tree, zap.NewNop()), tree
}

func TestResolveWardAdmin(t *testing.T) {
	wardID := uuid.New()
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.RoleWardAdmin, WardID: &wardID}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)

	require.True(t, pred.Matches(models.GeoPoint{WardID: wardID}))
	require.False(t, pred.Matches(models.GeoPoint{WardID: uuid.New()}))
	require.False(t, pred.IsEmpty())
}

func TestResolveWardAdminWithoutWardFailsClosed(t *testing.T) {
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.RoleWardAdmin}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)
	require.True(t, pred.IsEmpty())
	require.False(t, pred.Matches(models.GeoPoint{WardID: uuid.New()}))
}

func TestResolveZoneAdmin(t *testing.T) {
	staffID := uuid.New()
	zoneA, zoneB := uuid.New(), uuid.New()
	staff := &models.StaffIdentity{ID: staffID, Role: models.RoleZoneAdmin}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{
		zones: map[uuid.UUID][]uuid.UUID{staffID: {zoneA, zoneB}},
	})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)

	require.True(t, pred.Matches(models.GeoPoint{ZoneID: zoneA}))
	require.True(t, pred.Matches(models.GeoPoint{ZoneID: zoneB}))
	require.False(t, pred.Matches(models.GeoPoint{ZoneID: uuid.New()}))
}

func TestResolveZoneAdminWithNoGrantsFailsClosed(t *testing.T) {
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.RoleZoneAdmin}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)
	require.True(t, pred.IsEmpty())
}

func TestResolveCityAdminMatchesByCode(t *testing.T) {
	code := "DNCC"
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.RoleCityAdmin, CityCorporationCode: &code}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)

	require.True(t, pred.Matches(models.GeoPoint{CityCorporationCode: "DNCC", ZoneID: uuid.New(), WardID: uuid.New()}))
	require.False(t, pred.Matches(models.GeoPoint{CityCorporationCode: "DSCC"}))
}

func TestResolveUnknownRoleFailsClosed(t *testing.T) {
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.Role("SUPERUSER")}

	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)
	require.True(t, pred.IsEmpty())
}

func TestResolveNilStaffFailsClosed(t *testing.T) {
	r, _ := newResolver(newFakeGeoRepo(), &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, pred.IsEmpty())
}

func TestCoveredWardsExpandsCityAdminWithLiveTree(t *testing.T) {
	repo := newFakeGeoRepo()
	repo.ccs["DSCC"] = models.CityCorporation{Code: "DSCC", MinWard: 1, MaxWard: 75, Status: models.StatusActive}

	zoneID := uuid.New()
	repo.zones[zoneID] = models.Zone{ID: zoneID, ZoneNumber: 1, CityCorporationCode: "DSCC"}
	wardID := uuid.New()
	repo.wards[wardID] = models.Ward{ID: wardID, WardNumber: 5, ZoneID: zoneID}

	code := "DSCC"
	staff := &models.StaffIdentity{ID: uuid.New(), Role: models.RoleCityAdmin, CityCorporationCode: &code}

	r, tree := newResolver(repo, &fakeAssignments{zones: map[uuid.UUID][]uuid.UUID{}})
	pred, err := r.Resolve(context.Background(), staff)
	require.NoError(t, err)

	wards, err := r.CoveredWards(context.Background(), pred)
	require.NoError(t, err)
	require.Len(t, wards, 1)
	require.Contains(t, wards, wardID)

	// New geography under the corporation is covered with no
	// re-assignment step, once the write invalidates the cache.
	newZone := uuid.New()
	repo.zones[newZone] = models.Zone{ID: newZone, ZoneNumber: 2, CityCorporationCode: "DSCC"}
	newWard := uuid.New()
	repo.wards[newWard] = models.Ward{ID: newWard, WardNumber: 6, ZoneID: newZone}
	tree.InvalidateCache()

	wards, err = r.CoveredWards(context.Background(), pred)
	require.NoError(t, err)
	require.Len(t, wards, 2)
	require.Contains(t, wards, newWard)
}

func TestPredicateFilterRoundTrip(t *testing.T) {
	zoneID := uuid.New()
	pred := EmptyPredicate()
	pred.ZoneIDs[zoneID] = struct{}{}
	pred.CityCorporationCodes["DSCC"] = struct{}{}

	f := pred.Filter()
	require.ElementsMatch(t, []uuid.UUID{zoneID}, f.ZoneIDs)
	require.ElementsMatch(t, []string{"DSCC"}, f.CityCorporationCodes)
	require.Empty(t, f.WardIDs)
	require.False(t, f.Empty())

	require.True(t, EmptyPredicate().Filter().Empty())
}
