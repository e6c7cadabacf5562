package location

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleancare/backend/internal/geo"
	"github.com/cleancare/backend/internal/models"
	"github.com/cleancare/backend/internal/repository"
)

// stubGeoRepo covers the three lookups chain validation needs; the
// embedded interface panics on anything else, which is the point.
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

// fakeComplaintRepo is an in-memory repository.ComplaintRepository.
type fakeComplaintRepo struct {
	complaints map[int64]models.Complaint
	nextID     int64
}

func newFakeComplaintRepo() *fakeComplaintRepo {
	return &fakeComplaintRepo{complaints: map[int64]models.Complaint{}, nextID: 1}
}

func (f *fakeComplaintRepo) Create(_ context.Context, c *models.Complaint) (*models.Complaint, error) {
	c.ID = f.nextID
	f.nextID++
	f.complaints[c.ID] = *c
	return c, nil
}

func (f *fakeComplaintRepo) GetByID(_ context.Context, id int64) (*models.Complaint, error) {
	if c, ok := f.complaints[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeComplaintRepo) ListByCitizen(context.Context, uuid.UUID, int, int) ([]models.Complaint, error) {
	return nil, nil
}

func (f *fakeComplaintRepo) ListByScope(context.Context, repository.ScopeFilter, int, int) ([]models.Complaint, error) {
	return nil, nil
}

func (f *fakeComplaintRepo) UpdateStatus(_ context.Context, id int64, status models.ComplaintStatus) error {
	c := f.complaints[id]
	c.Status = status
	f.complaints[id] = c
	return nil
}

func (f *fakeComplaintRepo) SetIncidentLocation(_ context.Context, id int64, loc models.GeoPoint) error {
	c := f.complaints[id]
	c.IncidentCityCorporationCode = &loc.CityCorporationCode
	c.IncidentZoneID = &loc.ZoneID
	c.IncidentWardID = &loc.WardID
	f.complaints[id] = c
	return nil
}

func (f *fakeComplaintRepo) SetIncidentLocationIfUnset(_ context.Context, id int64, loc models.GeoPoint) (bool, error) {
	c := f.complaints[id]
	if c.IncidentCityCorporationCode != nil || c.IncidentZoneID != nil || c.IncidentWardID != nil {
		return false, nil
	}
	c.IncidentCityCorporationCode = &loc.CityCorporationCode
	c.IncidentZoneID = &loc.ZoneID
	c.IncidentWardID = &loc.WardID
	f.complaints[id] = c
	return true, nil
}

func (f *fakeComplaintRepo) ListMissingIncident(_ context.Context, afterID int64, limit int) ([]models.Complaint, error) {
	var out []models.Complaint
	for _, c := range f.complaints {
		if c.ID > afterID && c.IncidentCityCorporationCode == nil && c.IncidentZoneID == nil && c.IncidentWardID == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeComplaintRepo) ListByThana(context.Context, uuid.UUID, int64, int) ([]models.Complaint, error) {
	return nil, nil
}

func TestDeriveIncidentLocationFillsWhenUnset(t *testing.T) {
	reporter := models.GeoPoint{CityCorporationCode: "DSCC", ZoneID: uuid.New(), WardID: uuid.New()}
	c := models.Complaint{ID: 1}

	out := DeriveIncidentLocation(c, reporter)
	loc, ok := out.IncidentLocation()
	require.True(t, ok)
	require.Equal(t, reporter, loc)
}

func TestDeriveIncidentLocationNeverOverwrites(t *testing.T) {
	existing := "DNCC"
	c := models.Complaint{ID: 1, IncidentCityCorporationCode: &existing}

	out := DeriveIncidentLocation(c, models.GeoPoint{CityCorporationCode: "DSCC", ZoneID: uuid.New(), WardID: uuid.New()})

	// Even a partially-set triple blocks derivation; the remaining
	// fields stay nil rather than being mixed from the reporter.
	require.Equal(t, "DNCC", *out.IncidentCityCorporationCode)
	require.Nil(t, out.IncidentZoneID)
	require.Nil(t, out.IncidentWardID)
}

func TestBackfillIsIdempotent(t *testing.T) {
	complaints := newFakeComplaintRepo()
	zoneID, wardID := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		_, err := complaints.Create(context.Background(), &models.Complaint{
			ReporterCityCorporationCode: "DSCC",
			ReporterZoneID:              zoneID,
			ReporterWardID:              wardID,
		})
		require.NoError(t, err)
	}
	// One complaint already has its incident triple; backfill must skip it.
	code := "DNCC"
	otherZone, otherWard := uuid.New(), uuid.New()
	_, err := complaints.Create(context.Background(), &models.Complaint{
		ReporterCityCorporationCode: "DSCC",
		ReporterZoneID:              zoneID,
		ReporterWardID:              wardID,
		IncidentCityCorporationCode: &code,
		IncidentZoneID:              &otherZone,
		IncidentWardID:              &otherWard,
	})
	require.NoError(t, err)

	tree := geo.NewTree(&stubGeoRepo{}, geo.NewCache(), zap.NewNop())
	sync := NewSync(tree, complaints, zap.NewNop())

	updated, err := sync.Backfill(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)

	// The explicitly-located complaint was not touched.
	c, err := complaints.GetByID(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, "DNCC", *c.IncidentCityCorporationCode)

	// A second sweep finds nothing left to do.
	updated, err = sync.Backfill(context.Background())
	require.NoError(t, err)
	require.Zero(t, updated)
}

func TestSetIncidentLocationValidatesChain(t *testing.T) {
	repo := &stubGeoRepo{
		ccs:   map[string]models.CityCorporation{"DSCC": {Code: "DSCC", MinWard: 1, MaxWard: 75}},
		zones: map[uuid.UUID]models.Zone{},
		wards: map[uuid.UUID]models.Ward{},
	}
	zoneID := uuid.New()
	repo.zones[zoneID] = models.Zone{ID: zoneID, CityCorporationCode: "DSCC"}
	wardID := uuid.New()
	repo.wards[wardID] = models.Ward{ID: wardID, WardNumber: 10, ZoneID: zoneID}

	complaints := newFakeComplaintRepo()
	_, err := complaints.Create(context.Background(), &models.Complaint{})
	require.NoError(t, err)

	tree := geo.NewTree(repo, geo.NewCache(), zap.NewNop())
	sync := NewSync(tree, complaints, zap.NewNop())

	// Ward from a different zone: rejected, nothing written.
	err = sync.SetIncidentLocation(context.Background(), 1, models.GeoPoint{
		CityCorporationCode: "DSCC", ZoneID: uuid.New(), WardID: wardID,
	})
	require.ErrorIs(t, err, geo.ErrInvalidGeography)

	c, err := complaints.GetByID(context.Background(), 1)
	require.NoError(t, err)
	_, ok := c.IncidentLocation()
	require.False(t, ok)

	// Consistent chain: written.
	err = sync.SetIncidentLocation(context.Background(), 1, models.GeoPoint{
		CityCorporationCode: "DSCC", ZoneID: zoneID, WardID: wardID,
	})
	require.NoError(t, err)

	c, err = complaints.GetByID(context.Background(), 1)
	require.NoError(t, err)
	loc, ok := c.IncidentLocation()
	require.True(t, ok)
	require.Equal(t, wardID, loc.WardID)
}
