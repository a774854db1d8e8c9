package service

import (
	"context"
	"math"
	"sort"

	"github.com/iliyamo/bartab/internal/model"
)

const (
	defaultRadiusMiles = 10.0
	earthRadiusMiles   = 3958.8
)

// CatalogService serves venue search, menus and table codes.
type CatalogService struct {
	Catalog CatalogStore
}

func NewCatalogService(c CatalogStore) *CatalogService { return &CatalogService{Catalog: c} }

// NearQuery narrows a venue search to a circle. A nil query lists every
// active venue.
type NearQuery struct {
	Lat, Lng float64
	Radius   float64 // miles; 0 means the default
}

// Venues lists active venues with their rating average. With a query the
// result is limited to venues within the radius and sorted by distance.
func (s *CatalogService) Venues(ctx context.Context, q *NearQuery) ([]model.VenueSummary, error) {
	all, err := s.Catalog.ListActiveWithRatings(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].AvgRating = round1(all[i].AvgRating)
	}
	if q == nil {
		return all, nil
	}

	v := validator{}
	v.check(q.Lat >= -90 && q.Lat <= 90, "lat", "must be between -90 and 90")
	v.check(q.Lng >= -180 && q.Lng <= 180, "lng", "must be between -180 and 180")
	v.check(q.Radius >= 0, "radius", "must not be negative")
	if err := v.err(); err != nil {
		return nil, err
	}
	radius := q.Radius
	if radius == 0 {
		radius = defaultRadiusMiles
	}

	out := make([]model.VenueSummary, 0, len(all))
	for _, vs := range all {
		d := HaversineMiles(q.Lat, q.Lng, vs.Latitude, vs.Longitude)
		if d > radius {
			continue
		}
		d = round1(d)
		vs.Distance = &d
		out = append(out, vs)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	return out, nil
}

func (s *CatalogService) Venue(ctx context.Context, id uint64) (*model.Venue, error) {
	return s.Catalog.GetActive(ctx, id)
}

func (s *CatalogService) Menu(ctx context.Context, venueID uint64) (*model.Menu, error) {
	return s.Catalog.Menu(ctx, venueID)
}

// Table returns the table with the given printed number at an active venue.
func (s *CatalogService) Table(ctx context.Context, venueID uint64, number int) (*model.Venue, *model.Table, error) {
	v, err := s.Catalog.GetActive(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.Catalog.TableByNumber(ctx, venueID, number)
	if err != nil {
		return nil, nil, err
	}
	return v, t, nil
}

// ResolveTable maps a scanned QR payload to its venue and table.
func (s *CatalogService) ResolveTable(ctx context.Context, code string) (*model.Venue, *model.Table, error) {
	venueID, number, err := model.ParseTableQRPayload(code)
	if err != nil {
		return nil, nil, invalid("code", err.Error())
	}
	return s.Table(ctx, venueID, number)
}

// HaversineMiles is the great-circle distance between two points.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }
