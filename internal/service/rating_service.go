package service

import (
	"context"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/bartab/internal/model"
)

const ratingListLimit = 50

// RatingService records venue reviews and summarizes them.
type RatingService struct {
	Ratings   RatingStore
	Catalog   CatalogStore
	Tabs      TabStore
	Publisher RatingPublisher
	Now       func() time.Time
}

func NewRatingService(ratings RatingStore, catalog CatalogStore, tabs TabStore, pub RatingPublisher) *RatingService {
	return &RatingService{
		Ratings:   ratings,
		Catalog:   catalog,
		Tabs:      tabs,
		Publisher: pub,
		Now:       func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

func validStars(v validator, field string, n *int) {
	if n != nil {
		v.check(*n >= 1 && *n <= 5, field, "must be between 1 and 5")
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Create validates and stores a rating by userID, then announces it to
// analytics. A publish failure is logged and does not fail the request.
func (s *RatingService) Create(ctx context.Context, userID uint64, r *model.Rating) error {
	r.ServiceSpeed = trimmed(r.ServiceSpeed)
	r.CrowdLevel = trimmed(r.CrowdLevel)
	r.ServerName = trimmed(r.ServerName)
	r.Review = trimmed(r.Review)

	v := validator{}
	v.check(r.VenueID > 0, "venueId", "is required")
	v.check(r.OverallRating >= 1 && r.OverallRating <= 5, "overallRating", "must be between 1 and 5")
	validStars(v, "drinksRating", r.DrinksRating)
	validStars(v, "vibeRating", r.VibeRating)
	validStars(v, "serverRating", r.ServerRating)
	if r.ServiceSpeed != nil {
		v.check(slices.Contains(model.ServiceSpeeds, *r.ServiceSpeed), "serviceSpeed", "must be one of Fast, Moderate, Slow")
	}
	if r.CrowdLevel != nil {
		v.check(slices.Contains(model.CrowdLevels, *r.CrowdLevel), "crowdLevel", "must be one of Busy, Moderate, Empty")
	}
	if r.Review != nil {
		v.check(len(*r.Review) <= 2000, "review", "must be at most 2000 characters")
	}
	if err := v.err(); err != nil {
		return err
	}

	if _, err := s.Catalog.GetActive(ctx, r.VenueID); err != nil {
		return err
	}
	if r.TabID != nil {
		t, err := s.Tabs.GetForUser(ctx, *r.TabID, userID)
		if err != nil {
			return err
		}
		if t.VenueID != r.VenueID {
			return invalid("tabId", "does not belong to this venue")
		}
	}

	r.UserID = userID
	r.CreatedAt = s.Now()
	if err := s.Ratings.Create(ctx, r); err != nil {
		return err
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishRatingCreated(ctx, r); err != nil {
			log.Printf("kafka: publish rating %d: %v", r.ID, err)
		}
	}
	return nil
}

// ForVenue returns the newest ratings of a venue with their averages.
func (s *RatingService) ForVenue(ctx context.Context, venueID uint64) (*model.RatingSummary, error) {
	if venueID == 0 {
		return nil, invalid("venueId", "is required")
	}
	list, err := s.Ratings.ListForVenue(ctx, venueID, ratingListLimit)
	if err != nil {
		return nil, err
	}
	return &model.RatingSummary{Ratings: list, Averages: Averages(list), Total: len(list)}, nil
}

// Averages computes per-field means over the ratings carrying each field,
// rounded to one decimal. Missing fields average to 0.
func Averages(list []model.Rating) model.RatingAverages {
	var sum, cnt [4]int
	add := func(i int, n *int) {
		if n != nil {
			sum[i] += *n
			cnt[i]++
		}
	}
	for i := range list {
		r := &list[i]
		add(0, &r.OverallRating)
		add(1, r.DrinksRating)
		add(2, r.VibeRating)
		add(3, r.ServerRating)
	}
	mean := func(i int) float64 {
		if cnt[i] == 0 {
			return 0
		}
		return round1(float64(sum[i]) / float64(cnt[i]))
	}
	return model.RatingAverages{Overall: mean(0), Drinks: mean(1), Vibe: mean(2), Server: mean(3)}
}
