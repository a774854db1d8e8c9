package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/bartab/internal/model"
)

// RatingRepo persists venue ratings.
type RatingRepo struct {
	db *sql.DB
}

func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

// Create inserts a rating and fills its id.
func (r *RatingRepo) Create(ctx context.Context, rt *model.Rating) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ratings (venue_id, tab_id, user_id, overall_rating, drinks_rating, vibe_rating, server_rating,
		                     service_speed, crowd_level, server_name, review, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		rt.VenueID, nullID(rt.TabID), rt.UserID, rt.OverallRating,
		nullInt(rt.DrinksRating), nullInt(rt.VibeRating), nullInt(rt.ServerRating),
		nullStr(rt.ServiceSpeed), nullStr(rt.CrowdLevel), nullStr(rt.ServerName), nullStr(rt.Review),
		rt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rt.ID = uint64(id)
	return nil
}

// ListForVenue returns up to limit ratings for a venue, newest first.
func (r *RatingRepo) ListForVenue(ctx context.Context, venueID uint64, limit int) ([]model.Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, venue_id, tab_id, user_id, overall_rating, drinks_rating, vibe_rating, server_rating,
		       service_speed, crowd_level, server_name, review, created_at
		FROM ratings
		WHERE venue_id=?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, venueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Rating{}
	for rows.Next() {
		var (
			rt                   model.Rating
			tabID                sql.NullInt64
			drinks, vibe, server sql.NullInt64
			speed, crowd, sname  sql.NullString
			review               sql.NullString
		)
		if err := rows.Scan(&rt.ID, &rt.VenueID, &tabID, &rt.UserID, &rt.OverallRating,
			&drinks, &vibe, &server, &speed, &crowd, &sname, &review, &rt.CreatedAt); err != nil {
			return nil, err
		}
		rt.TabID = idPtr(tabID)
		rt.DrinksRating = intPtr(drinks)
		rt.VibeRating = intPtr(vibe)
		rt.ServerRating = intPtr(server)
		rt.ServiceSpeed = strPtr(speed)
		rt.CrowdLevel = strPtr(crowd)
		rt.ServerName = strPtr(sname)
		rt.Review = strPtr(review)
		out = append(out, rt)
	}
	return out, rows.Err()
}
