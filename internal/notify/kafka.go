package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/iliyamo/bartab/internal/model"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// RatingCreated is the analytics payload for a new rating.
type RatingCreated struct {
	RatingID      uint64 `json:"ratingId"`
	VenueID       uint64 `json:"venueId"`
	UserID        uint64 `json:"userId"`
	OverallRating int    `json:"overallRating"`
	DrinksRating  *int   `json:"drinksRating,omitempty"`
	VibeRating    *int   `json:"vibeRating,omitempty"`
	ServerRating  *int   `json:"serverRating,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// KafkaRatingPublisher writes rating.created messages keyed by venue id,
// so all ratings of a venue land on the same partition.
type KafkaRatingPublisher struct {
	w MessageWriter
}

func NewKafkaRatingPublisher(w MessageWriter) *KafkaRatingPublisher {
	return &KafkaRatingPublisher{w: w}
}

func (p *KafkaRatingPublisher) PublishRatingCreated(ctx context.Context, r *model.Rating) error {
	body, err := json.Marshal(RatingCreated{
		RatingID:      r.ID,
		VenueID:       r.VenueID,
		UserID:        r.UserID,
		OverallRating: r.OverallRating,
		DrinksRating:  r.DrinksRating,
		VibeRating:    r.VibeRating,
		ServerRating:  r.ServerRating,
		CreatedAt:     r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal rating: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(r.VenueID, 10)),
		Value: body,
	})
}
