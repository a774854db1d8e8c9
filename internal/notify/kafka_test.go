package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bartab/internal/model"
)

type mockWriter struct{ mock.Mock }

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func TestKafkaRatingPublisher_KeysByVenue(t *testing.T) {
	w := new(mockWriter)
	drinks := 4
	r := &model.Rating{
		ID:            9,
		VenueID:       3,
		UserID:        12,
		OverallRating: 5,
		DrinksRating:  &drinks,
		CreatedAt:     time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
	}

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "3" {
			return false
		}
		var body RatingCreated
		if err := json.Unmarshal(msgs[0].Value, &body); err != nil {
			return false
		}
		return body.RatingID == 9 && body.OverallRating == 5 && body.DrinksRating != nil && *body.DrinksRating == 4 &&
			body.CreatedAt == "2026-03-01T20:00:00Z"
	})).Return(nil).Once()

	require.NoError(t, NewKafkaRatingPublisher(w).PublishRatingCreated(context.Background(), r))
	w.AssertExpectations(t)
}

func TestKafkaRatingPublisher_PropagatesWriteError(t *testing.T) {
	w := new(mockWriter)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(kafka.LeaderNotAvailable).Once()

	err := NewKafkaRatingPublisher(w).PublishRatingCreated(context.Background(), &model.Rating{ID: 1, VenueID: 1})
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}
