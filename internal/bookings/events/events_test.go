package events

import (
	"context"
	"testing"
	"time"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	msgs []kafka.Message
}

func (s *recordingSender) Publish(_ context.Context, msg kafka.Message) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

func TestKafkaPublisher_BookingCreated(t *testing.T) {
	rec := &recordingSender{}
	occurred := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	p := &KafkaPublisher{producer: rec, now: func() time.Time { return occurred }}

	b := &model.Booking{
		ID:         "b-1",
		RoomID:     "room-1",
		UserID:     "user-1",
		CheckIn:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		TotalPrice: 30000,
		Status:     model.BookingStatusConfirmed,
	}
	require.NoError(t, p.BookingCreated(context.Background(), b, "req-1"))
	require.Len(t, rec.msgs, 1)

	msg := rec.msgs[0]
	assert.Equal(t, "room-1", msg.Key)
	assert.Equal(t, EventBookingCreated, msg.EventType())
	assert.Equal(t, "req-1", msg.Headers[kafka.HeaderCorrelationID])
	assert.NotEmpty(t, msg.EventID())

	var ev BookingEvent
	require.NoError(t, msg.DecodeValue(&ev))
	assert.Equal(t, "b-1", ev.BookingID)
	assert.Equal(t, "2024-03-01", ev.CheckIn)
	assert.Equal(t, "2024-03-04", ev.CheckOut)
	assert.Equal(t, int64(30000), ev.TotalPrice)
	assert.True(t, ev.OccurredAt.Equal(occurred))
}

func TestKafkaPublisher_BookingCancelledWithoutCorrelation(t *testing.T) {
	rec := &recordingSender{}
	p := &KafkaPublisher{producer: rec, now: time.Now}

	b := &model.Booking{ID: "b-2", RoomID: "room-2", Status: model.BookingStatusCancelled}
	require.NoError(t, p.BookingCancelled(context.Background(), b, ""))
	require.Len(t, rec.msgs, 1)

	assert.Equal(t, EventBookingCancelled, rec.msgs[0].EventType())
	_, ok := rec.msgs[0].Headers[kafka.HeaderCorrelationID]
	assert.False(t, ok)
}
