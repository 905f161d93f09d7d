// Package events announces booking changes so that other services can drop
// their views of a room's availability.
package events

import (
	"context"
	"fmt"
	"time"

	"hotelbook/pkg/kafka"
	"hotelbook/pkg/model"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"

	schemaVersion = "1"
	source        = "hotelbook"
)

type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking, correlationID string) error
	BookingCancelled(ctx context.Context, booking *model.Booking, correlationID string) error
}

// BookingEvent is the JSON payload of both event types.
type BookingEvent struct {
	BookingID  string    `json:"booking_id"`
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	CheckIn    string    `json:"check_in"`
	CheckOut   string    `json:"check_out"`
	TotalPrice int64     `json:"total_price"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type sender interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer sender
	now      func() time.Time
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, now: time.Now}
}

func (p *KafkaPublisher) BookingCreated(ctx context.Context, b *model.Booking, correlationID string) error {
	return p.publish(ctx, EventBookingCreated, b, correlationID)
}

func (p *KafkaPublisher) BookingCancelled(ctx context.Context, b *model.Booking, correlationID string) error {
	return p.publish(ctx, EventBookingCancelled, b, correlationID)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, b *model.Booking, correlationID string) error {
	msg, err := kafka.NewMessage().
		WithKey(b.RoomID).
		WithValue(BookingEvent{
			BookingID:  b.ID,
			RoomID:     b.RoomID,
			UserID:     b.UserID,
			CheckIn:    b.CheckIn.Format(model.DateLayout),
			CheckOut:   b.CheckOut.Format(model.DateLayout),
			TotalPrice: b.TotalPrice,
			Status:     b.Status,
			OccurredAt: p.now().UTC(),
		}).
		WithEventType(eventType).
		WithCorrelationID(correlationID).
		WithSchemaVersion(schemaVersion).
		WithSource(source).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	return p.producer.Publish(ctx, msg)
}

// Noop is used when no brokers are configured.
type Noop struct{}

func (Noop) BookingCreated(context.Context, *model.Booking, string) error   { return nil }
func (Noop) BookingCancelled(context.Context, *model.Booking, string) error { return nil }
