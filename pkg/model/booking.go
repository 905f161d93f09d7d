package model

import (
	"time"
)

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

type Booking struct {
	ID         string    `json:"id" bson:"_id" db:"id"`
	RoomID     string    `json:"room_id" bson:"room_id" db:"room_id"`
	UserID     string    `json:"user_id" bson:"user_id" db:"user_id"`
	CheckIn    time.Time `json:"check_in" bson:"check_in" db:"check_in"`
	CheckOut   time.Time `json:"check_out" bson:"check_out" db:"check_out"`
	TotalPrice int64     `json:"total_price" bson:"total_price" db:"total_price"`
	Status     string    `json:"status" bson:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

// BookingRequest is what a guest submits. Dates stay strings until the
// committer parses them so that missing and malformed dates can be told apart.
type BookingRequest struct {
	RoomID     string `json:"room_id" validate:"required,uuid"`
	CheckIn    string `json:"check_in" validate:"required"`
	CheckOut   string `json:"check_out" validate:"required"`
	TotalPrice int64  `json:"total_price" validate:"gte=0"`
}

// BookingDetails is a booking joined with the display fields of its room and guest.
type BookingDetails struct {
	*Booking
	RoomName          string `json:"room_name,omitempty"`
	RoomPricePerNight int64  `json:"room_price_per_night,omitempty"`
	UserFullName      string `json:"user_full_name,omitempty"`
}

func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// Availability answers "can this room be booked for these dates" together
// with the price the stay would cost.
type Availability struct {
	RoomID     string    `json:"room_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Available  bool      `json:"available"`
	Nights     int64     `json:"nights"`
	TotalPrice int64     `json:"total_price"`
}
