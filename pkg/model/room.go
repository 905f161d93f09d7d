package model

import "time"

type Room struct {
	ID            string    `json:"id" bson:"_id" db:"id"`
	Name          string    `json:"name" bson:"name" db:"name" validate:"required,min=2,max=100"`
	Description   string    `json:"description" bson:"description" db:"description" validate:"max=2000"`
	BedType       string    `json:"bed_type" bson:"bed_type" db:"bed_type" validate:"max=50"`
	PricePerNight int64     `json:"price_per_night" bson:"price_per_night" db:"price_per_night" validate:"required,gt=0"`
	MaxGuests     int       `json:"max_guests" bson:"max_guests" db:"max_guests" validate:"required,min=1,max=20"`
	IsActive      bool      `json:"is_active" bson:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

type RoomUpdate struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	BedType       *string `json:"bed_type,omitempty" validate:"omitempty,max=50"`
	PricePerNight *int64  `json:"price_per_night,omitempty" validate:"omitempty,gt=0"`
	MaxGuests     *int    `json:"max_guests,omitempty" validate:"omitempty,min=1,max=20"`
	IsActive      *bool   `json:"is_active,omitempty"`
}
