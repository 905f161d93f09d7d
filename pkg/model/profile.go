package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Profile mirrors an identity provider account. ID is the provider's user id.
type Profile struct {
	ID        string    `json:"id" bson:"_id" db:"id"`
	FullName  string    `json:"full_name" bson:"full_name" db:"full_name" validate:"required,min=2,max=100"`
	Role      string    `json:"role" bson:"role" db:"role" validate:"required,oneof=user admin"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" db:"created_at"`
}

type DashboardStats struct {
	TotalRooms       int64             `json:"total_rooms"`
	ActiveRooms      int64             `json:"active_rooms"`
	TotalUsers       int64             `json:"total_users"`
	TotalBookings    int64             `json:"total_bookings"`
	UpcomingBookings int64             `json:"upcoming_bookings"`
	RecentBookings   []*BookingDetails `json:"recent_bookings"`
}
