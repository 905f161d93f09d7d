package mongo

const (
	CollectionRooms    = "Rooms"
	CollectionBookings = "Bookings"
	CollectionProfiles = "Profiles"
)
