package validators

import (
	"slices"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func schemaOf(t *testing.T, v bson.M) ([]string, bson.M) {
	t.Helper()
	schema, ok := v["$jsonSchema"].(bson.M)
	if !ok {
		t.Fatal("validator has no $jsonSchema")
	}
	required, _ := schema["required"].([]string)
	properties, _ := schema["properties"].(bson.M)
	return required, properties
}

func TestValidators_RequiredFieldsAreDeclared(t *testing.T) {
	for name, v := range map[string]bson.M{
		"rooms":         RoomValidator,
		"bookings":      BookingValidator,
		"profiles":      ProfileValidator,
		"booking_locks": BookingLockValidator,
	} {
		t.Run(name, func(t *testing.T) {
			required, properties := schemaOf(t, v)
			if len(required) == 0 {
				t.Fatal("no required fields")
			}
			for _, field := range required {
				if _, ok := properties[field]; !ok {
					t.Errorf("required field %q has no property schema", field)
				}
			}
		})
	}
}

func TestBookingLockValidator_MatchesLockDocument(t *testing.T) {
	required, properties := schemaOf(t, BookingLockValidator)

	want := []string{"_id", "owner", "expires_at"}
	if !slices.Equal(required, want) {
		t.Errorf("required = %v, want %v", required, want)
	}
	expires, _ := properties["expires_at"].(bson.M)
	if expires["bsonType"] != "date" {
		t.Errorf("expires_at must be a date for the TTL index, got %v", expires["bsonType"])
	}
}
