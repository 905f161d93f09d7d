package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"room_id",
			"user_id",
			"check_in",
			"check_out",
			"total_price",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},
			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"check_in": bson.M{
				"bsonType": "date",
			},
			"check_out": bson.M{
				"bsonType": "date",
			},
			"total_price": bson.M{
				"bsonType": integer,
				"minimum":  0,
			},
			"status": bson.M{
				"enum": []string{"confirmed", "cancelled"},
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
	// check_in < check_out
	"$expr": bson.M{"$lt": []string{"$check_in", "$check_out"}},
}
