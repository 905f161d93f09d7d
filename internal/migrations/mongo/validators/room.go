package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"name",
			"price_per_night",
			"max_guests",
			"is_active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},
			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},
			"bed_type": bson.M{
				"bsonType":  "string",
				"maxLength": 50,
			},
			"price_per_night": bson.M{
				"bsonType": integer,
				"minimum":  1,
			},
			"max_guests": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  20,
			},
			"is_active": bson.M{
				"bsonType": "bool",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
