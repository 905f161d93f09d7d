package validators

import "go.mongodb.org/mongo-driver/bson"

var ProfileValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "full_name", "role", "created_at"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"full_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},
			"role": bson.M{
				"enum": []string{"user", "admin"},
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
