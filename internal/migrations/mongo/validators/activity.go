package validators

import "go.mongodb.org/mongo-driver/bson"

var ActivityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"event_type",
			"aggregate_id",
			"occurred_on",
			"recorded_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"event_type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"booking.created",
					"booking.confirmed",
					"booking.cancelled",
					"booking.completed",
					"payment.initiated",
					"payment.completed",
					"payment.failed",
					"payment.refunded",
					"user.created",
				},
			},

			"aggregate_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"booking_id": bson.M{"bsonType": "long"},
			"guest_id":   bson.M{"bsonType": "long"},

			"amount_minor": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z]{3}$",
			},

			"nights": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"occurred_on": bson.M{"bsonType": "date"},
			"recorded_at": bson.M{"bsonType": "date"},
		},
	},
}
