package validators

import "go.mongodb.org/mongo-driver/bson"

var DailyStatsValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "day", "events_total"},
		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},
			"day": bson.M{"bsonType": "string"},
			"events_total": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},
			"counts":        bson.M{"bsonType": "object"},
			"amounts":       bson.M{"bsonType": "object"},
			"last_event_at": bson.M{"bsonType": "date"},
		},
	},
}
