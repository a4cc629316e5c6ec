package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestActivity_DayIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	a := Activity{OccurredOn: time.Date(2025, 6, 2, 1, 30, 0, 0, loc)}
	assert.Equal(t, "2025-06-01", a.Day())
}

func TestStatsUpdate(t *testing.T) {
	occurred := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		activity Activity
		wantInc  bson.M
	}{
		{
			name:     "booking created counts nights and amount",
			activity: Activity{EventType: "booking.created", Nights: 9, AmountMinor: 41500, Currency: "EUR", OccurredOn: occurred},
			wantInc: bson.M{
				"events_total":                1,
				"counts.booking_created":      1,
				"nights_booked":               9,
				"amounts.booking_created.EUR": int64(41500),
			},
		},
		{
			name:     "cancellation only counts",
			activity: Activity{EventType: "booking.cancelled", OccurredOn: occurred},
			wantInc: bson.M{
				"events_total":             1,
				"counts.booking_cancelled": 1,
			},
		},
		{
			name:     "amount without currency is not summed",
			activity: Activity{EventType: "payment.refunded", AmountMinor: 100, OccurredOn: occurred},
			wantInc: bson.M{
				"events_total":            1,
				"counts.payment_refunded": 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update := StatsUpdate(tt.activity)
			inc, ok := update["$inc"].(bson.M)
			require.True(t, ok)
			assert.Equal(t, tt.wantInc, inc)
			assert.Equal(t, bson.M{"day": "2025-06-01"}, update["$setOnInsert"])
		})
	}
}
