package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	mongotx "campbook/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ActivityCollection   = "booking_activity"
	DailyStatsCollection = "daily_stats"

	DayLayout = "2006-01-02"
)

// Activity is one consumed event projected for reporting. EventID is the
// document key, so replays of the same event collapse into one document.
type Activity struct {
	EventID     string    `bson:"_id"`
	EventType   string    `bson:"event_type"`
	AggregateID int64     `bson:"aggregate_id"`
	BookingID   int64     `bson:"booking_id,omitempty"`
	GuestID     int64     `bson:"guest_id,omitempty"`
	CampsiteID  int64     `bson:"campsite_id,omitempty"`
	AmountMinor int64     `bson:"amount_minor,omitempty"`
	Currency    string    `bson:"currency,omitempty"`
	Nights      int       `bson:"nights,omitempty"`
	OccurredOn  time.Time `bson:"occurred_on"`
	RecordedAt  time.Time `bson:"recorded_at"`
}

// Day is the UTC calendar day the activity is counted under.
func (a Activity) Day() string {
	return a.OccurredOn.UTC().Format(DayLayout)
}

type ActivityRepository interface {
	// Record stores a and bumps the daily counters. It reports false when a
	// was already recorded, in which case no counter changes.
	Record(ctx context.Context, a Activity) (bool, error)
}

type mongoActivityRepository struct {
	activity  *mongo.Collection
	stats     *mongo.Collection
	txManager mongotx.TransactionManager
}

func NewMongoActivityRepository(db *mongo.Database, txManager mongotx.TransactionManager) ActivityRepository {
	return &mongoActivityRepository{
		activity:  db.Collection(ActivityCollection),
		stats:     db.Collection(DailyStatsCollection),
		txManager: txManager,
	}
}

func (r *mongoActivityRepository) Record(ctx context.Context, a Activity) (bool, error) {
	var inserted bool
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		inserted = false

		res, err := r.activity.UpdateOne(sessCtx,
			bson.M{"_id": a.EventID},
			bson.M{"$setOnInsert": a},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert activity %s: %w", a.EventID, err)
		}
		if res.UpsertedCount == 0 {
			return nil
		}

		_, err = r.stats.UpdateOne(sessCtx,
			bson.M{"_id": a.Day()},
			StatsUpdate(a),
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to update daily stats %s: %w", a.Day(), err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// StatsUpdate builds the daily_stats increment for a. Counters are keyed by
// event type with dots replaced, and monetary totals are kept per currency.
func StatsUpdate(a Activity) bson.M {
	inc := bson.M{"events_total": 1}
	inc["counts."+counterKey(a.EventType)] = 1
	if a.Nights > 0 {
		inc["nights_booked"] = a.Nights
	}
	if a.AmountMinor != 0 && a.Currency != "" {
		inc[fmt.Sprintf("amounts.%s.%s", counterKey(a.EventType), a.Currency)] = a.AmountMinor
	}

	return bson.M{
		"$inc":         inc,
		"$setOnInsert": bson.M{"day": a.Day()},
		"$max":         bson.M{"last_event_at": a.OccurredOn},
	}
}

func counterKey(eventType string) string {
	return strings.ReplaceAll(eventType, ".", "_")
}
