package quota

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gunho/artifact/pkg/errors"
)

// MongoGate is a Gate backed by a subscriptions collection. Reservation is
// a single conditional findAndModify, so concurrent reservations across
// server instances cannot oversubscribe a user.
type MongoGate struct {
	coll *mongo.Collection
}

// NewMongoGate wraps the given subscriptions collection. Documents use the
// Subscription bson layout with the user id as _id.
func NewMongoGate(coll *mongo.Collection) *MongoGate {
	return &MongoGate{coll: coll}
}

func usageField(kind Kind) string {
	return "usage." + string(kind)
}

// Reserve consumes one unit of kind for the user with a conditional $inc.
// The filter only matches when the subscription is active and has a unit
// left; a non-match is then diagnosed with a plain lookup to pick the
// right error code.
func (g *MongoGate) Reserve(ctx context.Context, userID string, kind Kind) error {
	if err := validateReserve(userID, kind); err != nil {
		return err
	}

	filter := bson.M{
		"_id":    userID,
		"status": StatusActive,
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$ifNull": bson.A{"$" + usageField(kind), 0}},
			bson.M{"$ifNull": bson.A{"$limits." + string(kind), 0}},
		}},
	}
	update := bson.M{"$inc": bson.M{usageField(kind): 1}}

	err := g.coll.FindOneAndUpdate(ctx, filter, update).Err()
	if err == nil {
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return errors.Wrap(errors.ErrCodeStorage, err, "reserve %s for user %s", kind, userID)
	}

	// The guarded update matched nothing. Figure out why.
	sub, lookupErr := g.Lookup(ctx, userID)
	if lookupErr != nil {
		return lookupErr
	}
	if sub.Status != StatusActive {
		return errors.New(errors.ErrCodeSubscriptionInactive, "subscription for user %s is %s", userID, sub.Status)
	}
	return errors.New(errors.ErrCodeQuotaExceeded, "%s quota exceeded for user %s (%d/%d)",
		kind, userID, sub.Usage[kind], sub.Limits[kind])
}

// Release returns one unit of kind for the user. The guard keeps usage
// from going negative; a non-matching update is silently ignored.
func (g *MongoGate) Release(ctx context.Context, userID string, kind Kind) error {
	filter := bson.M{
		"_id":            userID,
		usageField(kind): bson.M{"$gt": 0},
	}
	update := bson.M{"$inc": bson.M{usageField(kind): -1}}

	err := g.coll.FindOneAndUpdate(ctx, filter, update).Err()
	if err != nil && err != mongo.ErrNoDocuments {
		return errors.Wrap(errors.ErrCodeStorage, err, "release %s for user %s", kind, userID)
	}
	return nil
}

// Lookup returns the user's subscription document.
func (g *MongoGate) Lookup(ctx context.Context, userID string) (Subscription, error) {
	var sub Subscription
	err := g.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&sub)
	if err == mongo.ErrNoDocuments {
		return Subscription{}, errors.New(errors.ErrCodeSubscriptionMissing, "no subscription for user %s", userID)
	}
	if err != nil {
		return Subscription{}, errors.Wrap(errors.ErrCodeStorage, err, "lookup subscription for user %s", userID)
	}
	return sub, nil
}

// Upsert installs or replaces a subscription document.
func (g *MongoGate) Upsert(ctx context.Context, sub Subscription) error {
	_, err := g.coll.ReplaceOne(ctx, bson.M{"_id": sub.UserID}, sub, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "upsert subscription for user %s", sub.UserID)
	}
	return nil
}

// Ensure MongoGate implements Gate.
var _ Gate = (*MongoGate)(nil)
