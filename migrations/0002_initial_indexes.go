package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	AddMigration(2, "initial_indexes", upInitialIndexes, downInitialIndexes)
}

// indexes that carry data invariants; the storage layer re-asserts them on
// startup, the migration exists so rollbacks are possible
var initialIndexes = map[string]mongo.IndexModel{
	"users": {
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	},
	"orders": {
		Keys:    bson.D{{Key: "paymentIntentID", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("orders_payment_intent_unique"),
	},
}

func upInitialIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, model := range initialIndexes {
		if _, err := database.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
			return err
		}
	}
	return nil
}

func downInitialIndexes(ctx context.Context, database *mongo.Database) error {
	for collection, model := range initialIndexes {
		if _, err := database.Collection(collection).Indexes().DropOne(ctx, *model.Options.Name); err != nil {
			return err
		}
	}
	return nil
}
