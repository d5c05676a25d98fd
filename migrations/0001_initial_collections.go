package migrations

import (
	"context"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	AddMigration(1, "initial_collections", upInitialCollections, downInitialCollections)
}

var collectionsToCreate = []string{
	"users",
	"orders",
	"products",
	"categories",
	"billing_exceptions",
	"exchange_rates",
	"servers",
	"nodes",
	"migrations",
}

func upInitialCollections(ctx context.Context, database *mongo.Database) error {
	existing, err := database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}
	for _, name := range collectionsToCreate {
		if slices.Contains(existing, name) {
			continue
		}
		if err := database.CreateCollection(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func downInitialCollections(ctx context.Context, database *mongo.Database) error {
	for _, name := range collectionsToCreate {
		if name == "migrations" {
			continue
		}
		if err := database.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
