package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/everestpanel/billing-backend/migrations"
	"github.com/everestpanel/billing-backend/test"
	qt "github.com/frankban/quicktest"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestMigrations(t *testing.T) {
	c := qt.New(t)

	testDBName := test.RandomDatabaseName()

	{
		testDB, err := New(mongoURI, testDBName)
		if err != nil {
			panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
		}

		_, err = testDB.SetOrder(&Order{
			Name:            testOrderName,
			UserID:          1,
			Description:     "1x Basic Plan",
			Currency:        testOrderCurrency,
			Status:          OrderStatusPending,
			PaymentIntentID: testIntentID,
		})
		c.Assert(err, qt.IsNil)

		orderFromDB, err := testDB.OrderByPaymentIntent(testIntentID)
		c.Assert(err, qt.IsNil)
		c.Assert(orderFromDB.Description, qt.Equals, "1x Basic Plan")

		testDB.Close()
	}

	t.Run("UpAndDown", func(*testing.T) {
		// register a migration on top of the stack
		migs := migrations.SortedByVersionAsc()
		lastVersion := migs[len(migs)-1].Version
		migrations.AddMigration(lastVersion+1, "test_migration", upRenameDescriptionField, downRenameDescriptionField)
		defer migrations.DelMigration(lastVersion + 1) // to avoid affecting other tests

		testDB, err := New(mongoURI, testDBName)
		if err != nil {
			panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
		}
		orderFromDB, err := testDB.OrderByPaymentIntent(testIntentID)
		c.Assert(err, qt.IsNil)
		c.Assert(orderFromDB.Description, qt.Equals, "") // field lives under the new name now

		// now roll back the migration
		err = testDB.RunMigrationsDown(1)
		c.Assert(err, qt.IsNil)
		orderFromDB, err = testDB.OrderByPaymentIntent(testIntentID)
		c.Assert(err, qt.IsNil)
		c.Assert(orderFromDB.Description, qt.Equals, "1x Basic Plan")

		testDB.Close()
	})

	t.Run("Idempotency", func(*testing.T) {
		c.Log("check that all migrations are idempotent (can run again on top of an up-to-date DB)")
		c.Log("first drop migrations collection")
		testDB, err := New(mongoURI, testDBName)
		if err != nil {
			panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
		}
		err = testDB.migrations.Drop(context.TODO())
		c.Assert(err, qt.IsNil)
		testDB.Close()

		c.Log("now open DB again, and all migrations should run again")
		testDB, err = New(mongoURI, testDBName)
		if err != nil {
			panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
		}
		orderFromDB, err := testDB.OrderByPaymentIntent(testIntentID)
		c.Assert(err, qt.IsNil)
		c.Assert(orderFromDB.Description, qt.Equals, "1x Basic Plan")
		testDB.Close()
	})
}

func upRenameDescriptionField(ctx context.Context, database *mongo.Database) error {
	orders := database.Collection("orders")

	// idempotency check, the field may already be renamed
	count, err := orders.CountDocuments(ctx, bson.M{"summary": bson.M{"$exists": true}})
	if err != nil {
		return fmt.Errorf("failed to check for existing summary field: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = orders.UpdateMany(ctx,
		bson.M{"description": bson.M{"$exists": true}},
		bson.M{"$rename": bson.M{"description": "summary"}},
	)
	if err != nil {
		return fmt.Errorf("failed to rename description field to summary: %w", err)
	}
	return nil
}

func downRenameDescriptionField(ctx context.Context, database *mongo.Database) error {
	orders := database.Collection("orders")

	_, err := orders.UpdateMany(ctx,
		bson.M{"summary": bson.M{"$exists": true}},
		bson.M{"$rename": bson.M{"summary": "description"}},
	)
	if err != nil {
		return fmt.Errorf("failed to rename summary field back to description: %w", err)
	}
	return nil
}
