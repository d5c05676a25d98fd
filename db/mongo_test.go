package db

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/everestpanel/billing-backend/test"
	qt "github.com/frankban/quicktest"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	testDB   *MongoStorage
	mongoURI string
)

// Common test constants
const (
	testUserEmail      = "user@email.test"
	testUserPass       = "testpass123"
	testIntentID       = "pi_test_123"
	testOrderName      = "quartz-aardvark"
	testOrderCurrency  = "CAD"
	testProductName    = "Basic Plan"
	testCategoryName   = "Game Servers"
	testNodeFQDN       = "node01.example.test"
	testExceptionTitle = "Failed to process order"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	// start a MongoDB container for testing
	dbContainer, err := test.StartMongoContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to start MongoDB container: %v", err))
	}

	// get the MongoDB connection string
	mongoURI, err = dbContainer.ConnectionString(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to get MongoDB connection string: %v", err))
	}

	testDB, err = New(mongoURI, test.RandomDatabaseName())
	if err != nil {
		panic(fmt.Sprintf("failed to create new MongoDB connection: %v", err))
	}

	code := m.Run()

	// close the database connection
	testDB.Close()

	// stop the MongoDB container
	if err := dbContainer.Terminate(ctx); err != nil {
		panic(fmt.Sprintf("failed to stop MongoDB container: %v", err))
	}

	os.Exit(code)
}

func TestInitIndexes(t *testing.T) {
	c := qt.New(t)
	// a fresh database runs createIndexes and then migration 0002, which
	// both declare the unique indexes; they must resolve to the same index
	// or the second creation is refused by the server
	freshDB, err := New(mongoURI, test.RandomDatabaseName())
	c.Assert(err, qt.IsNil)
	defer freshDB.Close()

	indexNames := func(col *mongo.Collection) []string {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cursor, err := col.Indexes().List(ctx)
		c.Assert(err, qt.IsNil)
		var specs []bson.M
		c.Assert(cursor.All(ctx, &specs), qt.IsNil)
		var names []string
		for _, spec := range specs {
			names = append(names, spec["name"].(string))
		}
		return names
	}

	c.Assert(indexNames(freshDB.users), qt.Contains, "users_email_unique")
	c.Assert(indexNames(freshDB.orders), qt.Contains, "orders_payment_intent_unique")
	// no duplicate of the unique key patterns under the driver's default
	// names
	c.Assert(indexNames(freshDB.users), qt.Not(qt.Contains), "email_1")
	c.Assert(indexNames(freshDB.orders), qt.Not(qt.Contains), "paymentIntentID_1")
}
