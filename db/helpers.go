package db

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// initCollections creates the collections in the MongoDB database if they
// don't exist and binds them to the storage fields.
func (ms *MongoStorage) initCollections(database string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	// get the current collections names to create only the missing ones
	currentCollections, err := ms.collectionNames(ctx, database)
	if err != nil {
		return err
	}
	// aux method to get a collection if it exists, or create it if it doesn't
	getCollection := func(name string) (*mongo.Collection, error) {
		alreadyCreated := false
		for _, c := range currentCollections {
			if c == name {
				alreadyCreated = true
				break
			}
		}
		if !alreadyCreated {
			if err := ms.client.Database(database).CreateCollection(ctx, name); err != nil {
				return nil, err
			}
		}
		return ms.client.Database(database).Collection(name), nil
	}
	if ms.users, err = getCollection("users"); err != nil {
		return err
	}
	if ms.orders, err = getCollection("orders"); err != nil {
		return err
	}
	if ms.products, err = getCollection("products"); err != nil {
		return err
	}
	if ms.categories, err = getCollection("categories"); err != nil {
		return err
	}
	if ms.billingExceptions, err = getCollection("billing_exceptions"); err != nil {
		return err
	}
	if ms.exchangeRates, err = getCollection("exchange_rates"); err != nil {
		return err
	}
	if ms.servers, err = getCollection("servers"); err != nil {
		return err
	}
	if ms.nodes, err = getCollection("nodes"); err != nil {
		return err
	}
	if ms.migrations, err = getCollection("migrations"); err != nil {
		return err
	}
	return nil
}

// collectionNames returns the names of the collections in the given database.
func (ms *MongoStorage) collectionNames(ctx context.Context, database string) ([]string, error) {
	collectionsCursor, err := ms.client.Database(database).ListCollections(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := collectionsCursor.Close(ctx); err != nil {
			log.Warnw("failed to close collections cursor", "error", err)
		}
	}()
	collections := []bson.D{}
	if err := collectionsCursor.All(ctx, &collections); err != nil {
		return nil, err
	}
	names := []string{}
	for _, col := range collections {
		for _, v := range col {
			if v.Key == "name" {
				names = append(names, v.Value.(string))
			}
		}
	}
	return names, nil
}

// createIndexes creates the indexes for the collections in the MongoDB
// database. Add more indexes here as needed.
func (ms *MongoStorage) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	// create a unique index for the 'email' field on users. The names must
	// match the ones migration 0002 uses so both creations resolve to the
	// same index.
	userEmailIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}}, // 1 for ascending order
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	}
	if _, err := ms.users.Indexes().CreateOne(ctx, userEmailIndex); err != nil {
		return fmt.Errorf("failed to create index on email for users: %w", err)
	}
	// create a unique index for the 'paymentIntentID' field on orders, the
	// core invariant of the order lifecycle
	orderIntentIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "paymentIntentID", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("orders_payment_intent_unique"),
	}
	if _, err := ms.orders.Indexes().CreateOne(ctx, orderIntentIndex); err != nil {
		return fmt.Errorf("failed to create index on paymentIntentID for orders: %w", err)
	}
	// index orders by user for the latest-order lookup
	orderUserIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userID", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}
	if _, err := ms.orders.Indexes().CreateOne(ctx, orderUserIndex); err != nil {
		return fmt.Errorf("failed to create index on userID for orders: %w", err)
	}
	// index products by category for storefront listings
	productCategoryIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "categoryUUID", Value: 1}},
	}
	if _, err := ms.products.Indexes().CreateOne(ctx, productCategoryIndex); err != nil {
		return fmt.Errorf("failed to create index on categoryUUID for products: %w", err)
	}
	// index servers by user for ownership checks
	serverUserIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userID", Value: 1}},
	}
	if _, err := ms.servers.Indexes().CreateOne(ctx, serverUserIndex); err != nil {
		return fmt.Errorf("failed to create index on userID for servers: %w", err)
	}
	return nil
}

// dynamicUpdateDocument creates a BSON update document from a struct, including only non-zero fields.
// It uses reflection to iterate over the struct fields and create the update document.
// The struct fields must have a bson tag to be included in the update document.
// The _id field is skipped.
func dynamicUpdateDocument(item any, alwaysUpdateTags []string) (bson.M, error) {
	val := reflect.ValueOf(item)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if !val.IsValid() || val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("input must be a valid struct")
	}
	update := bson.M{}
	typ := val.Type()
	// create a map for quick lookup
	alwaysUpdateMap := make(map[string]bool, len(alwaysUpdateTags))
	for _, tag := range alwaysUpdateTags {
		alwaysUpdateMap[tag] = true
	}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanInterface() {
			continue
		}
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("bson")
		if tag == "" || tag == "-" || tag == "_id" {
			continue
		}
		// drop bson tag options like omitempty
		if idx := strings.IndexByte(tag, ','); idx >= 0 {
			tag = tag[:idx]
		}
		// check if the field should always be updated or is not the zero value
		_, alwaysUpdate := alwaysUpdateMap[tag]
		if alwaysUpdate || !reflect.DeepEqual(field.Interface(), reflect.Zero(field.Type()).Interface()) {
			update[tag] = field.Interface()
		}
	}
	return bson.M{"$set": update}, nil
}
