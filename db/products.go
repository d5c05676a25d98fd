package db

import (
	"context"
	"errors"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextProductID internal method returns the next available product ID. This
// method must be called with the keysLock held.
func (ms *MongoStorage) nextProductID(ctx context.Context) (uint64, error) {
	var product Product
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.products.FindOne(ctx, bson.M{}, opts).Decode(&product); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return product.ID + 1, nil
}

// SetProduct method creates or updates the product in the database. If the
// product already exists, it updates the fields that have changed.
func (ms *MongoStorage) SetProduct(product *Product) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextProductID(ctx)
	if err != nil {
		return 0, err
	}
	if product.ID > 0 {
		if product.ID >= nextID {
			return 0, ErrInvalidData
		}
		updateDoc, err := dynamicUpdateDocument(product, []string{"visible"})
		if err != nil {
			return 0, err
		}
		if _, err := ms.products.UpdateOne(ctx, bson.M{"_id": product.ID}, updateDoc); err != nil {
			return 0, err
		}
	} else {
		product.ID = nextID
		if _, err := ms.products.InsertOne(ctx, product); err != nil {
			return 0, err
		}
	}
	return product.ID, nil
}

// Product method returns the product with the given ID. If the product
// doesn't exist, it returns the specific error.
func (ms *MongoStorage) Product(productID uint64) (*Product, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	product := &Product{}
	if err := ms.products.FindOne(ctx, bson.M{"_id": productID}).Decode(product); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get product")
	}
	return product, nil
}

// ProductsByCategory method returns the products of a category, optionally
// restricted to visible ones.
func (ms *MongoStorage) ProductsByCategory(categoryUUID string, onlyVisible bool) ([]*Product, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := bson.M{"categoryUUID": categoryUUID}
	if onlyVisible {
		query["visible"] = true
	}
	cursor, err := ms.products.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close products cursor", "error", err)
		}
	}()
	var products []*Product
	for cursor.Next(ctx) {
		product := &Product{}
		if err := cursor.Decode(product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

// DelProduct method deletes the product with the given ID.
func (ms *MongoStorage) DelProduct(productID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.products.DeleteOne(ctx, bson.M{"_id": productID})
	return err
}
