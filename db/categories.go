package db

import (
	"context"
	"errors"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetCategory method creates or updates the category in the database. A new
// category without a UUID gets one assigned.
func (ms *MongoStorage) SetCategory(category *Category) (string, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if category.UUID == "" {
		category.UUID = uuid.NewString()
	}
	updateDoc, err := dynamicUpdateDocument(category, []string{"visible"})
	if err != nil {
		return "", err
	}
	opts := options.Update().SetUpsert(true)
	if _, err := ms.categories.UpdateOne(ctx, bson.M{"_id": category.UUID}, updateDoc, opts); err != nil {
		return "", err
	}
	return category.UUID, nil
}

// Category method returns the category with the given UUID. If the category
// doesn't exist, it returns the specific error.
func (ms *MongoStorage) Category(categoryUUID string) (*Category, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	category := &Category{}
	if err := ms.categories.FindOne(ctx, bson.M{"_id": categoryUUID}).Decode(category); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get category")
	}
	return category, nil
}

// Categories method returns all categories, optionally only the visible ones.
func (ms *MongoStorage) Categories(onlyVisible bool) ([]*Category, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := bson.M{}
	if onlyVisible {
		query["visible"] = true
	}
	cursor, err := ms.categories.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close categories cursor", "error", err)
		}
	}()
	var categories []*Category
	for cursor.Next(ctx) {
		category := &Category{}
		if err := cursor.Decode(category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// DelCategory method deletes the category with the given UUID.
func (ms *MongoStorage) DelCategory(categoryUUID string) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.categories.DeleteOne(ctx, bson.M{"_id": categoryUUID})
	return err
}
