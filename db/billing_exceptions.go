package db

import (
	"context"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextBillingExceptionID internal method returns the next available
// exception ID. This method must be called with the keysLock held.
func (ms *MongoStorage) nextBillingExceptionID(ctx context.Context) (uint64, error) {
	var be BillingException
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.billingExceptions.FindOne(ctx, bson.M{}, opts).Decode(&be); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return be.ID + 1, nil
}

// SetBillingException method records a new billing exception.
func (ms *MongoStorage) SetBillingException(be *BillingException) (uint64, error) {
	if be.Title == "" || !IsValidExceptionType(string(be.Type)) {
		return 0, ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextBillingExceptionID(ctx)
	if err != nil {
		return 0, err
	}
	be.ID = nextID
	if be.CreatedAt.IsZero() {
		be.CreatedAt = time.Now()
	}
	if _, err := ms.billingExceptions.InsertOne(ctx, be); err != nil {
		return 0, err
	}
	return be.ID, nil
}

// BillingExceptions method returns all recorded exceptions, newest first,
// optionally restricted to one type.
func (ms *MongoStorage) BillingExceptions(exceptionType ExceptionType) ([]*BillingException, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := bson.M{}
	if exceptionType != "" {
		query["type"] = exceptionType
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: -1}})
	cursor, err := ms.billingExceptions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close billing exceptions cursor", "error", err)
		}
	}()
	var exceptions []*BillingException
	for cursor.Next(ctx) {
		be := &BillingException{}
		if err := cursor.Decode(be); err != nil {
			return nil, err
		}
		exceptions = append(exceptions, be)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return exceptions, nil
}

// DelBillingException method deletes the exception with the given ID, the
// admin resolution action.
func (ms *MongoStorage) DelBillingException(exceptionID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := ms.billingExceptions.DeleteOne(ctx, bson.M{"_id": exceptionID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DelBillingExceptions method deletes every exception of the given type at
// once, used by the admin bulk-cleanup tooling. An empty type deletes all.
func (ms *MongoStorage) DelBillingExceptions(exceptionType ExceptionType) (int64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	query := bson.M{}
	if exceptionType != "" {
		query["type"] = exceptionType
	}
	res, err := ms.billingExceptions.DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
