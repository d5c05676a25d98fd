package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SetExchangeRate method upserts the cached rate row for its base currency.
// Concurrent refreshes race to upsert the same row; last write wins, which is
// acceptable since the data is idempotent.
func (ms *MongoStorage) SetExchangeRate(rate *ExchangeRate) error {
	if rate.BaseCurrency == "" || len(rate.Rates) == 0 {
		return ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if rate.LastUpdatedAt.IsZero() {
		rate.LastUpdatedAt = time.Now()
	}
	update := bson.M{"$set": bson.M{
		"rates":         rate.Rates,
		"lastUpdatedAt": rate.LastUpdatedAt,
	}}
	opts := options.Update().SetUpsert(true)
	_, err := ms.exchangeRates.UpdateOne(ctx, bson.M{"_id": rate.BaseCurrency}, update, opts)
	return err
}

// ExchangeRate method returns the cached rate row for the given base
// currency, regardless of its age. Staleness is the caller's concern.
func (ms *MongoStorage) ExchangeRate(baseCurrency string) (*ExchangeRate, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rate := &ExchangeRate{}
	if err := ms.exchangeRates.FindOne(ctx, bson.M{"_id": baseCurrency}).Decode(rate); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get exchange rate")
	}
	return rate, nil
}

// DelExchangeRate method deletes the cache row for the given base currency,
// forcing the next lookup to fetch fresh rates.
func (ms *MongoStorage) DelExchangeRate(baseCurrency string) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.exchangeRates.DeleteOne(ctx, bson.M{"_id": baseCurrency})
	return err
}
