// Package db provides the MongoDB-backed storage layer for the billing
// backend: orders, products, categories, billing exceptions, exchange-rate
// cache rows, servers, users and nodes.
package db

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStorage uses an external MongoDB service for storing the billing data.
type MongoStorage struct {
	client   *mongo.Client
	database string
	keysLock sync.RWMutex

	users             *mongo.Collection
	orders            *mongo.Collection
	products          *mongo.Collection
	categories        *mongo.Collection
	billingExceptions *mongo.Collection
	exchangeRates     *mongo.Collection
	servers           *mongo.Collection
	nodes             *mongo.Collection
	migrations        *mongo.Collection
}

// New connects to MongoDB, initializes the collections and runs any pending
// migrations. If the EVEREST_MONGO_RESET_DB environment variable is set, the
// database is dropped and recreated first.
func New(url, database string) (*MongoStorage, error) {
	ms := &MongoStorage{}
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	log.Infow("connecting to mongodb", "url", url, "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	// create a new client with the connection options
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	ms.client = client
	ms.database = database
	if err := ms.initCollections(database); err != nil {
		return nil, err
	}
	// if the reset flag is enabled, drop the database documents and recreate
	// indexes, otherwise just create the indexes
	if reset := os.Getenv("EVEREST_MONGO_RESET_DB"); reset != "" {
		if err := ms.Reset(); err != nil {
			return nil, err
		}
	} else {
		if err := ms.createIndexes(); err != nil {
			return nil, err
		}
	}
	if err := ms.RunMigrationsUp(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Close disconnects the MongoDB client.
func (ms *MongoStorage) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.client.Disconnect(ctx); err != nil {
		log.Warn(err)
	}
}

// Reset drops every collection and recreates the indexes.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, col := range ms.collections() {
		if err := col.Drop(ctx); err != nil {
			return err
		}
	}
	if err := ms.initCollections(ms.database); err != nil {
		return err
	}
	return ms.createIndexes()
}

// collections returns every data collection handled by the storage, the
// migration bookkeeping collection excluded.
func (ms *MongoStorage) collections() []*mongo.Collection {
	return []*mongo.Collection{
		ms.users,
		ms.orders,
		ms.products,
		ms.categories,
		ms.billingExceptions,
		ms.exchangeRates,
		ms.servers,
		ms.nodes,
	}
}
