// Package test provides testing utilities for the billing backend,
// including the MongoDB test container used by storage-level tests.
package test

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// MongoImage is the MongoDB image used by the test container.
const MongoImage = "mongo:7"

// StartMongoContainer starts a MongoDB container for testing. It returns the
// running container and any error encountered during startup. Get a
// connection string with container.ConnectionString(ctx).
func StartMongoContainer(ctx context.Context) (*mongodb.MongoDBContainer, error) {
	return mongodb.Run(ctx, MongoImage)
}

// RandomDatabaseName returns a random database name so parallel test
// packages don't share state inside a single container.
func RandomDatabaseName() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return "test_" + hex.EncodeToString(b)
}
