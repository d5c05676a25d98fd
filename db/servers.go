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

// nextServerID internal method returns the next available server ID. This
// method must be called with the keysLock held.
func (ms *MongoStorage) nextServerID(ctx context.Context) (uint64, error) {
	var server Server
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.servers.FindOne(ctx, bson.M{}, opts).Decode(&server); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return server.ID + 1, nil
}

// SetServer method creates or updates the server in the database.
func (ms *MongoStorage) SetServer(server *Server) (uint64, error) {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextServerID(ctx)
	if err != nil {
		return 0, err
	}
	if server.ID > 0 {
		if server.ID >= nextID {
			return 0, ErrInvalidData
		}
		updateDoc, err := dynamicUpdateDocument(server, []string{"suspended", "daysUntilRenewal"})
		if err != nil {
			return 0, err
		}
		if _, err := ms.servers.UpdateOne(ctx, bson.M{"_id": server.ID}, updateDoc); err != nil {
			return 0, err
		}
	} else {
		server.ID = nextID
		if server.CreatedAt.IsZero() {
			server.CreatedAt = time.Now()
		}
		if _, err := ms.servers.InsertOne(ctx, server); err != nil {
			return 0, err
		}
	}
	return server.ID, nil
}

// Server method returns the server with the given ID. If the server doesn't
// exist, it returns the specific error.
func (ms *MongoStorage) Server(serverID uint64) (*Server, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	server := &Server{}
	if err := ms.servers.FindOne(ctx, bson.M{"_id": serverID}).Decode(server); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get server")
	}
	return server, nil
}

// ServersByUser method returns all servers owned by the user.
func (ms *MongoStorage) ServersByUser(userID uint64) ([]*Server, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cursor, err := ms.servers.Find(ctx, bson.M{"userID": userID})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close servers cursor", "error", err)
		}
	}()
	var servers []*Server
	for cursor.Next(ctx) {
		server := &Server{}
		if err := cursor.Decode(server); err != nil {
			return nil, err
		}
		servers = append(servers, server)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return servers, nil
}

// RenewServer method extends the server renewal window by the given number
// of days and clears a suspension if one is active. It returns the updated
// server.
func (ms *MongoStorage) RenewServer(serverID uint64, days int) (*Server, error) {
	if days <= 0 {
		return nil, ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	update := bson.M{
		"$inc": bson.M{"daysUntilRenewal": days},
		"$set": bson.M{"suspended": false},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	server := &Server{}
	if err := ms.servers.FindOneAndUpdate(ctx, bson.M{"_id": serverID}, update, opts).Decode(server); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return server, nil
}

// DelServer method deletes the server with the given ID.
func (ms *MongoStorage) DelServer(serverID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.servers.DeleteOne(ctx, bson.M{"_id": serverID})
	return err
}
