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

// nextNodeID internal method returns the next available node ID. This method
// must be called with the keysLock held.
func (ms *MongoStorage) nextNodeID(ctx context.Context) (uint64, error) {
	var node Node
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.nodes.FindOne(ctx, bson.M{}, opts).Decode(&node); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return node.ID + 1, nil
}

// SetNode method creates or updates the node in the database.
func (ms *MongoStorage) SetNode(node *Node) (uint64, error) {
	if node.FQDN == "" {
		return 0, ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextNodeID(ctx)
	if err != nil {
		return 0, err
	}
	if node.ID > 0 {
		if node.ID >= nextID {
			return 0, ErrInvalidData
		}
		updateDoc, err := dynamicUpdateDocument(node, []string{"deployable"})
		if err != nil {
			return 0, err
		}
		if _, err := ms.nodes.UpdateOne(ctx, bson.M{"_id": node.ID}, updateDoc); err != nil {
			return 0, err
		}
	} else {
		node.ID = nextID
		if _, err := ms.nodes.InsertOne(ctx, node); err != nil {
			return 0, err
		}
	}
	return node.ID, nil
}

// Node method returns the node with the given ID. If the node doesn't exist,
// it returns the specific error.
func (ms *MongoStorage) Node(nodeID uint64) (*Node, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	node := &Node{}
	if err := ms.nodes.FindOne(ctx, bson.M{"_id": nodeID}).Decode(node); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get node")
	}
	return node, nil
}

// DeployableNodes method returns all nodes flagged as deployable.
func (ms *MongoStorage) DeployableNodes() ([]*Node, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cursor, err := ms.nodes.Find(ctx, bson.M{"deployable": true})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cursor.Close(ctx); err != nil {
			log.Warnw("failed to close nodes cursor", "error", err)
		}
	}()
	var nodes []*Node
	for cursor.Next(ctx) {
		node := &Node{}
		if err := cursor.Decode(node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// DelNode method deletes the node with the given ID.
func (ms *MongoStorage) DelNode(nodeID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.nodes.DeleteOne(ctx, bson.M{"_id": nodeID})
	return err
}
