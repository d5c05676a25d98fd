package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextUserID internal method returns the next available user ID. This method
// must be called with the keysLock held.
func (ms *MongoStorage) nextUserID(ctx context.Context) (uint64, error) {
	var user User
	opts := options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})
	if err := ms.users.FindOne(ctx, bson.M{}, opts).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return 1, nil
		}
		return 0, err
	}
	return user.ID + 1, nil
}

// SetUser method creates or updates the user in the database.
func (ms *MongoStorage) SetUser(user *User) (uint64, error) {
	if user.Email == "" {
		return 0, ErrInvalidData
	}
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nextID, err := ms.nextUserID(ctx)
	if err != nil {
		return 0, err
	}
	if user.ID > 0 {
		if user.ID >= nextID {
			return 0, ErrInvalidData
		}
		updateDoc, err := dynamicUpdateDocument(user, []string{"admin"})
		if err != nil {
			return 0, err
		}
		if _, err := ms.users.UpdateOne(ctx, bson.M{"_id": user.ID}, updateDoc); err != nil {
			return 0, err
		}
	} else {
		user.ID = nextID
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now()
		}
		if _, err := ms.users.InsertOne(ctx, user); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, ErrDuplicateKey
			}
			return 0, err
		}
	}
	return user.ID, nil
}

// User method returns the user with the given ID. If the user doesn't exist,
// it returns the specific error.
func (ms *MongoStorage) User(userID uint64) (*User, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user := &User{}
	if err := ms.users.FindOne(ctx, bson.M{"_id": userID}).Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get user")
	}
	return user, nil
}

// UserByEmail method returns the user with the given email. If the user
// doesn't exist, it returns the specific error.
func (ms *MongoStorage) UserByEmail(email string) (*User, error) {
	ms.keysLock.RLock()
	defer ms.keysLock.RUnlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	user := &User{}
	if err := ms.users.FindOne(ctx, bson.M{"email": email}).Decode(user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, errors.New("failed to get user")
	}
	return user, nil
}

// DelUser method deletes the user with the given ID.
func (ms *MongoStorage) DelUser(userID uint64) error {
	ms.keysLock.Lock()
	defer ms.keysLock.Unlock()
	// create a context with a timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := ms.users.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
