package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store with one document per key:
// {_id: key, value: <json text>, updatedAt}.
type MongoStore struct {
	col *mongo.Collection
}

type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func NewMongoStore(col *mongo.Collection) *MongoStore {
	return &MongoStore{col: col}
}

func (m *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var e mongoEntry
	if err := m.col.FindOne(ctx, bson.M{"_id": key}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return []byte(e.Value), nil
}

func (m *MongoStore) Put(ctx context.Context, key string, value []byte) error {
	set := bson.M{"value": string(value), "updatedAt": time.Now().UTC()}
	opts := options.Update().SetUpsert(true)
	_, err := m.col.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set}, opts)
	return err
}
