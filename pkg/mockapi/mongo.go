package mockapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDatabase   = "relay"
	defaultCollection = "items"
	createAttempts    = 5
)

// MongoStore keeps items in a MongoDB collection keyed by id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// DialMongo connects to uri, verifies the connection and seeds the items
// collection when it is empty.
func DialMongo(ctx context.Context, uri string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(defaultDatabase).Collection(defaultCollection),
	}
	if err := s.seed(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) seed(ctx context.Context) error {
	n, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	if n > 0 {
		return nil
	}
	items := seedItems()
	docs := make([]any, len(items))
	for i, it := range items {
		docs[i] = it
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed items: %w", err)
	}
	return nil
}

func (s *MongoStore) Page(ctx context.Context, offset, limit int) ([]Item, int, error) {
	total, err := s.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	if limit <= 0 {
		return []Item{}, int(total), nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(max(offset, 0))).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find items: %w", err)
	}
	items := []Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode items: %w", err)
	}
	return items, int(total), nil
}

// Create inserts with id = count + 1, retrying when a concurrent insert
// took the same id.
func (s *MongoStore) Create(ctx context.Context, name string) (Item, error) {
	for range createAttempts {
		n, err := s.coll.CountDocuments(ctx, bson.D{})
		if err != nil {
			return Item{}, fmt.Errorf("count items: %w", err)
		}
		item := Item{ID: int(n) + 1, Name: name}
		_, err = s.coll.InsertOne(ctx, item)
		if err == nil {
			return item, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return Item{}, fmt.Errorf("insert item: %w", err)
		}
	}
	return Item{}, errors.New("insert item: id contention")
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
