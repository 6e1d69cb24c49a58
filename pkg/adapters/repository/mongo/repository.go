package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "components"

// MongoRepository stores one document per component with _id = component id,
// which gives uniqueness for free.
type MongoRepository struct {
	col    *mongo.Collection
	client *mongo.Client // set only when the repository owns the connection
}

// Connect opens a connection and verifies it with a ping.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Open connects to uri and returns a repository over <database>.components.
// Close disconnects the client.
func Open(ctx context.Context, uri, database string, timeout time.Duration) (*MongoRepository, error) {
	client, err := Connect(ctx, uri, timeout)
	if err != nil {
		return nil, err
	}
	repo, err := NewMongoRepository(ctx, client.Database(database).Collection(collectionName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	repo.client = client
	return repo, nil
}

// NewMongoRepository wraps an existing collection and ensures the owner index.
func NewMongoRepository(ctx context.Context, col *mongo.Collection) (*MongoRepository, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "name", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("mongo ensure index: %w", err)
	}
	return &MongoRepository{col: col}, nil
}

func (m *MongoRepository) Create(ctx context.Context, component *domain.Component) error {
	if err := component.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := *component
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewDuplicateIDError(component.ID)
		}
		return domain.NewStorageError("create", err)
	}
	component.CreatedAt = now
	component.UpdatedAt = now
	return nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (*domain.Component, error) {
	var c domain.Component
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get", err)
	}
	return &c, nil
}

func (m *MongoRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Component, error) {
	filter := bson.M{}
	if ownerID != "" {
		filter["ownerId"] = ownerID
	}
	return m.find(ctx, "list", filter)
}

func (m *MongoRepository) find(ctx context.Context, op string, filter bson.M) ([]domain.Component, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer cur.Close(ctx)

	out := []domain.Component{}
	for cur.Next(ctx) {
		var c domain.Component
		if err := cur.Decode(&c); err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		out = append(out, c)
	}
	if err := cur.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return out, nil
}

func (m *MongoRepository) Update(ctx context.Context, id string, patch domain.ComponentPatch) (*domain.Component, error) {
	current, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*current)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	set := bson.M{"mainUrl": next.MainURL, "latestUrl": next.LatestURL, "updatedAt": next.UpdatedAt}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return nil, domain.NewStorageError("update", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrNotFound
	}
	return &next, nil
}

func (m *MongoRepository) Delete(ctx context.Context, id string) error {
	_, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	return domain.NewStorageError("delete", err)
}

func (m *MongoRepository) Dump(ctx context.Context) ([]domain.Component, error) {
	return m.find(ctx, "dump", bson.M{})
}

func (m *MongoRepository) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// Ensure interface compliance
var _ ports.ComponentRepository = (*MongoRepository)(nil)
