package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/gijiroku/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage implements Storage on a MongoDB collection. Meeting ids are the
// document _id.
type MongoStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStorage connects to uri and uses database.collection. The connection
// is verified with a ping.
func NewMongoStorage(ctx context.Context, uri, database, collection string) (*MongoStorage, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: -1}}})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &MongoStorage{client: client, collection: coll}, nil
}

// NewMongoStorageFromCollection wraps an existing collection; Close does not disconnect.
func NewMongoStorageFromCollection(coll *mongo.Collection) *MongoStorage {
	return &MongoStorage{collection: coll}
}

// CreateMeeting inserts a meeting and sets its timestamps.
func (s *MongoStorage) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	m.CreatedAt = now
	m.UpdatedAt = now
	if m.Recipients == nil {
		m.Recipients = []string{}
	}
	_, err := s.collection.InsertOne(ctx, m)
	return err
}

// GetMeeting returns a meeting by ID.
func (s *MongoStorage) GetMeeting(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if m.Recipients == nil {
		m.Recipients = []string{}
	}
	return &m, nil
}

// UpdateMeeting replaces an existing meeting document.
func (s *MongoStorage) UpdateMeeting(ctx context.Context, m *models.Meeting) error {
	m.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := s.collection.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, m.ID)
	}
	return nil
}

// DeleteMeeting removes a meeting by ID.
func (s *MongoStorage) DeleteMeeting(ctx context.Context, id string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListMeetings returns up to limit meetings, newest first.
func (s *MongoStorage) ListMeetings(ctx context.Context, limit int) ([]*models.Meeting, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	return s.find(ctx, bson.M{}, opts)
}

// GetMeetings returns the meetings for ids in caller order.
func (s *MongoStorage) GetMeetings(ctx context.Context, ids []string) ([]*models.Meeting, error) {
	if len(ids) == 0 {
		return []*models.Meeting{}, nil
	}
	found, err := s.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
	if err != nil {
		return nil, err
	}
	return orderByIDs(ids, found), nil
}

func (s *MongoStorage) find(ctx context.Context, filter any, opts *options.FindOptionsBuilder) ([]*models.Meeting, error) {
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	meetings := make([]*models.Meeting, 0)
	for cur.Next(ctx) {
		var m models.Meeting
		if err := cur.Decode(&m); err != nil {
			return nil, err
		}
		if m.Recipients == nil {
			m.Recipients = []string{}
		}
		meetings = append(meetings, &m)
	}
	return meetings, cur.Err()
}

// IterateEmbeddings streams stored embeddings in creation order.
func (s *MongoStorage) IterateEmbeddings(ctx context.Context, fn func(EmbeddingRecord) error) error {
	filter := bson.M{"$or": bson.A{
		bson.M{"titleEmbedding": bson.M{"$exists": true}},
		bson.M{"summaryEmbedding": bson.M{"$exists": true}},
	}}
	opts := options.Find().
		SetProjection(bson.M{"titleEmbedding": 1, "summaryEmbedding": 1}).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID      string    `bson:"_id"`
			Title   []float32 `bson:"titleEmbedding"`
			Summary []float32 `bson:"summaryEmbedding"`
		}
		if err := cur.Decode(&doc); err != nil {
			return err
		}
		if err := fn(EmbeddingRecord{ID: doc.ID, Title: doc.Title, Summary: doc.Summary}); err != nil {
			return err
		}
	}
	return cur.Err()
}

// CountMeetings returns the total number of meetings.
func (s *MongoStorage) CountMeetings(ctx context.Context) (int64, error) {
	return s.collection.CountDocuments(ctx, bson.M{})
}

// Close disconnects the client when this storage owns it.
func (s *MongoStorage) Close() error {
	if s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
