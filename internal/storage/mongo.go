package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nihilism/server/internal/config"
	"nihilism/server/internal/models"
)

type snapshotDocument struct {
	ID            string    `bson:"_id"`
	FormatVersion int       `bson:"format_version"`
	Payload       string    `bson:"payload"`
	LoopNumber    int       `bson:"loop_number"`
	NihilismScore int       `bson:"nihilism_score"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per player in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(cfg config.MongoConfig) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	log.Printf("[MongoStore] Connected to %s/%s", cfg.Database, cfg.Collection)
	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *MongoStore) Put(ctx context.Context, p *models.Player) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	doc := snapshotDocument{
		ID:            p.ID,
		FormatVersion: FormatVersion,
		Payload:       string(data),
		LoopNumber:    p.CurrentLoop.Number,
		NihilismScore: p.Memory.NihilismScore,
		UpdatedAt:     time.Now().UTC(),
	}
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, playerID string) (*models.Player, error) {
	var doc snapshotDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": playerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find snapshot: %w", err)
	}
	return Decode([]byte(doc.Payload))
}

func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	ids := []string{}
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return ids, nil
}

func (s *MongoStore) Delete(ctx context.Context, playerID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": playerID}); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
