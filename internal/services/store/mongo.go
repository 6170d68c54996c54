package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// MongoStore keeps one document per batch, items embedded under "data".
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func OpenMongo(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Save(ctx context.Context, batchID string, items []models.ItemResult) (*models.BatchRecord, error) {
	if items == nil {
		items = []models.ItemResult{}
	}
	now := time.Now().UTC()
	rec := &models.BatchRecord{
		ID:           batchID,
		Downloadable: true,
		Data:         items,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save batch %s: %w", batchID, err)
	}
	return rec, nil
}

func (s *MongoStore) Get(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	var rec models.BatchRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": batchID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return &rec, nil
}

func (s *MongoStore) MarkUndownloadable(ctx context.Context, batchID string) (*models.BatchRecord, error) {
	update := bson.M{"$set": bson.M{
		"downloadable": false,
		"updatedAt":    time.Now().UTC(),
	}}
	return s.findOneAndUpdate(ctx, bson.M{"_id": batchID}, update)
}

func (s *MongoStore) UpdateItemFields(ctx context.Context, batchID, itemID string, upd models.MetadataUpdate) (*models.ItemResult, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Title != nil {
		set["data.$.metadata.title"] = *upd.Title
	}
	if upd.Description != nil {
		set["data.$.metadata.description"] = *upd.Description
	}
	if upd.Keywords != nil {
		set["data.$.metadata.keywords"] = *upd.Keywords
	}

	rec, err := s.findOneAndUpdate(ctx, bson.M{"_id": batchID, "data.id": itemID}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	item := rec.Item(itemID)
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.BatchRecord, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rec models.BatchRecord
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}
	return &rec, nil
}
