package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"tourism_watch/internal/config"
	"tourism_watch/internal/models"
)

type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	listings *mongo.Collection
	exports  *mongo.Collection
	log      *zap.Logger
}

func NewMongoDB(ctx context.Context, cfg config.DBConfig, log *zap.Logger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Connection))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	d := &MongoDB{
		client:   client,
		database: database,
		listings: database.Collection(cfg.Collections.Listings),
		exports:  database.Collection(cfg.Collections.Exports),
		log:      log.Named("db"),
	}
	d.createIndexes(ctx)

	return d, nil
}

func (d *MongoDB) createIndexes(ctx context.Context) {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{d.listings, mongo.IndexModel{
			Keys:    bson.D{{Key: "normalized_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{d.listings, mongo.IndexModel{Keys: bson.D{{Key: "last_scraped", Value: 1}}}},
		{d.exports, mongo.IndexModel{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "activity", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			d.log.Warn("Failed to create index", zap.String("collection", idx.coll.Name()), zap.Error(err))
		}
	}
}

// SaveListing upserts doc by normalized URL and counts how often the listing
// has been scraped.
func (d *MongoDB) SaveListing(ctx context.Context, doc *models.ListingDocument) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update, err := listingUpdate(doc)
	if err != nil {
		return err
	}
	filter := bson.M{"normalized_url": doc.NormalizedURL}

	_, err = d.listings.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// clearedWhenAbsent are optional listing fields. A field missing from the
// current run is removed so the mirror matches the CSV.
var clearedWhenAbsent = []string{"host", "permit", "title", "excerpt"}

// listingUpdate sets every field of doc except the counter, which is
// incremented, and unsets optional fields doc lacks.
func listingUpdate(doc *models.ListingDocument) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var set bson.M
	if err := bson.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	delete(set, "scraped_count")
	delete(set, "_id")

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"scraped_count": 1},
	}
	unset := bson.M{}
	for _, key := range clearedWhenAbsent {
		if _, ok := set[key]; !ok {
			unset[key] = ""
		}
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update, nil
}

func (d *MongoDB) SaveExportHistory(ctx context.Context, h *models.ExportHistory) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.exports.InsertOne(ctx, h)
	return err
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}
