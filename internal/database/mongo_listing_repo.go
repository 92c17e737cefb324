package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classifieds-bot/internal/database/models"
)

const (
	listingCollectionName = "listings"
	counterCollectionName = "counters"
	listingCounterName    = "listing_seq"
)

// MongoListingRepository implements ListingRepository for MongoDB.
type MongoListingRepository struct {
	listings *mongo.Collection
	counters *mongo.Collection
}

// NewMongoListingRepository creates a new MongoDB listing repository.
func NewMongoListingRepository(db *mongo.Database) *MongoListingRepository {
	return &MongoListingRepository{
		listings: db.Collection(listingCollectionName),
		counters: db.Collection(counterCollectionName),
	}
}

// nextSeq atomically increments and returns the listing sequence counter.
func (r *MongoListingRepository) nextSeq(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": listingCounterName},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to advance listing counter: %w", err)
	}
	return counter.Value, nil
}

// CreateListing inserts a new listing record, assigning its Seq and ID.
func (r *MongoListingRepository) CreateListing(ctx context.Context, listing *models.Listing) error {
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	listing.Seq = seq
	listing.ID = primitive.NewObjectID()
	if listing.SubmittedAt.IsZero() {
		listing.SubmittedAt = time.Now()
	}

	if _, err := r.listings.InsertOne(ctx, listing); err != nil {
		return fmt.Errorf("failed to insert listing %d: %w", seq, err)
	}
	return nil
}

// UpdateListingStatus records the moderation outcome for listing seq.
func (r *MongoListingRepository) UpdateListingStatus(ctx context.Context, seq int64, status string, reviewerID int64) error {
	update := bson.M{
		"$set": bson.M{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": time.Now(),
		},
	}

	result, err := r.listings.UpdateOne(ctx, bson.M{"seq": seq}, update)
	if err != nil {
		return fmt.Errorf("failed to update listing %d status: %w", seq, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("listing %d not found for status update", seq)
	}
	return nil
}
