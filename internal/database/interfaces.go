package database

import (
	"context"

	"classifieds-bot/internal/database/models"
)

// ListingRepository records the audit history of listings.
type ListingRepository interface {
	// CreateListing inserts a new listing record and assigns its Seq.
	CreateListing(ctx context.Context, listing *models.Listing) error
	// UpdateListingStatus records the moderation outcome for listing seq.
	UpdateListingStatus(ctx context.Context, seq int64, status string, reviewerID int64) error
}

// NoopListingRepository is used when no database is configured.
type NoopListingRepository struct{}

// NewNoopListingRepository creates a repository that records nothing.
func NewNoopListingRepository() *NoopListingRepository {
	return &NoopListingRepository{}
}

func (*NoopListingRepository) CreateListing(context.Context, *models.Listing) error {
	return nil
}

func (*NoopListingRepository) UpdateListingStatus(context.Context, int64, string, int64) error {
	return nil
}
