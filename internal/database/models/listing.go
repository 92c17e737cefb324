package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Listing is the audit record of one submitted listing. The in-memory
// submission store stays authoritative for flow control; these records are
// history only.
type Listing struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Seq          int64              `bson:"seq"` // auto-incrementing listing number
	UserID       int64              `bson:"user_id"`
	Username     string             `bson:"username,omitempty"`
	ChatID       int64              `bson:"chat_id"`
	RawText      string             `bson:"raw_text"`
	ImprovedText string             `bson:"improved_text"`
	Price        string             `bson:"price"`
	Address      string             `bson:"address"`
	PhotoFileIDs []string           `bson:"photo_file_ids"`
	Status       string             `bson:"status"` // pending, published, declined
	SubmittedAt  time.Time          `bson:"submitted_at"`
	ReviewedBy   int64              `bson:"reviewed_by,omitempty"`
	ReviewedAt   time.Time          `bson:"reviewed_at,omitempty"`
}
