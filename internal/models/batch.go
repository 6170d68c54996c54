package models

import "time"

// BatchRecord is the persisted document for one processed batch.
type BatchRecord struct {
	ID           string       `json:"id" bson:"_id"`
	Downloadable bool         `json:"downloadable" bson:"downloadable"`
	Data         []ItemResult `json:"data" bson:"data"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// Item returns the result with the given id, or nil.
func (b *BatchRecord) Item(itemID string) *ItemResult {
	for i := range b.Data {
		if b.Data[i].ID == itemID {
			return &b.Data[i]
		}
	}
	return nil
}

// Batch is a freshly allocated, not yet processed batch.
type Batch struct {
	ID        string    `json:"id"`
	OutputDir string    `json:"-"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	BatchCreated    = "created"
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
)
