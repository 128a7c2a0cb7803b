package models

import "time"

// Image is insert-only: rows are created inside the generation charge
// transaction and never updated afterwards.
type Image struct {
	ID        string
	UserID    string
	URL       string
	Prompt    string
	ObjectKey string
	Width     int
	Height    int
	SizeBytes int64
	CreatedAt time.Time
}
