package entities

import "time"

// Link represents a short-code to URL mapping in the database
type Link struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	Clicks      int64     `json:"clicks"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
