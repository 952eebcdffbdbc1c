package models

import (
	"fmt"
	"time"

	"linklite/internal/entities"
)

// LinkResponse is the owner-facing view of a link
type LinkResponse struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"` // Full short URL (base URL + short code)
	Clicks      int64     `json:"clicks"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewLinkResponse builds the response DTO from the entity
func NewLinkResponse(link *entities.Link, baseURL string) *LinkResponse {
	return &LinkResponse{
		ID:          link.ID,
		OwnerID:     link.OwnerID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		ShortURL:    fmt.Sprintf("%s/%s", baseURL, link.ShortCode),
		Clicks:      link.Clicks,
		IsActive:    link.IsActive,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
	}
}

// ResolveResponse is the anonymous resolution view: target URL only
type ResolveResponse struct {
	OriginalURL string `json:"original_url"`
}
