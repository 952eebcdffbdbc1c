package models

// CreateLinkRequest represents the request body for creating a short link
type CreateLinkRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// UpdateLinkRequest represents the request body for updating a link.
// Omitted fields are left unchanged.
type UpdateLinkRequest struct {
	URL      *string `json:"url,omitempty" binding:"omitempty,url"`
	IsActive *bool   `json:"is_active,omitempty"`
}
