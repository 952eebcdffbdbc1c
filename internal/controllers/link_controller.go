package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linklite/internal/entities"
	"linklite/internal/middleware"
	"linklite/internal/models"
	"linklite/internal/service"
)

type LinkController struct {
	linkService service.LinkService
	baseURL     string
}

func NewLinkController(linkService service.LinkService, baseURL string) *LinkController {
	return &LinkController{
		linkService: linkService,
		baseURL:     baseURL,
	}
}

// CreateLink handles POST /api/v1/shorten
func (lc *LinkController) CreateLink(c *gin.Context) {
	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	ownerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	link, err := lc.linkService.Shorten(c.Request.Context(), ownerID, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewLinkResponse(link, lc.baseURL))
}

// Redirect handles GET /:shortCode - redirects to the original URL
func (lc *LinkController) Redirect(c *gin.Context) {
	originalURL, err := lc.linkService.Resolve(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusMovedPermanently, originalURL)
}

// ResolvePublic handles GET /api/v1/redirect/:shortCode - returns the
// original URL as JSON without redirecting
func (lc *LinkController) ResolvePublic(c *gin.Context) {
	originalURL, err := lc.linkService.Resolve(c.Request.Context(), c.Param("shortCode"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ResolveResponse{OriginalURL: originalURL})
}

// GetUserLinks handles GET /api/v1/urls - lists the caller's links
func (lc *LinkController) GetUserLinks(c *gin.Context) {
	ownerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	links, err := lc.linkService.GetUserLinks(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]*models.LinkResponse, len(links))
	for i, link := range links {
		responses[i] = models.NewLinkResponse(link, lc.baseURL)
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateLink handles PATCH /api/v1/url/:id
func (lc *LinkController) UpdateLink(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link id"})
		return
	}

	ownerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	var req models.UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	link, err := lc.linkService.UpdateLink(c.Request.Context(), id, ownerID, service.LinkUpdate{
		OriginalURL: req.URL,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewLinkResponse(link, lc.baseURL))
}

// DeleteLink handles DELETE /api/v1/url/:id
func (lc *LinkController) DeleteLink(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link id"})
		return
	}

	ownerID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return
	}

	if err := lc.linkService.DeleteLink(c.Request.Context(), id, ownerID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted successfully"})
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, entities.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized to modify this link"})
	case errors.Is(err, entities.ErrAllocationExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Could not allocate a short code, please retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
