package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linklite/internal/cache"
	"linklite/internal/jwt"
	"linklite/internal/middleware"
	"linklite/internal/models"
	"linklite/internal/repository"
	"linklite/internal/service"
)

const testBaseURL = "http://sho.rt"

// seqGen hands out distinct codes so tests never hit the collision
// retry path.
type seqGen struct{ n atomic.Int64 }

func (g *seqGen) Generate(length int) string {
	return fmt.Sprintf("%0*d", length, g.n.Add(1))
}

func newTestRouter(t *testing.T) (*gin.Engine, *jwt.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryLinkRepository()
	linkService := service.NewLinkService(
		repo, cache.NewMemoryCache(), &seqGen{}, zerolog.Nop(), 6, 3, 3600)
	jwtService := jwt.NewJWTService("test-secret", time.Hour)
	lc := NewLinkController(linkService, testBaseURL)

	router := gin.New()
	router.GET("/:shortCode", lc.Redirect)

	api := router.Group("/api/v1")
	api.GET("/redirect/:shortCode", lc.ResolvePublic)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.POST("/shorten", lc.CreateLink)
	protected.GET("/urls", lc.GetUserLinks)
	protected.PATCH("/url/:id", lc.UpdateLink)
	protected.DELETE("/url/:id", lc.DeleteLink)

	return router, jwtService
}

func authHeader(t *testing.T, jwtService *jwt.JWTService, userID int64) string {
	t.Helper()
	token, err := jwtService.GenerateToken(userID, fmt.Sprintf("user%d@example.com", userID))
	require.NoError(t, err)
	return "Bearer " + token
}

func createLink(t *testing.T, router *gin.Engine, auth, url string) models.LinkResponse {
	t.Helper()
	body := fmt.Sprintf(`{"url": %q}`, url)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shorten", strings.NewReader(body))
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateAndRedirect(t *testing.T) {
	router, jwtService := newTestRouter(t)
	auth := authHeader(t, jwtService, 7)

	link := createLink(t, router, auth, "https://example.com/a")
	assert.Len(t, link.ShortCode, 6)
	assert.Equal(t, testBaseURL+"/"+link.ShortCode, link.ShortURL)
	assert.True(t, link.IsActive)

	req := httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://example.com/a", w.Header().Get("Location"))
}

func TestResolvePublic(t *testing.T) {
	router, jwtService := newTestRouter(t)
	auth := authHeader(t, jwtService, 7)

	link := createLink(t, router, auth, "https://example.com/b")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/redirect/"+link.ShortCode, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.ResolveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/b", resp.OriginalURL)
}

func TestRedirect_UnknownCode(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nosuch", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShorten_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shorten",
		strings.NewReader(`{"url": "https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShorten_RejectsBadURL(t *testing.T) {
	router, jwtService := newTestRouter(t)
	auth := authHeader(t, jwtService, 7)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/shorten",
		strings.NewReader(`{"url": "not a url"}`))
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLink_OwnershipEnforced(t *testing.T) {
	router, jwtService := newTestRouter(t)
	owner := authHeader(t, jwtService, 7)
	stranger := authHeader(t, jwtService, 8)

	link := createLink(t, router, owner, "https://example.com/a")
	body := `{"url": "https://example.com/new"}`

	req := httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/url/%d", link.ID),
		strings.NewReader(body))
	req.Header.Set("Authorization", stranger)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPatch, fmt.Sprintf("/api/v1/url/%d", link.ID),
		strings.NewReader(body))
	req.Header.Set("Authorization", owner)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "https://example.com/new", updated.OriginalURL)
}

func TestDeleteLink_ThenResolveFails(t *testing.T) {
	router, jwtService := newTestRouter(t)
	auth := authHeader(t, jwtService, 7)

	link := createLink(t, router, auth, "https://example.com/a")

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/v1/url/%d", link.ID), nil)
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/"+link.ShortCode, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserLinks_OnlyOwn(t *testing.T) {
	router, jwtService := newTestRouter(t)
	alice := authHeader(t, jwtService, 7)
	bob := authHeader(t, jwtService, 8)

	createLink(t, router, alice, "https://example.com/alice")
	createLink(t, router, bob, "https://example.com/bob")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/urls", nil)
	req.Header.Set("Authorization", alice)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var links []models.LinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/alice", links[0].OriginalURL)
}
