package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"linklite/internal/cache"
	"linklite/internal/entities"
	"linklite/internal/mocks"
	"linklite/internal/repository"
)

// stubGenerator replays a fixed sequence of candidates, repeating the
// last one once the sequence is exhausted.
type stubGenerator struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (g *stubGenerator) Generate(length int) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.calls
	g.calls++
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	return g.codes[i]
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// dupGenerator emits every candidate twice, forcing concurrent
// allocations to race for the same code.
type dupGenerator struct {
	n atomic.Int64
}

func (g *dupGenerator) Generate(length int) string {
	return fmt.Sprintf("c%05d", g.n.Add(1)/2)
}

func newTestService(t *testing.T, repo repository.LinkRepository, c cache.Cache, gen CodeGenerator, maxAttempts int) LinkService {
	t.Helper()
	return NewLinkService(repo, c, gen, zerolog.Nop(), 6, maxAttempts, 3600)
}

func mustShorten(t *testing.T, svc LinkService, ownerID int64, url string) *entities.Link {
	t.Helper()
	link, err := svc.Shorten(context.Background(), ownerID, url)
	require.NoError(t, err)
	return link
}

func TestShorten_Success(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link, err := svc.Shorten(context.Background(), 7, "https://example.com/a")
	require.NoError(t, err)

	assert.Equal(t, "aB3dE9", link.ShortCode)
	assert.Equal(t, int64(7), link.OwnerID)
	assert.Equal(t, "https://example.com/a", link.OriginalURL)
	assert.Zero(t, link.Clicks)
	assert.True(t, link.IsActive)
	assert.NotZero(t, link.ID)
}

func TestShorten_Validation(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, nil, &stubGenerator{codes: []string{"aaaaaa"}}, 3)

	tests := []struct {
		name    string
		ownerID int64
		url     string
	}{
		{"missing owner", 0, "https://example.com"},
		{"empty url", 7, ""},
		{"not a url", 7, "not a url"},
		{"unsupported scheme", 7, "ftp://example.com/file"},
		{"no host", 7, "https://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Shorten(context.Background(), tt.ownerID, tt.url)
			assert.ErrorIs(t, err, entities.ErrValidation)
		})
	}

	// Nothing reached the store
	links, err := repo.ListByOwner(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestShorten_RetriesOnCollision(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	_, err := repo.Claim(context.Background(), 1, "https://example.com/taken", "AAAAAA")
	require.NoError(t, err)

	gen := &stubGenerator{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}
	svc := newTestService(t, repo, nil, gen, 3)

	link := mustShorten(t, svc, 7, "https://example.com/b")
	assert.Equal(t, "BBBBBB", link.ShortCode)
	assert.Equal(t, 3, gen.callCount())
}

func TestShorten_ExhaustsAfterConfiguredAttempts(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	_, err := repo.Claim(context.Background(), 1, "https://example.com/taken", "AAAAAA")
	require.NoError(t, err)

	// Every candidate collides
	gen := &stubGenerator{codes: []string{"AAAAAA"}}
	svc := newTestService(t, repo, nil, gen, 3)

	_, err = svc.Shorten(context.Background(), 7, "https://example.com/b")
	assert.ErrorIs(t, err, entities.ErrAllocationExhausted)
	assert.Equal(t, 3, gen.callCount(), "must stop after exactly the retry budget")
}

func TestShorten_StorageErrorNotRetried(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLinkRepository(ctrl)

	storageErr := errors.New("connection reset")
	repo.EXPECT().
		Claim(gomock.Any(), int64(7), "https://example.com/a", gomock.Any()).
		Return(nil, storageErr).
		Times(1)

	svc := newTestService(t, repo, nil, &stubGenerator{codes: []string{"aaaaaa"}}, 3)

	_, err := svc.Shorten(context.Background(), 7, "https://example.com/a")
	assert.ErrorIs(t, err, storageErr)
}

func TestResolve_ColdPath(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	got, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)

	stored, err := repo.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Clicks)
}

func TestResolve_WarmPathSkipsStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLinkRepository(ctrl)
	mockCache := mocks.NewMockCache(ctrl)

	cached := entities.Link{
		ID:          42,
		OwnerID:     7,
		OriginalURL: "https://example.com/warm",
		ShortCode:   "aB3dE9",
		IsActive:    true,
	}

	mockCache.EXPECT().
		GetJSON(gomock.Any(), "link-by-code:aB3dE9", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest interface{}) error {
			*dest.(*entities.Link) = cached
			return nil
		})
	// Click accounting still runs and invalidates the cached record
	repo.EXPECT().IncrementClicks(gomock.Any(), int64(42)).Return(nil)
	mockCache.EXPECT().Delete(gomock.Any(), "link-by-code:aB3dE9").Return(nil)

	svc := newTestService(t, repo, mockCache, &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	got, err := svc.Resolve(context.Background(), "aB3dE9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/warm", got)
}

func TestResolve_NotFound(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aaaaaa"}}, 3)

	_, err := svc.Resolve(context.Background(), "nosuch")
	assert.ErrorIs(t, err, entities.ErrNotFound)

	_, err = svc.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestResolve_IncrementFailureDoesNotFailRead(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockLinkRepository(ctrl)

	link := &entities.Link{
		ID:          1,
		OwnerID:     7,
		OriginalURL: "https://example.com/a",
		ShortCode:   "aB3dE9",
		IsActive:    true,
	}
	repo.EXPECT().FindByCode(gomock.Any(), "aB3dE9").Return(link, nil)
	repo.EXPECT().IncrementClicks(gomock.Any(), int64(1)).Return(errors.New("deadlock detected"))

	svc := newTestService(t, repo, nil, &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	got, err := svc.Resolve(context.Background(), "aB3dE9")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", got)
}

func TestResolve_ClickCountAccumulates(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	const k = 5
	for i := 0; i < k; i++ {
		got, err := svc.Resolve(context.Background(), link.ShortCode)
		require.NoError(t, err)
		require.Equal(t, "https://example.com/a", got)
	}

	stored, err := repo.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(k), stored.Clicks)
}

func TestUpdateLink_ChangesVisibleImmediately(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/old")

	// Warm the cache
	_, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)

	newURL := "https://example.com/new"
	updated, err := svc.UpdateLink(context.Background(), link.ID, 7, LinkUpdate{OriginalURL: &newURL})
	require.NoError(t, err)
	assert.Equal(t, newURL, updated.OriginalURL)
	assert.Equal(t, link.ShortCode, updated.ShortCode, "code is immutable")

	got, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, newURL, got, "resolve must never return the old target after update")
}

func TestUpdateLink_DeactivationStopsResolution(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	// Warm the cache, then deactivate
	_, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateLink(context.Background(), link.ID, 7, LinkUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), link.ShortCode)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestUpdateLink_NonOwnerRejected(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	newURL := "https://evil.example.com"
	_, err := svc.UpdateLink(context.Background(), link.ID, 8, LinkUpdate{OriginalURL: &newURL})
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	stored, err := repo.FindByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a", stored.OriginalURL, "row must be unchanged")
}

func TestUpdateLink_NotFound(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, nil, &stubGenerator{codes: []string{"aaaaaa"}}, 3)

	newURL := "https://example.com/x"
	_, err := svc.UpdateLink(context.Background(), 999, 7, LinkUpdate{OriginalURL: &newURL})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestDeleteLink(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, cache.NewMemoryCache(), &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	// Warm the cache first so deletion must invalidate it
	_, err := svc.Resolve(context.Background(), link.ShortCode)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteLink(context.Background(), link.ID, 7))

	_, err = svc.Resolve(context.Background(), link.ShortCode)
	assert.ErrorIs(t, err, entities.ErrNotFound)

	links, err := svc.GetUserLinks(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDeleteLink_NonOwnerRejected(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	svc := newTestService(t, repo, nil, &stubGenerator{codes: []string{"aB3dE9"}}, 3)

	link := mustShorten(t, svc, 7, "https://example.com/a")

	err := svc.DeleteLink(context.Background(), link.ID, 8)
	assert.ErrorIs(t, err, entities.ErrUnauthorized)

	_, err = repo.FindByID(context.Background(), link.ID)
	assert.NoError(t, err, "row must still exist")
}

func TestConcurrentShorten_NoDuplicateCodes(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	// Each candidate is generated twice, so allocations race for the
	// same code and must sort it out at the claim. The generous budget
	// keeps retries from exhausting.
	svc := newTestService(t, repo, nil, &dupGenerator{}, 50)

	const n = 32
	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			link, err := svc.Shorten(context.Background(), int64(i+1), fmt.Sprintf("https://example.com/%d", i))
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = link.ShortCode
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		require.NoErrorf(t, errs[i], "allocation %d failed", i)
		require.Falsef(t, seen[codes[i]], "duplicate code %q", codes[i])
		seen[codes[i]] = true
	}
}

func TestGetUserLinks_NewestFirst(t *testing.T) {
	repo := repository.NewMemoryLinkRepository()
	gen := &stubGenerator{codes: []string{"code01", "code02", "code03"}}
	svc := newTestService(t, repo, nil, gen, 3)

	for i := 0; i < 3; i++ {
		mustShorten(t, svc, 7, fmt.Sprintf("https://example.com/%d", i))
	}

	links, err := svc.GetUserLinks(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Equal(t, "code03", links[0].ShortCode)
	assert.Equal(t, "code01", links[2].ShortCode)
}
