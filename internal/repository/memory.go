package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"linklite/internal/entities"
)

// memoryLinkRepository is a mutex-guarded in-process LinkRepository.
// It mirrors the Postgres implementation's semantics closely enough to
// back tests, including the claim-time uniqueness check.
type memoryLinkRepository struct {
	mu     sync.Mutex
	links  map[int64]*entities.Link
	byCode map[string]int64
	nextID int64
}

// NewMemoryLinkRepository creates an in-memory link repository
func NewMemoryLinkRepository() LinkRepository {
	return &memoryLinkRepository{
		links:  make(map[int64]*entities.Link),
		byCode: make(map[string]int64),
		nextID: 1,
	}
}

func (r *memoryLinkRepository) Claim(ctx context.Context, ownerID int64, originalURL, code string) (*entities.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byCode[code]; taken {
		return nil, entities.ErrCodeCollision
	}

	now := time.Now()
	link := &entities.Link{
		ID:          r.nextID,
		OwnerID:     ownerID,
		OriginalURL: originalURL,
		ShortCode:   code,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.nextID++
	r.links[link.ID] = link
	r.byCode[code] = link.ID

	copied := *link
	return &copied, nil
}

func (r *memoryLinkRepository) FindByCode(ctx context.Context, code string) (*entities.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, entities.ErrNotFound
	}
	link := r.links[id]
	if !link.IsActive {
		return nil, entities.ErrNotFound
	}

	copied := *link
	return &copied, nil
}

func (r *memoryLinkRepository) FindByID(ctx context.Context, id int64) (*entities.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return nil, entities.ErrNotFound
	}

	copied := *link
	return &copied, nil
}

func (r *memoryLinkRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var links []*entities.Link
	for _, link := range r.links {
		if link.OwnerID == ownerID {
			copied := *link
			links = append(links, &copied)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

func (r *memoryLinkRepository) Update(ctx context.Context, link *entities.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.links[link.ID]
	if !ok || existing.OwnerID != link.OwnerID {
		return entities.ErrNotFound
	}

	existing.OriginalURL = link.OriginalURL
	existing.IsActive = link.IsActive
	existing.UpdatedAt = time.Now()
	return nil
}

func (r *memoryLinkRepository) Delete(ctx context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok || link.OwnerID != ownerID {
		return entities.ErrNotFound
	}

	delete(r.byCode, link.ShortCode)
	delete(r.links, id)
	return nil
}

func (r *memoryLinkRepository) IncrementClicks(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[id]
	if !ok {
		return entities.ErrNotFound
	}
	link.Clicks++
	return nil
}
