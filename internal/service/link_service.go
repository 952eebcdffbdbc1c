package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"linklite/internal/cache"
	"linklite/internal/entities"
	"linklite/internal/repository"
)

// CodeGenerator produces candidate short codes. Candidates may collide;
// the claim path decides.
type CodeGenerator interface {
	Generate(length int) string
}

// LinkUpdate carries the optional fields of an update request. Nil
// means leave unchanged. Code, owner, and id are immutable.
type LinkUpdate struct {
	OriginalURL *string
	IsActive    *bool
}

// LinkService defines the interface for link business logic
type LinkService interface {
	Shorten(ctx context.Context, ownerID int64, originalURL string) (*entities.Link, error)
	Resolve(ctx context.Context, code string) (string, error)
	GetUserLinks(ctx context.Context, ownerID int64) ([]*entities.Link, error)
	UpdateLink(ctx context.Context, id, ownerID int64, upd LinkUpdate) (*entities.Link, error)
	DeleteLink(ctx context.Context, id, ownerID int64) error
}

type linkService struct {
	repo        repository.LinkRepository
	cache       cache.Cache
	gen         CodeGenerator
	log         zerolog.Logger
	codeLength  int
	maxAttempts int
	cacheTTL    time.Duration
}

// NewLinkService creates a new link service. cacheClient may be nil;
// the service then runs straight against the store.
func NewLinkService(
	repo repository.LinkRepository,
	cacheClient cache.Cache,
	gen CodeGenerator,
	logger zerolog.Logger,
	codeLength, maxAttempts, cacheTTLSeconds int,
) LinkService {
	if codeLength <= 0 {
		codeLength = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if cacheTTLSeconds <= 0 {
		cacheTTLSeconds = 3600
	}
	return &linkService{
		repo:        repo,
		cache:       cacheClient,
		gen:         gen,
		log:         logger,
		codeLength:  codeLength,
		maxAttempts: maxAttempts,
		cacheTTL:    time.Duration(cacheTTLSeconds) * time.Second,
	}
}

// Shorten allocates a short code for the target URL. Each attempt is
// its own claim transaction; a collision discards the candidate and
// retries with a fresh one, up to the configured budget. The new record
// is not cached here: the first resolve populates the cache lazily.
func (s *linkService) Shorten(ctx context.Context, ownerID int64, originalURL string) (*entities.Link, error) {
	if err := validateTarget(ownerID, originalURL); err != nil {
		return nil, err
	}

	var link *entities.Link
	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		code := s.gen.Generate(s.codeLength)

		created, err := s.repo.Claim(ctx, ownerID, originalURL, code)
		if err != nil {
			if errors.Is(err, entities.ErrCodeCollision) {
				s.log.Debug().Str("short_code", code).Msg("short code collision, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		link = created
		return nil
	})
	if err != nil {
		if errors.Is(err, entities.ErrCodeCollision) {
			s.log.Warn().Int("attempts", s.maxAttempts).Msg("allocation exhausted")
			return nil, entities.ErrAllocationExhausted
		}
		return nil, err
	}

	s.log.Info().
		Int64("link_id", link.ID).
		Str("short_code", link.ShortCode).
		Int64("owner_id", ownerID).
		Msg("short link created")
	return link, nil
}

// Resolve returns the target URL for a code. The cache hit path trusts
// the cached record without re-checking is_active: entries are only
// ever populated from active rows and every mutation invalidates them.
func (s *linkService) Resolve(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", entities.ErrNotFound
	}

	if s.cache != nil {
		var cached entities.Link
		err := s.cache.GetJSON(ctx, cache.CodeKey(code), &cached)
		if err == nil {
			s.countClick(ctx, cached.ID, code)
			return cached.OriginalURL, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn().Err(err).Str("short_code", code).Msg("cache read failed, falling back to store")
		}
	}

	link, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.CodeKey(code), link, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("short_code", code).Msg("failed to populate cache")
		}
	}

	s.countClick(ctx, link.ID, code)
	return link.OriginalURL, nil
}

// countClick bumps the click counter and drops the cached record so the
// next read observes the new count. Best-effort: a failure is logged
// and swallowed, never surfaced to the resolution it is attached to.
func (s *linkService) countClick(ctx context.Context, id int64, code string) {
	if err := s.repo.IncrementClicks(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("short_code", code).Msg("failed to increment clicks")
		return
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.CodeKey(code)); err != nil {
			s.log.Warn().Err(err).Str("short_code", code).Msg("failed to invalidate cache after click")
		}
	}
}

// GetUserLinks retrieves all links owned by ownerID, newest first
func (s *linkService) GetUserLinks(ctx context.Context, ownerID int64) ([]*entities.Link, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// UpdateLink applies the requested field changes to an owned link.
// An owner mismatch is reported as ErrUnauthorized, distinct from
// ErrNotFound; the HTTP boundary decides how much of that to disclose.
func (s *linkService) UpdateLink(ctx context.Context, id, ownerID int64, upd LinkUpdate) (*entities.Link, error) {
	link, err := s.getOwnedLink(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if upd.OriginalURL != nil {
		link.OriginalURL = *upd.OriginalURL
	}
	if upd.IsActive != nil {
		link.IsActive = *upd.IsActive
	}

	if err := validateTarget(link.OwnerID, link.OriginalURL); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}

	s.invalidate(ctx, link)
	s.log.Info().Int64("link_id", link.ID).Msg("link updated")
	return link, nil
}

// DeleteLink removes an owned link and its cache entries
func (s *linkService) DeleteLink(ctx context.Context, id, ownerID int64) error {
	link, err := s.getOwnedLink(ctx, id, ownerID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return err
	}

	s.invalidate(ctx, link)
	s.log.Info().Int64("link_id", id).Msg("link deleted")
	return nil
}

func (s *linkService) getOwnedLink(ctx context.Context, id, ownerID int64) (*entities.Link, error) {
	link, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		return nil, entities.ErrUnauthorized
	}
	return link, nil
}

// findByID is cache-aside over the id dimension. Safe for the
// ownership check because the owner never changes after creation.
func (s *linkService) findByID(ctx context.Context, id int64) (*entities.Link, error) {
	if s.cache != nil {
		var cached entities.Link
		if err := s.cache.GetJSON(ctx, cache.IDKey(id), &cached); err == nil {
			return &cached, nil
		}
	}

	link, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.IDKey(id), link, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Int64("link_id", id).Msg("failed to populate cache")
		}
	}
	return link, nil
}

// invalidate drops both cache entries for a link. Runs after the store
// commit so a racing read can observe either side of the mutation but
// never an uncommitted value.
func (s *linkService) invalidate(ctx context.Context, link *entities.Link) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.CodeKey(link.ShortCode)); err != nil {
		s.log.Warn().Err(err).Str("short_code", link.ShortCode).Msg("failed to invalidate cache")
	}
	if err := s.cache.Delete(ctx, cache.IDKey(link.ID)); err != nil {
		s.log.Warn().Err(err).Int64("link_id", link.ID).Msg("failed to invalidate cache")
	}
}

func validateTarget(ownerID int64, originalURL string) error {
	if ownerID <= 0 {
		return entities.ValidationError("owner_id", "is required")
	}
	if originalURL == "" {
		return entities.ValidationError("original_url", "is required")
	}
	u, err := url.Parse(originalURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return entities.ValidationError("original_url", "must be a well-formed http(s) URL")
	}
	return nil
}
