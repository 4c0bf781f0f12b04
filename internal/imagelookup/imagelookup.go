// Package imagelookup resolves site category labels to stock photo provider categories
// and returns shuffled, cached image lists for them.
package imagelookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/DMarby/stockphotos/internal/alias"
	"github.com/DMarby/stockphotos/internal/cache"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/stockphoto"
	"github.com/DMarby/stockphotos/internal/tracing"
)

// Image is an image record as returned by the provider, passed through untouched
type Image = json.RawMessage

// Upstream is the stock photo provider API
type Upstream interface {
	Categories(ctx context.Context) ([]stockphoto.Category, error)
	Images(ctx context.Context, categoryID string) (*stockphoto.ImageList, error)
}

// Config configures cache keys, expiry and the parent category fallback
type Config struct {
	KeyPrefix     string
	CategoriesKey string
	ImagesTTL     time.Duration
	CategoriesTTL time.Duration
	MaxParentHops int
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     "stockphotos_images_",
		CategoriesKey: "stockphotos_categories",
		ImagesTTL:     time.Hour,
		CategoriesTTL: 24 * time.Hour,
		MaxParentHops: 10,
	}
}

// Errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrTooManyHops      = errors.New("too many parent categories")
	ErrCategoryCycle    = errors.New("category is its own ancestor")
)

// Service looks up images for site categories
type Service struct {
	cfg      Config
	upstream Upstream
	aliases  alias.Table
	cache    *cache.Auto
	log      *logger.Logger
	tracer   *tracing.Tracer

	random *rand.Rand
	mu     sync.Mutex
}

// New returns a new Service. A nil alias table resolves every label through the provider category list.
func New(cfg Config, upstream Upstream, aliases alias.Table, provider cache.Provider, log *logger.Logger, tracer *tracing.Tracer) *Service {
	if aliases == nil {
		aliases = alias.Map{}
	}

	return &Service{
		cfg:      cfg,
		upstream: upstream,
		aliases:  aliases,
		cache: &cache.Auto{
			Provider: provider,
			Log:      log,
		},
		log:    log,
		tracer: tracer,
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Images returns the images for a category label, in random order.
// It never fails: an unknown category, an unreachable API or a malformed response all result in an empty list.
func (s *Service) Images(ctx context.Context, label string) []Image {
	ctx, span := s.tracer.Start(ctx, "imagelookup.Images")
	defer span.End()

	id, err := s.Resolve(ctx, label)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			s.log.Debugw("unknown category", "category", label)
		} else {
			s.log.Warnw("error resolving category", "category", label, "error", err)
		}

		return []Image{}
	}

	// Lists are shuffled once when they're fetched, cached lists are returned as they were stored
	data, err := s.cache.Get(ctx, s.cfg.KeyPrefix+id, s.cfg.ImagesTTL, func(ctx context.Context) ([]byte, error) {
		images, err := s.fetchWithFallback(ctx, id)
		if err != nil {
			return nil, err
		}

		s.shuffle(images)
		return json.Marshal(images)
	})
	if err != nil {
		s.log.Warnw("error fetching images", "category", label, "category-id", id, "error", err)
		return []Image{}
	}

	var images []Image
	if err := json.Unmarshal(data, &images); err != nil {
		s.log.Warnw("error decoding cached images", "category-id", id, "error", err)
		return []Image{}
	}

	if images == nil {
		return []Image{}
	}

	return images
}

// Resolve returns the provider category id for a category label.
// Labels in the alias table are resolved without calling the API, other labels
// resolve to themselves if the provider has a category with that id.
func (s *Service) Resolve(ctx context.Context, label string) (string, error) {
	if id, ok := s.aliases.Lookup(label); ok {
		return id, nil
	}

	categories, err := s.ProviderCategories(ctx)
	if err != nil {
		return "", err
	}

	if _, ok := categories[label]; ok {
		return label, nil
	}

	return "", fmt.Errorf("%w: %s", ErrCategoryNotFound, label)
}

// ProviderCategories returns every provider category, keyed by id
func (s *Service) ProviderCategories(ctx context.Context) (map[string]stockphoto.Category, error) {
	ctx, span := s.tracer.Start(ctx, "imagelookup.ProviderCategories")
	defer span.End()

	data, err := s.cache.Get(ctx, s.cfg.CategoriesKey, s.cfg.CategoriesTTL, func(ctx context.Context) ([]byte, error) {
		list, err := s.upstream.Categories(ctx)
		if err != nil {
			return nil, err
		}

		categories := make(map[string]stockphoto.Category, len(list))
		for _, category := range list {
			categories[category.ID] = category
		}

		return json.Marshal(categories)
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching provider categories: %w", err)
	}

	categories := make(map[string]stockphoto.Category)
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("error decoding provider categories: %w", err)
	}

	return categories, nil
}

// fetchWithFallback fetches the images of a category, walking up to its
// parent categories for as long as a category has no images
func (s *Service) fetchWithFallback(ctx context.Context, id string) ([]Image, error) {
	visited := make(map[string]struct{})

	for hop := 0; hop <= s.cfg.MaxParentHops; hop++ {
		if _, ok := visited[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrCategoryCycle, id)
		}
		visited[id] = struct{}{}

		list, err := s.upstream.Images(ctx, id)
		if err != nil {
			return nil, err
		}

		if list.Count > 0 {
			if list.Results == nil {
				return []Image{}, nil
			}

			return list.Results, nil
		}

		if list.ParentCategory == "" {
			return []Image{}, nil
		}

		s.log.Debugw("category has no images, falling back to its parent", "category-id", id, "parent", list.ParentCategory)
		id = list.ParentCategory
	}

	return nil, fmt.Errorf("%w: gave up at %s after %d", ErrTooManyHops, id, s.cfg.MaxParentHops)
}

func (s *Service) shuffle(images []Image) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.random.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})
}
