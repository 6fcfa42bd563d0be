// Package dashboard aggregates backup statistics for the caller's area and
// caches the result.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/cache"
	"github.com/jonwraymond/opsgate/internal/store"
)

// ErrNoArea is returned for a non-admin caller whose token carries no area.
var ErrNoArea = errors.New("dashboard: caller has no area")

// AllAreas is the scope reported to admins.
const AllAreas = "*"

const query = "dashboard"

// StatsSource computes statistics for an area ("" means every area).
type StatsSource interface {
	Stats(ctx context.Context, area string) (store.Stats, error)
}

// View is the dashboard payload.
type View struct {
	Scope  string `json:"scope"`
	Cached bool   `json:"cached"`
	store.Stats
}

// Service serves dashboard views.
type Service struct {
	src    StatsSource
	keyer  cache.Keyer
	loader *cache.Loader[store.Stats]
}

// New creates a service. A nil cache or a zero ttl disables caching.
func New(src StatsSource, c cache.Cache, ttl time.Duration) *Service {
	policy := cache.NoCachePolicy()
	if c != nil {
		policy = cache.PolicyWithTTL(ttl)
	}
	return &Service{
		src:    src,
		keyer:  cache.NewDefaultKeyer(),
		loader: cache.NewLoader[store.Stats](c, policy),
	}
}

// Scope returns the area id may see: "" for admins, otherwise its Area.
func Scope(id *auth.Identity) (string, error) {
	if id == nil {
		return "", ErrNoArea
	}
	if id.HasGroup(store.GroupAdmin) {
		return "", nil
	}
	if id.Area == "" {
		return "", ErrNoArea
	}
	return id.Area, nil
}

// For returns the view for id.
func (s *Service) For(ctx context.Context, id *auth.Identity) (View, error) {
	area, err := Scope(id)
	if err != nil {
		return View{}, err
	}
	key, err := s.key(area)
	if err != nil {
		return View{}, err
	}

	stats, hit, err := s.loader.Get(ctx, key, func(ctx context.Context) (store.Stats, error) {
		return s.src.Stats(ctx, area)
	})
	if err != nil {
		return View{}, fmt.Errorf("dashboard: load stats: %w", err)
	}

	scope := area
	if scope == "" {
		scope = AllAreas
	}
	return View{Scope: scope, Cached: hit, Stats: stats}, nil
}

// Invalidate drops the cached view for area and the all-areas view.
func (s *Service) Invalidate(ctx context.Context, area string) error {
	var errs []error
	for _, a := range []string{area, ""} {
		key, err := s.key(a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.loader.Invalidate(ctx, key); err != nil && !errors.Is(err, cache.ErrNilCache) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) key(area string) (string, error) {
	return s.keyer.Key(query, area, nil)
}
