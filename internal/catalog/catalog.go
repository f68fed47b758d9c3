// Package catalog answers filtered, ranked queries over the listing registry.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hyperengineering/startupshop/internal/registry"
	"github.com/hyperengineering/startupshop/internal/scoring"
	"github.com/hyperengineering/startupshop/internal/types"
)

var (
	// ErrNotFound is returned when no valid listing has the requested ID.
	ErrNotFound = errors.New("listing not found")

	// ErrInvalidFilter is returned when a filter value is not recognized.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Sort selects the ranking key of a query.
type Sort string

const (
	SortScore Sort = "score"
	SortMRR   Sort = "mrr"
)

// Loader provides the current registry contents.
type Loader interface {
	Load(ctx context.Context) (*registry.LoadResult, error)
}

// ListingWithScore is a listing together with its score breakdown.
type ListingWithScore struct {
	types.StartupListing
	Score scoring.Breakdown `json:"score"`
}

// Filters narrows a query. Empty fields do not filter.
type Filters struct {
	Category   string
	Stage      types.Stage
	Bucket     types.Bucket
	Visibility types.Visibility
	Sort       Sort
}

// Service composes the registry and the scoring engine. Listings are loaded
// and scored on every call.
type Service struct {
	loader Loader
}

// NewService creates a catalog over loader.
func NewService(loader Loader) *Service {
	return &Service{loader: loader}
}

// Query returns the valid listings matching f, ranked by f.Sort. Equal keys
// are ordered by startup_id ascending.
func (s *Service) Query(ctx context.Context, f Filters) ([]ListingWithScore, error) {
	loaded, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	category := strings.ToLower(f.Category)
	result := make([]ListingWithScore, 0, len(loaded.Listings))
	for _, sc := range scoring.ScoreAll(loaded.Listings) {
		l := sc.Listing
		if category != "" && strings.ToLower(l.Identity.Category) != category {
			continue
		}
		if f.Stage != "" && l.Status.Stage != f.Stage {
			continue
		}
		if f.Bucket != "" && l.Bucket != f.Bucket {
			continue
		}
		if f.Visibility != "" && l.Visibility != f.Visibility {
			continue
		}
		result = append(result, ListingWithScore{StartupListing: l, Score: sc.Score})
	}

	key := func(e ListingWithScore) float64 { return e.Score.TotalScore }
	if f.Sort == SortMRR {
		key = func(e ListingWithScore) float64 { return e.Traction.MRRUSD }
	}
	slices.SortStableFunc(result, func(a, b ListingWithScore) int {
		if c := cmp.Compare(key(b), key(a)); c != 0 {
			return c
		}
		return strings.Compare(a.StartupID, b.StartupID)
	})

	return result, nil
}

// GetByID returns the scored listing with the given ID.
func (s *Service) GetByID(ctx context.Context, id string) (*ListingWithScore, error) {
	all, err := s.Query(ctx, Filters{})
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].StartupID == id {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

// ValidationByID returns the validation record of the index entry with the
// given ID, whether or not the listing is valid.
func (s *Service) ValidationByID(ctx context.Context, id string) (*types.ListingValidation, error) {
	loaded, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	for i := range loaded.Validations {
		if loaded.Validations[i].StartupID == id {
			return &loaded.Validations[i], nil
		}
	}
	return nil, ErrNotFound
}

// ParseStage converts a query value to a stage. The empty string means no filter.
func ParseStage(v string) (types.Stage, error) {
	return parseEnum("stage", v, types.Stages)
}

// ParseBucket converts a query value to a bucket. The empty string means no filter.
func ParseBucket(v string) (types.Bucket, error) {
	return parseEnum("bucket", v, types.Buckets)
}

// ParseVisibility converts a query value to a visibility. The empty string means no filter.
func ParseVisibility(v string) (types.Visibility, error) {
	return parseEnum("visibility", v, types.Visibilities)
}

// ParseSort converts a query value to a sort key. The empty string means SortScore.
func ParseSort(v string) (Sort, error) {
	if v == "" {
		return SortScore, nil
	}
	return parseEnum("sort", v, []Sort{SortScore, SortMRR})
}

func parseEnum[T ~string](name, v string, allowed []T) (T, error) {
	if v == "" {
		return "", nil
	}
	if slices.Contains(allowed, T(v)) {
		return T(v), nil
	}
	return "", fmt.Errorf("%w: %s %q", ErrInvalidFilter, name, v)
}
