// Package dedupe filters discovered granules against the downstream
// catalog according to the configured duplicate policy.
package dedupe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strata-ingest/granule-discovery/internal/catalog"
	"github.com/strata-ingest/granule-discovery/internal/config"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=resolver.go Resolver

// ConflictError reports a granule the catalog already holds when the
// policy treats duplicates as failures
type ConflictError struct {
	// GranuleID is the duplicate granule
	GranuleID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("granule %s is already present in the catalog", e.GranuleID)
}

// Resolver filters granule IDs according to a duplicate policy
type Resolver interface {
	// Resolve returns the granule IDs that survive the policy, in input
	// order. On error the survivor list is nil.
	Resolve(ctx context.Context, granuleIDs []string, policy config.DuplicatePolicy) ([]string, error)
}

// defaultResolver is the default implementation of Resolver
type defaultResolver struct {
	catalog        catalog.Client
	maxConcurrency int
}

var _ Resolver = (*defaultResolver)(nil)

// NewDefaultResolver creates a resolver that checks for duplicates
// against the given catalog. maxConcurrency bounds parallel catalog
// lookups; non-positive values fall back to the default.
func NewDefaultResolver(client catalog.Client, maxConcurrency int) Resolver {
	if maxConcurrency <= 0 {
		maxConcurrency = config.DefaultLookupConcurrency
	}
	return &defaultResolver{catalog: client, maxConcurrency: maxConcurrency}
}

// Resolve returns the granule IDs that survive the policy
func (r *defaultResolver) Resolve(ctx context.Context, granuleIDs []string, policy config.DuplicatePolicy) ([]string, error) {
	switch policy {
	case config.DuplicateReplace, config.DuplicateVersion:
		// Downstream steps reconcile these policies, so every granule
		// moves on and the catalog is never consulted.
		return granuleIDs, nil
	case config.DuplicateSkip, config.DuplicateError:
		if r.catalog == nil {
			return nil, &config.Error{
				Field:  "duplicateHandling",
				Value:  string(policy),
				Reason: "policy requires catalog lookups but no catalog is configured",
			}
		}
		return r.filter(ctx, granuleIDs, policy)
	default:
		return nil, &config.Error{
			Field:  "duplicateHandling",
			Value:  string(policy),
			Reason: "unknown duplicate policy",
		}
	}
}

// filter looks every granule up in the catalog and applies the policy to
// the ones that already exist
func (r *defaultResolver) filter(ctx context.Context, granuleIDs []string, policy config.DuplicatePolicy) ([]string, error) {
	lookupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Semaphore to limit concurrent catalog lookups
	semaphore := make(chan struct{}, r.maxConcurrency)

	var wg sync.WaitGroup

	// Mutex to protect firstErr
	var mu sync.Mutex
	var firstErr error

	// Each goroutine writes only its own index
	exists := make([]bool, len(granuleIDs))

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i, granuleID := range granuleIDs {
		wg.Add(1)

		go func(i int, granuleID string) {
			defer wg.Done()

			// Acquire semaphore slot
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-lookupCtx.Done():
				return
			}

			found, err := r.catalog.Exists(lookupCtx, granuleID)
			if err != nil {
				// A cancelled lookup lost the race with an earlier failure
				// and must not overwrite it.
				if lookupCtx.Err() != nil && ctx.Err() == nil {
					return
				}
				fail(err)
				return
			}
			exists[i] = found

			if found && policy == config.DuplicateError {
				fail(&ConflictError{GranuleID: granuleID})
			}
		}(i, granuleID)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	survivors := make([]string, 0, len(granuleIDs))
	for i, granuleID := range granuleIDs {
		if exists[i] {
			slog.DebugContext(ctx, "Skipping duplicate granule", "granule", granuleID)
			continue
		}
		survivors = append(survivors, granuleID)
	}
	return survivors, nil
}
