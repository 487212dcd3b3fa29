package trust

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// PropagateAll runs Propagate from every source actor of g and returns the
// scores keyed by start actor. Propagations run concurrently, bounded by
// Options.Workers; each owns its traversal state and shares g read-only, so
// g must not be modified until PropagateAll returns.
//
// Cancelling ctx stops scheduling further start actors and returns the
// context error.
func PropagateAll(ctx context.Context, g *Graph, opts ...Option) (map[int]Scores, error) {
	cfg := resolveOptions(opts)
	actors := g.Actors()
	results := make([]Scores, len(actors))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.Workers)

	for i, start := range actors {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			began := time.Now()
			results[i] = Propagate(g, start, WithFrontier(cfg.Frontier))
			if cfg.Observer != nil {
				cfg.Observer(start, time.Since(began))
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("trust: propagate all: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("trust: propagate all: %w", err)
	}

	all := make(map[int]Scores, len(actors))
	for i, start := range actors {
		all[start] = results[i]
	}
	return all, nil
}
