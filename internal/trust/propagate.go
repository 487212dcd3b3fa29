package trust

import (
	"runtime"
	"time"
)

// ratingOffset shifts ratings from [-10, 10] into [1, 21] so that every edge
// cost 1/(rating+ratingOffset) is strictly positive.
const ratingOffset = 11

// EdgeCost converts a rating into a traversal cost. Higher ratings are
// cheaper to traverse.
func EdgeCost(rating int) float64 {
	return 1.0 / float64(rating+ratingOffset)
}

// Scores maps each reachable actor to its averaged path cost from the start
// actor. Lower means more trusted. Unreachable actors are absent.
type Scores map[int]float64

// Options configures propagation.
type Options struct {
	Frontier FrontierKind
	// Workers bounds the number of concurrent propagations in PropagateAll.
	// Zero or negative means runtime.GOMAXPROCS(0).
	Workers int
	// Observer, when set, is called after each start actor finishes in
	// PropagateAll. It may be called from several goroutines at once.
	Observer func(start int, elapsed time.Duration)
}

// Option customises Options.
type Option func(*Options)

// DefaultOptions returns the B-tree frontier with one worker per CPU.
func DefaultOptions() Options {
	return Options{Frontier: FrontierBTree}
}

// WithFrontier selects the priority queue implementation.
func WithFrontier(kind FrontierKind) Option {
	return func(o *Options) { o.Frontier = kind }
}

// WithWorkers bounds PropagateAll's concurrency.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithObserver installs a per-start completion hook for PropagateAll.
func WithObserver(fn func(start int, elapsed time.Duration)) Option {
	return func(o *Options) { o.Observer = fn }
}

func resolveOptions(opts []Option) Options {
	cfg := DefaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return cfg
}

// visit is the best known way to reach an actor. cost and hops always come
// from the same path and are only ever written together.
type visit struct {
	cost float64
	hops int
}

// propagation holds the private state of a single traversal.
type propagation struct {
	g       *Graph
	best    map[int]visit
	pending frontier
	seq     uint64
}

// Propagate runs the trust traversal from start and returns the averaged
// score of every actor it reaches, start included with score 0.
//
// Edge costs are EdgeCost(rating). The start actor counts as the first node
// on its own path, so a path of k edges is averaged over k+1 nodes. An actor's
// recorded path is only replaced by a strictly cheaper one; equal-cost
// alternatives found later are ignored. Entries made stale by an improvement
// stay queued and are skipped when popped.
func Propagate(g *Graph, start int, opts ...Option) Scores {
	cfg := resolveOptions(opts)
	p := &propagation{
		g:       g,
		best:    make(map[int]visit),
		pending: newFrontier(cfg.Frontier),
	}
	p.run(start)
	return p.scores()
}

func (p *propagation) run(start int) {
	p.best[start] = visit{cost: 0, hops: 1}
	p.enqueue(start, 0, 1)

	for {
		cur, ok := p.pending.popMin()
		if !ok {
			return
		}
		if v, seen := p.best[cur.actor]; seen && cur.cost > v.cost {
			continue // stale
		}
		p.relax(cur)
	}
}

func (p *propagation) relax(cur entry) {
	for _, e := range p.g.Edges(cur.actor) {
		cost := cur.cost + EdgeCost(e.Rating)
		hops := cur.hops + 1

		if v, seen := p.best[e.Target]; seen && v.cost <= cost {
			continue
		}
		p.best[e.Target] = visit{cost: cost, hops: hops}
		p.enqueue(e.Target, cost, hops)
	}
}

func (p *propagation) enqueue(actor int, cost float64, hops int) {
	p.pending.push(entry{cost: cost, actor: actor, hops: hops, seq: p.seq})
	p.seq++
}

func (p *propagation) scores() Scores {
	out := make(Scores, len(p.best))
	for actor, v := range p.best {
		out[actor] = v.cost / float64(v.hops)
	}
	return out
}
