// Package trust builds directed trust graphs from rating histories and
// propagates trust from a start actor to every reachable actor with a
// Dijkstra-style traversal over transformed edge costs.
package trust

import "sort"

// Edge is one outgoing rating from a source actor.
type Edge struct {
	Target int
	Rating int // raw trust rating, nominally in [-10, 10]
}

// Graph is a directed multigraph keyed by source actor ID. Each source keeps
// its outgoing edges in insertion order; repeated ratings between the same
// pair are kept as separate edges. Actors that are only ever rated have no
// entry of their own but are still valid propagation targets.
//
// A Graph must not be mutated while propagations are reading it.
type Graph struct {
	adj   map[int][]Edge
	edges int
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{adj: make(map[int][]Edge)}
}

// AddEdge appends a source → target edge carrying rating.
func (g *Graph) AddEdge(source, target, rating int) {
	g.adj[source] = append(g.adj[source], Edge{Target: target, Rating: rating})
	g.edges++
}

// Edges returns the outgoing edges of actor in insertion order. The returned
// slice is owned by the graph and must not be modified.
func (g *Graph) Edges(actor int) []Edge {
	if g == nil {
		return nil
	}
	return g.adj[actor]
}

// HasSource reports whether actor has at least one outgoing edge.
func (g *Graph) HasSource(actor int) bool {
	if g == nil {
		return false
	}
	_, ok := g.adj[actor]
	return ok
}

// Actors returns every source actor ID in ascending order. This is the shared
// column ordering used when scores are laid out as a matrix.
func (g *Graph) Actors() []int {
	if g == nil {
		return nil
	}
	ids := make([]int, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of source actors.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.adj)
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.edges
}
