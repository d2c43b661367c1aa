package utterance

import (
	"fmt"
)

type edgeKey struct{ lo, hi SeqID }

func keyOf(x, y SeqID) edgeKey {
	if x > y {
		x, y = y, x
	}
	return edgeKey{lo: x, hi: y}
}

type options struct {
	cacheDerived bool
}

// Option configures a RelationGraph.
type Option func(*options)

// WithDerivedCache controls whether relations derived by composition are
// memoized. A memoized relation is recomputed as soon as any relation on its
// path changes or a relation is added to the graph.
func WithDerivedCache(enabled bool) Option {
	return func(o *options) { o.cacheDerived = enabled }
}

type derived struct {
	rel      *Relation
	gen      uint64
	path     []*alignment
	versions []uint64
	version  uint64
}

func (d *derived) fresh(gen uint64) bool {
	if d.gen != gen || d.rel.a.version != d.version {
		return false
	}
	for i, a := range d.path {
		if a.version != d.versions[i] {
			return false
		}
	}
	return true
}

// RelationGraph stores relations between sequences and answers alignment
// queries between any two of them. Edges are undirected: a relation
// registered from A to B is found for (A,B) and (B,A). When two sequences
// are not directly related, the graph composes the relations along the
// shortest path between them.
type RelationGraph struct {
	opts  options
	nodes map[SeqID]Seq
	order []SeqID
	adj   map[SeqID][]SeqID
	edges map[edgeKey]*Relation
	keys  []edgeKey
	gen   uint64
	cache map[[2]SeqID]*derived
}

// NewRelationGraph returns an empty graph.
func NewRelationGraph(opts ...Option) *RelationGraph {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	return &RelationGraph{
		opts:  o,
		nodes: make(map[SeqID]Seq),
		adj:   make(map[SeqID][]SeqID),
		edges: make(map[edgeKey]*Relation),
		cache: make(map[[2]SeqID]*derived),
	}
}

// AddRelation registers rel. A relation already registered for the same
// pair of sequences is replaced.
func (g *RelationGraph) AddRelation(rel *Relation) {
	src, dst := rel.Source(), rel.Target()
	g.addNode(src)
	g.addNode(dst)

	k := keyOf(src.ID(), dst.ID())
	if _, ok := g.edges[k]; !ok {
		g.keys = append(g.keys, k)
		g.adj[src.ID()] = append(g.adj[src.ID()], dst.ID())
		if src.ID() != dst.ID() {
			g.adj[dst.ID()] = append(g.adj[dst.ID()], src.ID())
		}
	}
	g.edges[k] = rel
	rel.a.attach()
	g.gen++
}

func (g *RelationGraph) addNode(s Seq) {
	if _, ok := g.nodes[s.ID()]; ok {
		return
	}
	g.nodes[s.ID()] = s
	g.order = append(g.order, s.ID())
}

// Contains reports whether seq is an endpoint of some registered relation.
func (g *RelationGraph) Contains(seq Seq) bool {
	if seq == nil {
		return false
	}
	_, ok := g.nodes[seq.ID()]
	return ok
}

// Relations returns the registered relations in registration order, each in
// the orientation it was registered with.
func (g *RelationGraph) Relations() []*Relation {
	out := make([]*Relation, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, g.edges[k])
	}
	return out
}

// Sequences returns every sequence that is an endpoint of a registered
// relation, in the order they were first seen.
func (g *RelationGraph) Sequences() []Seq {
	out := make([]Seq, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Path returns the shortest chain of sequences from x to y, both included.
// Among equally short paths the one found first, following relations in
// registration order, wins.
func (g *RelationGraph) Path(x, y Seq) ([]Seq, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("path between nil sequences: %w", ErrNoRelation)
	}
	if !g.Contains(x) || !g.Contains(y) {
		return nil, fmt.Errorf("path %d→%d: %w", x.ID(), y.ID(), ErrNoRelation)
	}
	if x.ID() == y.ID() {
		return []Seq{x}, nil
	}

	visited := map[SeqID]bool{x.ID(): true}
	parent := make(map[SeqID]SeqID)
	queue := []SeqID{x.ID()}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range g.adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur
			if next == y.ID() {
				var ids []SeqID
				for n := next; n != x.ID(); n = parent[n] {
					ids = append(ids, n)
				}
				ids = append(ids, x.ID())
				path := make([]Seq, len(ids))
				for i, id := range ids {
					path[len(ids)-1-i] = g.nodes[id]
				}
				return path, nil
			}
			queue = append(queue, next)
		}
	}

	return nil, fmt.Errorf("path %d→%d: %w", x.ID(), y.ID(), ErrNoRelation)
}

// HasRelation reports whether GetRelation(x, y) would succeed.
func (g *RelationGraph) HasRelation(x, y Seq) bool {
	_, err := g.Path(x, y)
	return err == nil
}

// GetRelation returns the relation aligning x (source) with y (target).
//
// A registered relation is returned as is, or as its reversed view when it
// was registered from y to x. Otherwise the relations along the shortest
// path are composed; a derived relation may be empty, which means no
// alignment was found. When no path exists the error wraps ErrNoRelation.
// A sequence queried against itself with no self relation registered yields
// the identity alignment.
func (g *RelationGraph) GetRelation(x, y Seq) (*Relation, error) {
	path, err := g.Path(x, y)
	if err != nil {
		return nil, err
	}

	if len(path) == 1 {
		if rel, ok := g.edges[keyOf(x.ID(), x.ID())]; ok {
			return rel, nil
		}
		return identity(x), nil
	}
	if len(path) == 2 {
		return g.oriented(path[0], path[1]), nil
	}

	ck := [2]SeqID{x.ID(), y.ID()}
	if d, ok := g.cache[ck]; ok && d.fresh(g.gen) {
		return d.rel, nil
	}

	hops := make([]*alignment, 0, len(path)-1)
	rel := g.oriented(path[0], path[1])
	hops = append(hops, rel.a)
	for i := 1; i < len(path)-1; i++ {
		next := g.oriented(path[i], path[i+1])
		hops = append(hops, next.a)
		rel, err = Compose(rel, next)
		if err != nil {
			return nil, err
		}
	}

	if g.opts.cacheDerived {
		d := &derived{rel: rel, gen: g.gen, path: hops, version: rel.a.version}
		for _, a := range hops {
			d.versions = append(d.versions, a.version)
		}
		g.cache[ck] = d
	}
	return rel, nil
}

// oriented returns the registered relation between x and y viewed from x.
func (g *RelationGraph) oriented(x, y Seq) *Relation {
	rel := g.edges[keyOf(x.ID(), y.ID())]
	if rel.Source().ID() == x.ID() {
		return rel
	}
	return rel.Reverse()
}
