package pug

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// depGraph is a directed graph of the files a template reads. Files point to
// the files they include or extend, and dependencies are always walked
// first.
type depGraph struct {
	// names holds the nodes in the graph.
	names []string

	// index maps a name to its position in names.
	index map[string]int

	// edgesTo holds graph edges, keyed by the position of the node the
	// edges point to. If a.pug includes b.pug, edgesTo has a key for b.pug
	// with a value of [a.pug].
	edgesTo map[int]map[int]struct{}

	// edgesFrom holds graph edges, keyed by the position of the node the
	// edges point from. If a.pug includes b.pug, edgesFrom has a key for
	// a.pug with a value of [b.pug].
	edgesFrom map[int]map[int]struct{}
}

func newDepGraph() *depGraph {
	return &depGraph{
		index:     map[string]int{},
		edgesTo:   map[int]map[int]struct{}{},
		edgesFrom: map[int]map[int]struct{}{},
	}
}

func (g *depGraph) add(name string) int {
	if pos, ok := g.index[name]; ok {
		return pos
	}
	g.names = append(g.names, name)
	g.index[name] = len(g.names) - 1
	return len(g.names) - 1
}

// depend records that from reads to.
func (g *depGraph) depend(from, to string) {
	fromPos, toPos := g.add(from), g.add(to)
	if g.edgesFrom[fromPos] == nil {
		g.edgesFrom[fromPos] = map[int]struct{}{}
	}
	if g.edgesTo[toPos] == nil {
		g.edgesTo[toPos] = map[int]struct{}{}
	}
	g.edgesFrom[fromPos][toPos] = struct{}{}
	g.edgesTo[toPos][fromPos] = struct{}{}
}

// walk returns every name in the graph, dependencies before the files that
// depend on them. Names that are equally ready are sorted, so the order is
// stable. The graph is left empty.
func (g *depGraph) walk(_ context.Context) ([]string, error) {
	byName := func(a, b int) int {
		return strings.Compare(g.names[a], g.names[b])
	}
	ready := make([]int, 0, len(g.names))
	results := make([]string, 0, len(g.names))
	for pos := range g.names {
		if len(g.edgesFrom[pos]) < 1 {
			ready = append(ready, pos)
		}
	}
	slices.SortFunc(ready, byName)
	for len(ready) > 0 {
		pos := ready[0]
		ready = ready[1:]
		results = append(results, g.names[pos])
		var readyChanged bool
		for dependent := range g.edgesTo[pos] {
			delete(g.edgesFrom[dependent], pos)
			if len(g.edgesFrom[dependent]) < 1 {
				delete(g.edgesFrom, dependent)
				ready = append(ready, dependent)
				readyChanged = true
			}
		}
		delete(g.edgesTo, pos)
		if readyChanged {
			slices.SortFunc(ready, byName)
		}
	}
	for pos, edges := range g.edgesFrom {
		if len(edges) < 1 {
			delete(g.edgesFrom, pos)
		}
	}
	if len(g.edgesFrom) > 0 {
		var stuck []string
		for pos := range g.edgesFrom {
			stuck = append(stuck, g.names[pos])
		}
		slices.Sort(stuck)
		return results, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return results, nil
}
