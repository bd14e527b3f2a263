package icfg

import (
	"sort"

	"github.com/yourbasic/graph"
)

// toMutable converts g into an index-based graph. Every edge kind counts as
// a control transfer.
func (g *Graph) toMutable() *graph.Mutable {
	m := graph.New(len(g.nodes))
	g.Edges(func(from string, e Edge) {
		m.Add(g.index[from], g.index[e.To])
	})
	return m
}

// Reachable returns the nodes reachable from roots, roots included, in node
// insertion order. Unknown roots are ignored.
func (g *Graph) Reachable(roots ...string) []string {
	m := g.toMutable()
	seen := make([]bool, len(g.nodes))
	for _, r := range roots {
		i, ok := g.index[r]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		graph.BFS(m, i, func(_, w int, _ int64) {
			seen[w] = true
		})
	}

	var out []string
	for i, n := range g.nodes {
		if seen[i] {
			out = append(out, n)
		}
	}
	return out
}

// Unreachable returns the nodes no root can reach. When no roots are given,
// the entry nodes are used.
func (g *Graph) Unreachable(roots ...string) []string {
	if len(roots) == 0 {
		roots = g.entries
	}
	reached := make(map[string]bool)
	for _, n := range g.Reachable(roots...) {
		reached[n] = true
	}

	var out []string
	for _, n := range g.nodes {
		if !reached[n] {
			out = append(out, n)
		}
	}
	return out
}

// Cycles returns the strongly connected components that contain a cycle:
// components of two or more nodes, and single nodes with a self-loop. Nodes
// within a component and the components themselves are ordered by insertion.
func (g *Graph) Cycles() [][]string {
	m := g.toMutable()
	var out [][]int
	for _, comp := range graph.StrongComponents(m) {
		if len(comp) == 1 && !m.Edge(comp[0], comp[0]) {
			continue
		}
		sort.Ints(comp)
		out = append(out, comp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })

	cycles := make([][]string, 0, len(out))
	for _, comp := range out {
		names := make([]string, len(comp))
		for i, idx := range comp {
			names[i] = g.nodes[idx]
		}
		cycles = append(cycles, names)
	}
	return cycles
}
