// Package icfg defines the interprocedural control flow graph consumed by the
// dataflow solvers. Nodes are string labels; edges are one of four kinds that
// determine which flow function the solvers apply.
package icfg

import "fmt"

// EdgeKind represents the kind of an interprocedural edge.
type EdgeKind string

const (
	EdgeNormal       EdgeKind = "normal"         // Intraprocedural flow
	EdgeCall         EdgeKind = "call"           // Call site to callee entry
	EdgeReturn       EdgeKind = "return"         // Callee exit to return site
	EdgeCallToReturn EdgeKind = "call_to_return" // Call site to return site, bypassing the callee
)

// ParseEdgeKind converts a textual kind into an EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch k := EdgeKind(s); k {
	case EdgeNormal, EdgeCall, EdgeReturn, EdgeCallToReturn:
		return k, nil
	case "":
		return EdgeNormal, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEdgeKind, s)
	}
}

// Edge is an outgoing edge of a node. CallSite is only set for Return edges
// and names the call site whose return site is To.
type Edge struct {
	Kind     EdgeKind `json:"kind"`
	To       string   `json:"to"`
	CallSite string   `json:"call_site,omitempty"`
}

// Normal returns an intraprocedural edge to the given node.
func Normal(to string) Edge { return Edge{Kind: EdgeNormal, To: to} }

// Call returns an edge to the entry node of a callee.
func Call(calleeEntry string) Edge { return Edge{Kind: EdgeCall, To: calleeEntry} }

// Return returns an edge from a callee exit to the return site of callSite.
func Return(returnSite, callSite string) Edge {
	return Edge{Kind: EdgeReturn, To: returnSite, CallSite: callSite}
}

// CallToReturn returns the edge letting facts untouched by a call flow from
// the call site straight to its return site.
func CallToReturn(returnSite string) Edge {
	return Edge{Kind: EdgeCallToReturn, To: returnSite}
}

func (e Edge) String() string {
	if e.Kind == EdgeReturn {
		return fmt.Sprintf("%s(%s, call_site=%s)", e.Kind, e.To, e.CallSite)
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.To)
}

// ReturnEdge is a Return edge seen from its call site.
type ReturnEdge struct {
	Exit       string
	ReturnSite string
}

// Graph is a directed multigraph over string-labeled nodes. The zero value is
// not usable; create graphs with New.
type Graph struct {
	succ    map[string][]Edge
	nodes   []string
	index   map[string]int
	entries []string
	exits   []string
	isEntry map[string]bool
	isExit  map[string]bool
	returns map[string][]ReturnEdge
	edges   int
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		succ:    make(map[string][]Edge),
		index:   make(map[string]int),
		isEntry: make(map[string]bool),
		isExit:  make(map[string]bool),
		returns: make(map[string][]ReturnEdge),
	}
}

// AddNode registers a node without edges. Adding a node twice is a no-op.
func (g *Graph) AddNode(n string) {
	if _, ok := g.index[n]; ok {
		return
	}
	g.index[n] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddEdge adds an outgoing edge of from. Duplicate edges are ignored.
func (g *Graph) AddEdge(from string, e Edge) {
	g.AddNode(from)
	g.AddNode(e.To)
	if e.Kind == EdgeReturn && e.CallSite != "" {
		g.AddNode(e.CallSite)
	}
	for _, existing := range g.succ[from] {
		if existing == e {
			return
		}
	}
	g.succ[from] = append(g.succ[from], e)
	g.edges++
	if e.Kind == EdgeReturn {
		g.returns[e.CallSite] = append(g.returns[e.CallSite], ReturnEdge{Exit: from, ReturnSite: e.To})
	}
}

// AddEntry marks n as a procedure entry node.
func (g *Graph) AddEntry(n string) {
	g.AddNode(n)
	if !g.isEntry[n] {
		g.isEntry[n] = true
		g.entries = append(g.entries, n)
	}
}

// AddExit marks n as a procedure exit node.
func (g *Graph) AddExit(n string) {
	g.AddNode(n)
	if !g.isExit[n] {
		g.isExit[n] = true
		g.exits = append(g.exits, n)
	}
}

// Successors returns the outgoing edges of n in insertion order.
func (g *Graph) Successors(n string) []Edge {
	return g.succ[n]
}

// CalleeEntries returns the targets of the Call edges leaving callSite.
func (g *Graph) CalleeEntries(callSite string) []string {
	var out []string
	for _, e := range g.succ[callSite] {
		if e.Kind == EdgeCall {
			out = append(out, e.To)
		}
	}
	return out
}

// ReachesLocally reports whether to can be reached from from without
// entering or leaving a procedure, that is over Normal and CallToReturn
// edges only. A node reaches itself.
func (g *Graph) ReachesLocally(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.succ[n] {
			if e.Kind != EdgeNormal && e.Kind != EdgeCallToReturn {
				continue
			}
			if e.To == to {
				return true
			}
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return false
}

// ReturnsTo returns the Return edges that lead back to callSite.
func (g *Graph) ReturnsTo(callSite string) []ReturnEdge {
	return g.returns[callSite]
}

// HasNode reports whether n has been added to the graph.
func (g *Graph) HasNode(n string) bool {
	_, ok := g.index[n]
	return ok
}

// IsEntry reports whether n is a procedure entry.
func (g *Graph) IsEntry(n string) bool { return g.isEntry[n] }

// IsExit reports whether n is a procedure exit.
func (g *Graph) IsExit(n string) bool { return g.isExit[n] }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string { return g.nodes }

// Entries returns the entry nodes in insertion order.
func (g *Graph) Entries() []string { return g.entries }

// Exits returns the exit nodes in insertion order.
func (g *Graph) Exits() []string { return g.exits }

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of distinct edges.
func (g *Graph) NumEdges() int { return g.edges }

// Edges calls fn for every edge in node insertion order.
func (g *Graph) Edges(fn func(from string, e Edge)) {
	for _, n := range g.nodes {
		for _, e := range g.succ[n] {
			fn(n, e)
		}
	}
}
