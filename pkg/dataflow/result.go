package dataflow

// SummaryEdge is a memoized procedure effect: when Fact holds at CallSite,
// Target holds at ReturnSite.
type SummaryEdge[F comparable] struct {
	CallSite   string
	Fact       F
	ReturnSite string
	Target     F
}

// IFDSResult is the read-only outcome of an IFDS solve.
type IFDSResult[F comparable] struct {
	zero         F
	pathEdges    map[pathKey[F]]*factSet[F]
	sources      map[string]*factSet[F]
	nodes        []string
	summaries    map[summaryKey[F]]*factSet[F]
	summaryIndex map[callKey[F]][]string
	stats        Statistics
}

// FactsAt returns the facts holding at node under the given source fact.
func (r *IFDSResult[F]) FactsAt(node string, source F) []F {
	return r.pathEdges[pathKey[F]{source: source, node: node}].items()
}

// FactsAtAnyContext returns the facts holding at node under any source
// fact, in first-seen order. It scans every context of the node.
func (r *IFDSResult[F]) FactsAtAnyContext(node string) []F {
	seen := newFactSet[F]()
	for _, src := range r.sources[node].items() {
		for _, d := range r.pathEdges[pathKey[F]{source: src, node: node}].order {
			seen.add(d)
		}
	}
	return seen.order
}

// Holds reports whether fact holds at node in any context.
func (r *IFDSResult[F]) Holds(node string, fact F) bool {
	for _, src := range r.sources[node].items() {
		if r.pathEdges[pathKey[F]{source: src, node: node}].has(fact) {
			return true
		}
	}
	return false
}

// HoldsInContext reports whether the path edge (source, node, fact) was
// proven.
func (r *IFDSResult[F]) HoldsInContext(source F, node string, fact F) bool {
	return r.pathEdges[pathKey[F]{source: source, node: node}].has(fact)
}

// Sources returns the source facts with at least one fact at node.
func (r *IFDSResult[F]) Sources(node string) []F {
	return r.sources[node].items()
}

// NodesWithFact returns the nodes where fact holds in any context, in the
// order they were first reached.
func (r *IFDSResult[F]) NodesWithFact(fact F) []string {
	var out []string
	for _, n := range r.nodes {
		if r.Holds(n, fact) {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every node holding at least one fact, in the order they
// were first reached.
func (r *IFDSResult[F]) Nodes() []string {
	out := make([]string, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// SummaryEdges returns all recorded summary edges.
func (r *IFDSResult[F]) SummaryEdges() []SummaryEdge[F] {
	var out []SummaryEdge[F]
	seen := make(map[callKey[F]]bool)
	for _, n := range r.nodes {
		for _, d := range r.FactsAtAnyContext(n) {
			ck := callKey[F]{callSite: n, fact: d}
			if seen[ck] {
				continue
			}
			seen[ck] = true
			for _, rs := range r.summaryIndex[ck] {
				for _, t := range r.summaries[summaryKey[F]{callSite: n, fact: d, returnSite: rs}].order {
					out = append(out, SummaryEdge[F]{CallSite: n, Fact: d, ReturnSite: rs, Target: t})
				}
			}
		}
	}
	return out
}

// NumPathEdges returns the number of proven path edges.
func (r *IFDSResult[F]) NumPathEdges() int { return r.stats.PathEdges }

// Statistics returns the counters collected during the solve.
func (r *IFDSResult[F]) Statistics() Statistics { return r.stats }

// ZeroFact returns the zero fact of the solved problem.
func (r *IFDSResult[F]) ZeroFact() F { return r.zero }

// IDEResult is the read-only outcome of an IDE solve.
type IDEResult[F, V comparable] struct {
	zero       F
	values     map[nodeFact[F]]V
	nodeFacts  map[string]*factSet[F]
	nodes      []string
	pathValues map[pathKey[F]]*valueMap[F, V]
	stats      Statistics
}

// Value returns the value of fact at node, merged over all contexts.
func (r *IDEResult[F, V]) Value(node string, fact F) (V, bool) {
	v, ok := r.values[nodeFact[F]{node: node, fact: fact}]
	return v, ok
}

// ValueInContext returns the value of fact at node under one source fact.
func (r *IDEResult[F, V]) ValueInContext(source F, node string, fact F) (V, bool) {
	return r.pathValues[pathKey[F]{source: source, node: node}].get(fact)
}

// FactsAt returns the facts with a value at node.
func (r *IDEResult[F, V]) FactsAt(node string) []F {
	return r.nodeFacts[node].items()
}

// NodesWithFact returns the nodes where fact has a value, in the order they
// were first reached.
func (r *IDEResult[F, V]) NodesWithFact(fact F) []string {
	var out []string
	for _, n := range r.nodes {
		if r.nodeFacts[n].has(fact) {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every node with at least one value.
func (r *IDEResult[F, V]) Nodes() []string {
	out := make([]string, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// ForEach calls fn for every (node, fact, value) entry, nodes in the order
// they were first reached.
func (r *IDEResult[F, V]) ForEach(fn func(node string, fact F, value V)) {
	for _, n := range r.nodes {
		for _, f := range r.nodeFacts[n].order {
			fn(n, f, r.values[nodeFact[F]{node: n, fact: f}])
		}
	}
}

// NumValues returns the number of (node, fact) entries with a value.
func (r *IDEResult[F, V]) NumValues() int { return len(r.values) }

// Statistics returns the counters collected during the solve.
func (r *IDEResult[F, V]) Statistics() Statistics { return r.stats }

// ZeroFact returns the zero fact of the solved problem.
func (r *IDEResult[F, V]) ZeroFact() F { return r.zero }
