package dataflow

import "github.com/l3aro/go-dataflow/pkg/icfg"

// factSet is a set of facts that remembers insertion order, so results and
// iteration over the tables are deterministic.
type factSet[F comparable] struct {
	index map[F]struct{}
	order []F
}

func newFactSet[F comparable]() *factSet[F] {
	return &factSet[F]{index: make(map[F]struct{})}
}

// add inserts f and reports whether it was new.
func (s *factSet[F]) add(f F) bool {
	if _, ok := s.index[f]; ok {
		return false
	}
	s.index[f] = struct{}{}
	s.order = append(s.order, f)
	return true
}

func (s *factSet[F]) has(f F) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[f]
	return ok
}

func (s *factSet[F]) len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// items returns a copy of the facts, safe to hold while the set grows.
func (s *factSet[F]) items() []F {
	if s == nil {
		return nil
	}
	out := make([]F, len(s.order))
	copy(out, s.order)
	return out
}

// pathKey addresses the facts holding at node under one source fact.
type pathKey[F comparable] struct {
	source F
	node   string
}

// summaryKey addresses the facts a call returns for a caller-side fact.
type summaryKey[F comparable] struct {
	callSite   string
	fact       F
	returnSite string
}

// callKey groups summaries by (call site, caller-side fact).
type callKey[F comparable] struct {
	callSite string
	fact     F
}

type callFlowKey[F comparable] struct {
	callSite    string
	calleeEntry string
	fact        F
}

// caller is a path edge at a call site whose call flow starts a callee frame.
type caller[F comparable] struct {
	source F
	fact   F
}

// calleeIndex narrows the callee entries of a call site to the ones whose
// procedure owns a given exit. An indirect call has several Call edges, and
// a context started at one callee must not be matched against the exit of
// another.
type calleeIndex struct {
	graph *icfg.Graph
	cache map[[2]string][]string
}

func newCalleeIndex(g *icfg.Graph) *calleeIndex {
	return &calleeIndex{graph: g, cache: make(map[[2]string][]string)}
}

// entries returns the callee entries of callSite that reach exit. When no
// entry reaches it locally, every callee entry is returned.
func (x *calleeIndex) entries(callSite, exit string) []string {
	k := [2]string{callSite, exit}
	if out, ok := x.cache[k]; ok {
		return out
	}
	all := x.graph.CalleeEntries(callSite)
	var out []string
	for _, entry := range all {
		if x.graph.ReachesLocally(entry, exit) {
			out = append(out, entry)
		}
	}
	if len(out) == 0 {
		out = all
	}
	x.cache[k] = out
	return out
}

// callFlowMemo caches call flow results. The return step replays call flows
// for every path edge at the call site, which would otherwise invoke the
// problem repeatedly with the same arguments.
type callFlowMemo[F comparable] struct {
	flows FlowFunctions[F]
	cache map[callFlowKey[F]]*factSet[F]
}

func newCallFlowMemo[F comparable](flows FlowFunctions[F]) *callFlowMemo[F] {
	return &callFlowMemo[F]{flows: flows, cache: make(map[callFlowKey[F]]*factSet[F])}
}

func (m *callFlowMemo[F]) get(callSite, calleeEntry string, fact F) *factSet[F] {
	k := callFlowKey[F]{callSite: callSite, calleeEntry: calleeEntry, fact: fact}
	if s, ok := m.cache[k]; ok {
		return s
	}
	s := newFactSet[F]()
	for _, f := range m.flows.CallFlow(callSite, calleeEntry, fact) {
		s.add(f)
	}
	m.cache[k] = s
	return s
}

// contexts returns the callee contexts started by calling from callSite with
// fact, over the given callee entries.
func (m *callFlowMemo[F]) contexts(callSite string, calleeEntries []string, fact F) *factSet[F] {
	out := newFactSet[F]()
	for _, entry := range calleeEntries {
		for _, d := range m.get(callSite, entry, fact).order {
			out.add(d)
		}
	}
	return out
}

// reaches reports whether calling from callSite with fact starts a callee
// frame whose entry fact is entryFact.
func (m *callFlowMemo[F]) reaches(callSite string, calleeEntries []string, fact, entryFact F) bool {
	for _, entry := range calleeEntries {
		if m.get(callSite, entry, fact).has(entryFact) {
			return true
		}
	}
	return false
}
