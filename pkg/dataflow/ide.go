package dataflow

import (
	"container/list"
	"time"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

// maxVerifySamples bounds the values kept for Config.VerifyMeet.
const maxVerifySamples = 16

type nodeFact[F comparable] struct {
	node string
	fact F
}

// valueMap maps facts to values, remembering insertion order.
type valueMap[F, V comparable] struct {
	facts  *factSet[F]
	values map[F]V
}

func newValueMap[F, V comparable]() *valueMap[F, V] {
	return &valueMap[F, V]{facts: newFactSet[F](), values: make(map[F]V)}
}

func (m *valueMap[F, V]) get(f F) (V, bool) {
	if m == nil {
		var zero V
		return zero, false
	}
	v, ok := m.values[f]
	return v, ok
}

func (m *valueMap[F, V]) set(f F, v V) {
	m.facts.add(f)
	m.values[f] = v
}

// microKey identifies one (source fact, target fact) pair of one edge. The
// graph is a multigraph, so the edge kind is part of the key. callSite is
// only set for Return edges.
type microKey[F comparable] struct {
	kind     icfg.EdgeKind
	from, to string
	callSite string
	source   F
	target   F
}

// microEntry memoizes an edge function and its results per input value.
type microEntry[V comparable] struct {
	fn      EdgeFunction[V]
	results map[V]V
}

// jumpKey identifies a procedure's value contribution: the value target
// takes at returnSite when fact held at callSite.
type jumpKey[F comparable] struct {
	callSite   string
	fact       F
	returnSite string
	target     F
}

type jumpTarget[F comparable] struct {
	returnSite string
	target     F
}

// IDESolver propagates lattice values along the facts of an IDE problem. A
// solver is used once: Solve returns the same Result on every later call.
type IDESolver[F, V comparable] struct {
	problem IDEProblem[F, V]
	graph   *icfg.Graph
	lattice Lattice[V]
	logger  log.Logger
	zero    F

	// pathValues holds the value of each path edge (source, node, fact).
	pathValues map[pathKey[F]]*valueMap[F, V]
	sources    map[string]*factSet[F]

	// values is the value table, merged over contexts.
	values    map[nodeFact[F]]V
	nodeFacts map[string]*factSet[F]
	nodes     []string

	micro     map[microKey[F]]*microEntry[V]
	jumps     map[jumpKey[F]]V
	jumpIndex map[callKey[F]][]jumpTarget[F]
	// scanned marks the (call site, fact) pairs whose jump functions cover
	// every exit value found so far.
	scanned map[callKey[F]]bool

	callFlows *callFlowMemo[F]
	callees   *calleeIndex
	worklist  *list.List
	pending   map[pathEdge[F]]bool
	samples   *factSet[V]
	config    Config
	stats     Statistics
	result    *IDEResult[F, V]
}

// NewIDESolver creates a solver for problem over graph. All tables and
// caches start empty.
func NewIDESolver[F, V comparable](problem IDEProblem[F, V], graph *icfg.Graph) *IDESolver[F, V] {
	if graph == nil {
		graph = icfg.New()
	}
	return &IDESolver[F, V]{
		problem:    problem,
		graph:      graph,
		lattice:    problem.Lattice(),
		logger:     log.Default(),
		zero:       problem.ZeroFact(),
		pathValues: make(map[pathKey[F]]*valueMap[F, V]),
		sources:    make(map[string]*factSet[F]),
		values:     make(map[nodeFact[F]]V),
		nodeFacts:  make(map[string]*factSet[F]),
		micro:      make(map[microKey[F]]*microEntry[V]),
		jumps:      make(map[jumpKey[F]]V),
		jumpIndex:  make(map[callKey[F]][]jumpTarget[F]),
		scanned:    make(map[callKey[F]]bool),
		callFlows:  newCallFlowMemo[F](problem),
		callees:    newCalleeIndex(graph),
		worklist:   list.New(),
		pending:    make(map[pathEdge[F]]bool),
		samples:    newFactSet[V](),
	}
}

// WithLogger sets the logger used to report progress and truncation.
func (s *IDESolver[F, V]) WithLogger(l log.Logger) *IDESolver[F, V] {
	if l != nil {
		s.logger = l
	}
	return s
}

// Solve propagates values to the fixed point.
func (s *IDESolver[F, V]) Solve() *IDEResult[F, V] {
	return s.SolveWithConfig(Config{})
}

// SolveWithLimits is SolveWithConfig with only limits set.
func (s *IDESolver[F, V]) SolveWithLimits(limits Limits) *IDEResult[F, V] {
	return s.SolveWithConfig(Config{Limits: limits})
}

// SolveWithConfig runs the same algorithm as Solve, stopping early when a
// limit of config is reached. The partial result is flagged in its
// Statistics.
func (s *IDESolver[F, V]) SolveWithConfig(config Config) *IDEResult[F, V] {
	if s.result != nil {
		return s.result
	}
	s.config = config
	start := time.Now()

	seeds := s.problem.InitialValueSeeds()
	s.logger.Debug("ide solve started", "nodes", s.graph.NumNodes(), "edges", s.graph.NumEdges(), "seeds", len(seeds))

	for _, seed := range seeds {
		s.propagate(s.zero, seed.Node, seed.Fact, seed.Value)
	}

	for s.worklist.Len() > 0 && !s.stats.Truncated {
		if config.MaxIterations > 0 && s.stats.Iterations >= config.MaxIterations {
			s.truncate(ReasonMaxIterations)
			break
		}
		item := s.worklist.Remove(s.worklist.Front()).(pathEdge[F])
		delete(s.pending, item)
		s.stats.Iterations++
		s.process(item)
	}

	if config.VerifyMeet {
		if err := CheckMeetLaws(s.lattice, s.samples.order...); err != nil {
			s.logger.Error("lattice violates meet laws", "error", err)
		}
	}

	s.stats.Values = len(s.values)
	s.stats.JumpFunctions = len(s.jumps)
	s.stats.Duration = time.Since(start)
	s.logger.Debug("ide solve finished", "stats", s.stats.String())

	s.result = &IDEResult[F, V]{
		zero:       s.zero,
		values:     s.values,
		nodeFacts:  s.nodeFacts,
		nodes:      s.nodes,
		pathValues: s.pathValues,
		stats:      s.stats,
	}
	s.worklist.Init()
	return s.result
}

func (s *IDESolver[F, V]) truncate(reason string) {
	if s.stats.Truncated {
		return
	}
	s.stats.Truncated = true
	s.stats.TruncationReason = reason
	s.logger.Warn("ide solve truncated", "reason", reason,
		"iterations", s.stats.Iterations, "path_edges", s.stats.PathEdges)
}

// propagate meets value into the path edge (source, node, fact) and
// schedules the edge when its value changed.
func (s *IDESolver[F, V]) propagate(source F, node string, fact F, value V) {
	k := pathKey[F]{source: source, node: node}
	vm, ok := s.pathValues[k]
	old, exists := vm.get(fact)

	combined := value
	if exists {
		combined = s.lattice.Meet(old, value)
		if combined == old {
			return
		}
	} else {
		if s.config.MaxPathEdges > 0 && s.stats.PathEdges >= s.config.MaxPathEdges {
			s.truncate(ReasonMaxPathEdges)
			return
		}
		if !ok {
			vm = newValueMap[F, V]()
			s.pathValues[k] = vm
		}
		s.stats.PathEdges++
		srcs, ok := s.sources[node]
		if !ok {
			srcs = newFactSet[F]()
			s.sources[node] = srcs
		}
		srcs.add(source)
	}
	vm.set(fact, combined)
	s.record(node, fact, combined)

	pe := pathEdge[F]{source: source, node: node, fact: fact}
	if !s.pending[pe] {
		s.pending[pe] = true
		s.worklist.PushBack(pe)
	}
}

// record meets value into the context-merged value table.
func (s *IDESolver[F, V]) record(node string, fact F, value V) {
	if s.config.VerifyMeet && s.samples.len() < maxVerifySamples {
		s.samples.add(value)
	}
	nf := nodeFact[F]{node: node, fact: fact}
	cur, ok := s.values[nf]
	if !ok {
		s.values[nf] = value
		facts, ok := s.nodeFacts[node]
		if !ok {
			facts = newFactSet[F]()
			s.nodeFacts[node] = facts
			s.nodes = append(s.nodes, node)
		}
		facts.add(fact)
		return
	}
	s.values[nf] = s.lattice.Meet(cur, value)
}

func (s *IDESolver[F, V]) process(pe pathEdge[F]) {
	// The stored value may have grown since pe was scheduled.
	value, _ := s.pathValues[pathKey[F]{source: pe.source, node: pe.node}].get(pe.fact)

	isCall := false
	for _, e := range s.graph.Successors(pe.node) {
		switch e.Kind {
		case icfg.EdgeNormal:
			for _, d := range s.problem.NormalFlow(pe.node, e.To, pe.fact) {
				k := microKey[F]{kind: icfg.EdgeNormal, from: pe.node, to: e.To, source: pe.fact, target: d}
				v := s.apply(k, value, func() EdgeFunction[V] {
					return s.problem.NormalEdgeFunction(pe.node, e.To, pe.fact, d)
				})
				s.propagate(pe.source, e.To, d, v)
			}
		case icfg.EdgeCall:
			isCall = true
			for _, d := range s.callFlows.get(pe.node, e.To, pe.fact).items() {
				k := microKey[F]{kind: icfg.EdgeCall, from: pe.node, to: e.To, source: pe.fact, target: d}
				v := s.apply(k, value, func() EdgeFunction[V] {
					return s.problem.CallEdgeFunction(pe.node, e.To, pe.fact, d)
				})
				s.propagate(d, e.To, d, v)
			}
		case icfg.EdgeReturn:
			s.processReturn(pe, e, value)
		case icfg.EdgeCallToReturn:
			for _, d := range s.problem.CallToReturnFlow(pe.node, e.To, pe.fact) {
				k := microKey[F]{kind: icfg.EdgeCallToReturn, from: pe.node, to: e.To, source: pe.fact, target: d}
				v := s.apply(k, value, func() EdgeFunction[V] {
					return s.problem.CallToReturnEdgeFunction(pe.node, e.To, pe.fact, d)
				})
				s.propagate(pe.source, e.To, d, v)
			}
		}
	}
	if isCall {
		s.applyJumpFunctions(pe)
	}
}

// apply evaluates the edge function for k on value, building the function
// with factory and evaluating it only on cache misses.
func (s *IDESolver[F, V]) apply(k microKey[F], value V, factory func() EdgeFunction[V]) V {
	entry, ok := s.micro[k]
	if !ok {
		fn := factory()
		if fn == nil {
			fn = Identity[V]{}
		}
		entry = &microEntry[V]{fn: fn, results: make(map[V]V)}
		s.micro[k] = entry
	}
	if out, ok := entry.results[value]; ok {
		s.stats.MicroCacheHits++
		return out
	}
	s.stats.MicroCacheMisses++
	out := entry.fn.Apply(value)
	entry.results[value] = out
	return out
}

// applyJumpFunctions connects a call site to the value contributions of its
// callees. The first path edge with a given caller-side fact evaluates the
// callee exits and fills the jump function cache; later ones replay the
// cached values.
func (s *IDESolver[F, V]) applyJumpFunctions(pe pathEdge[F]) {
	ck := callKey[F]{callSite: pe.node, fact: pe.fact}
	if s.scanned[ck] {
		targets := s.jumpIndex[ck]
		if len(targets) > 0 {
			s.stats.SummaryReuses++
		}
		for _, t := range targets {
			s.stats.JumpCacheHits++
			v := s.jumps[jumpKey[F]{callSite: pe.node, fact: pe.fact, returnSite: t.returnSite, target: t.target}]
			s.propagate(pe.source, t.returnSite, t.target, v)
		}
		return
	}
	s.scanned[ck] = true

	for _, re := range s.graph.ReturnsTo(pe.node) {
		entries := s.callees.entries(pe.node, re.Exit)
		for _, ctx := range s.callFlows.contexts(pe.node, entries, pe.fact).order {
			exitValues := s.pathValues[pathKey[F]{source: ctx, node: re.Exit}]
			if exitValues == nil {
				continue
			}
			// The callee was already analyzed in this context.
			s.stats.SummaryReuses++
			for _, d5 := range exitValues.facts.items() {
				v5, _ := exitValues.get(d5)
				for _, d := range s.problem.ReturnFlow(re.Exit, re.ReturnSite, pe.node, d5) {
					v := s.returnValue(re.Exit, re.ReturnSite, pe.node, d5, d, v5)
					k := jumpKey[F]{callSite: pe.node, fact: pe.fact, returnSite: re.ReturnSite, target: d}
					s.recordJump(k, v)
					s.propagate(pe.source, re.ReturnSite, d, s.jumps[k])
				}
			}
		}
	}
}

// processReturn maps the value of an exit fact back to the callers whose
// call flow produced the callee context pe.source.
func (s *IDESolver[F, V]) processReturn(pe pathEdge[F], e icfg.Edge, value V) {
	targets := s.problem.ReturnFlow(pe.node, e.To, e.CallSite, pe.fact)
	if len(targets) == 0 {
		return
	}
	callers := s.callers(e.CallSite, pe.node, pe.source)
	if len(callers) == 0 {
		return
	}
	for _, d := range targets {
		v := s.returnValue(pe.node, e.To, e.CallSite, pe.fact, d, value)

		// Callers sharing a caller-side fact share one jump function; it
		// is updated once, then fanned out to their contexts.
		changed := make(map[F]bool)
		for _, c := range callers {
			k := jumpKey[F]{callSite: e.CallSite, fact: c.fact, returnSite: e.To, target: d}
			updated, seen := changed[c.fact]
			if !seen {
				updated = s.recordJump(k, v)
				changed[c.fact] = updated
			}
			if updated {
				s.propagate(c.source, e.To, d, s.jumps[k])
			}
		}
	}
}

// returnValue applies the return edge function of (exit, returnSite) to the
// exit value through the micro-function cache.
func (s *IDESolver[F, V]) returnValue(exit, returnSite, callSite string, source, target F, value V) V {
	k := microKey[F]{kind: icfg.EdgeReturn, from: exit, to: returnSite, callSite: callSite, source: source, target: target}
	return s.apply(k, value, func() EdgeFunction[V] {
		return s.problem.ReturnEdgeFunction(exit, returnSite, callSite, source, target)
	})
}

// recordJump meets value into the jump function cache and reports whether
// the cached contribution changed.
func (s *IDESolver[F, V]) recordJump(k jumpKey[F], value V) bool {
	old, ok := s.jumps[k]
	if !ok {
		s.stats.JumpCacheMisses++
		s.jumps[k] = value
		ck := callKey[F]{callSite: k.callSite, fact: k.fact}
		s.jumpIndex[ck] = append(s.jumpIndex[ck], jumpTarget[F]{returnSite: k.returnSite, target: k.target})
		s.stats.SummaryEdges++
		return true
	}
	combined := s.lattice.Meet(old, value)
	if combined == old {
		s.stats.JumpCacheHits++
		return false
	}
	s.stats.JumpCacheMisses++
	s.jumps[k] = combined
	return true
}

// callers returns the path edges at callSite whose call flow yields
// entryFact at the entry of the callee owning exit.
func (s *IDESolver[F, V]) callers(callSite, exit string, entryFact F) []caller[F] {
	entries := s.callees.entries(callSite, exit)
	if len(entries) == 0 {
		return nil
	}
	var out []caller[F]
	for _, src := range s.sources[callSite].items() {
		for _, d := range s.pathValues[pathKey[F]{source: src, node: callSite}].facts.items() {
			if s.callFlows.reaches(callSite, entries, d, entryFact) {
				out = append(out, caller[F]{source: src, fact: d})
			}
		}
	}
	return out
}
