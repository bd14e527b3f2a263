package dataflow

import (
	"container/list"
	"time"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

// pathEdge states that fact holds at node when source held at the entry of
// node's procedure.
type pathEdge[F comparable] struct {
	source F
	node   string
	fact   F
}

// IFDSSolver computes fact reachability with the tabulation algorithm. A
// solver is used once: Solve returns the same Result on every later call.
type IFDSSolver[F comparable] struct {
	problem IFDSProblem[F]
	graph   *icfg.Graph
	logger  log.Logger
	zero    F

	// pathEdges holds, per (source, node), the facts proven at node.
	pathEdges map[pathKey[F]]*factSet[F]
	// sources indexes the source facts with path edges at each node, so
	// the return step only visits path edges of the call site.
	sources map[string]*factSet[F]
	nodes   []string

	summaries    map[summaryKey[F]]*factSet[F]
	summaryIndex map[callKey[F]][]string
	// scanned marks the (call site, fact) pairs whose summaries are
	// complete up to the exit facts found so far.
	scanned map[callKey[F]]bool

	callFlows *callFlowMemo[F]
	callees   *calleeIndex
	worklist  *list.List
	limits    Limits
	stats     Statistics
	result    *IFDSResult[F]
}

// NewIFDSSolver creates a solver for problem over graph. All tables start
// empty.
func NewIFDSSolver[F comparable](problem IFDSProblem[F], graph *icfg.Graph) *IFDSSolver[F] {
	if graph == nil {
		graph = icfg.New()
	}
	return &IFDSSolver[F]{
		problem:      problem,
		graph:        graph,
		logger:       log.Default(),
		zero:         problem.ZeroFact(),
		pathEdges:    make(map[pathKey[F]]*factSet[F]),
		sources:      make(map[string]*factSet[F]),
		summaries:    make(map[summaryKey[F]]*factSet[F]),
		summaryIndex: make(map[callKey[F]][]string),
		scanned:      make(map[callKey[F]]bool),
		callFlows:    newCallFlowMemo[F](problem),
		callees:      newCalleeIndex(graph),
		worklist:     list.New(),
	}
}

// WithLogger sets the logger used to report progress and truncation.
func (s *IFDSSolver[F]) WithLogger(l log.Logger) *IFDSSolver[F] {
	if l != nil {
		s.logger = l
	}
	return s
}

// Solve runs the tabulation to its fixed point.
func (s *IFDSSolver[F]) Solve() *IFDSResult[F] {
	return s.SolveWithLimits(Limits{})
}

// SolveWithLimits runs the tabulation until the fixed point or until a
// limit is hit, whichever comes first. A truncated result is flagged in its
// Statistics.
func (s *IFDSSolver[F]) SolveWithLimits(limits Limits) *IFDSResult[F] {
	if s.result != nil {
		return s.result
	}
	s.limits = limits
	start := time.Now()

	seeds := s.problem.InitialSeeds()
	s.logger.Debug("ifds solve started", "nodes", s.graph.NumNodes(), "edges", s.graph.NumEdges(), "seeds", len(seeds))

	for _, seed := range seeds {
		s.propagate(s.zero, seed.Node, seed.Fact)
	}

	for s.worklist.Len() > 0 && !s.stats.Truncated {
		if s.limits.MaxIterations > 0 && s.stats.Iterations >= s.limits.MaxIterations {
			s.truncate(ReasonMaxIterations)
			break
		}
		pe := s.worklist.Remove(s.worklist.Front()).(pathEdge[F])
		s.stats.Iterations++
		s.process(pe)
	}

	s.stats.Duration = time.Since(start)
	s.logger.Debug("ifds solve finished", "stats", s.stats.String())

	s.result = &IFDSResult[F]{
		zero:         s.zero,
		pathEdges:    s.pathEdges,
		sources:      s.sources,
		nodes:        s.nodes,
		summaries:    s.summaries,
		summaryIndex: s.summaryIndex,
		stats:        s.stats,
	}
	s.worklist.Init()
	return s.result
}

func (s *IFDSSolver[F]) truncate(reason string) {
	if s.stats.Truncated {
		return
	}
	s.stats.Truncated = true
	s.stats.TruncationReason = reason
	s.logger.Warn("ifds solve truncated", "reason", reason,
		"iterations", s.stats.Iterations, "path_edges", s.stats.PathEdges)
}

// propagate records the path edge (source, node, fact) and schedules it if
// it is new.
func (s *IFDSSolver[F]) propagate(source F, node string, fact F) {
	k := pathKey[F]{source: source, node: node}
	set, ok := s.pathEdges[k]
	if ok && set.has(fact) {
		return
	}
	if s.limits.MaxPathEdges > 0 && s.stats.PathEdges >= s.limits.MaxPathEdges {
		s.truncate(ReasonMaxPathEdges)
		return
	}
	if !ok {
		set = newFactSet[F]()
		s.pathEdges[k] = set
	}
	set.add(fact)
	s.stats.PathEdges++

	srcs, ok := s.sources[node]
	if !ok {
		srcs = newFactSet[F]()
		s.sources[node] = srcs
		s.nodes = append(s.nodes, node)
	}
	srcs.add(source)

	s.worklist.PushBack(pathEdge[F]{source: source, node: node, fact: fact})
}

func (s *IFDSSolver[F]) process(pe pathEdge[F]) {
	isCall := false
	for _, e := range s.graph.Successors(pe.node) {
		switch e.Kind {
		case icfg.EdgeNormal:
			for _, d := range s.problem.NormalFlow(pe.node, e.To, pe.fact) {
				s.propagate(pe.source, e.To, d)
			}
		case icfg.EdgeCall:
			isCall = true
			// Each fact entering the callee starts its own context.
			for _, d := range s.callFlows.get(pe.node, e.To, pe.fact).items() {
				s.propagate(d, e.To, d)
			}
		case icfg.EdgeReturn:
			s.processReturn(pe, e)
		case icfg.EdgeCallToReturn:
			for _, d := range s.problem.CallToReturnFlow(pe.node, e.To, pe.fact) {
				s.propagate(pe.source, e.To, d)
			}
		}
	}
	if isCall {
		s.applySummaries(pe)
	}
}

// applySummaries connects a call site to the effects of its callees. The
// first path edge with a given caller-side fact reads the callee exits
// directly and records summary edges; later ones replay those summaries
// instead of consulting the callee again. Exit facts found afterwards reach
// every recorded caller through processReturn.
func (s *IFDSSolver[F]) applySummaries(pe pathEdge[F]) {
	ck := callKey[F]{callSite: pe.node, fact: pe.fact}
	if s.scanned[ck] {
		if len(s.summaryIndex[ck]) > 0 {
			s.stats.SummaryReuses++
		}
		for _, rs := range s.summaryIndex[ck] {
			facts := s.summaries[summaryKey[F]{callSite: pe.node, fact: pe.fact, returnSite: rs}]
			for _, d := range facts.items() {
				s.propagate(pe.source, rs, d)
			}
		}
		return
	}
	s.scanned[ck] = true

	for _, ret := range s.graph.ReturnsTo(pe.node) {
		entries := s.callees.entries(pe.node, ret.Exit)
		for _, ctx := range s.callFlows.contexts(pe.node, entries, pe.fact).order {
			exitFacts := s.pathEdges[pathKey[F]{source: ctx, node: ret.Exit}]
			if exitFacts.len() == 0 {
				continue
			}
			// The callee was already analyzed in this context.
			s.stats.SummaryReuses++
			for _, d5 := range exitFacts.items() {
				for _, d := range s.problem.ReturnFlow(ret.Exit, ret.ReturnSite, pe.node, d5) {
					s.addSummary(pe.node, pe.fact, ret.ReturnSite, d)
					s.propagate(pe.source, ret.ReturnSite, d)
				}
			}
		}
	}
}

// processReturn maps facts at a callee exit back to the callers whose call
// flow produced the callee context pe.source.
func (s *IFDSSolver[F]) processReturn(pe pathEdge[F], e icfg.Edge) {
	targets := s.problem.ReturnFlow(pe.node, e.To, e.CallSite, pe.fact)
	if len(targets) == 0 {
		return
	}
	for _, c := range s.callers(e.CallSite, pe.node, pe.source) {
		for _, d := range targets {
			s.addSummary(e.CallSite, c.fact, e.To, d)
			s.propagate(c.source, e.To, d)
		}
	}
}

// callers returns the path edges at callSite whose call flow yields
// entryFact at the entry of the callee owning exit.
func (s *IFDSSolver[F]) callers(callSite, exit string, entryFact F) []caller[F] {
	entries := s.callees.entries(callSite, exit)
	if len(entries) == 0 {
		return nil
	}
	var out []caller[F]
	for _, src := range s.sources[callSite].items() {
		for _, d := range s.pathEdges[pathKey[F]{source: src, node: callSite}].items() {
			if s.callFlows.reaches(callSite, entries, d, entryFact) {
				out = append(out, caller[F]{source: src, fact: d})
			}
		}
	}
	return out
}

func (s *IFDSSolver[F]) addSummary(callSite string, fact F, returnSite string, target F) {
	k := summaryKey[F]{callSite: callSite, fact: fact, returnSite: returnSite}
	set, ok := s.summaries[k]
	if !ok {
		set = newFactSet[F]()
		s.summaries[k] = set
		ck := callKey[F]{callSite: callSite, fact: fact}
		s.summaryIndex[ck] = append(s.summaryIndex[ck], returnSite)
	}
	if set.add(target) {
		s.stats.SummaryEdges++
	}
}
