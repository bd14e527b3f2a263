package dataflow_test

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dataflow/lattice"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

func solveIDE(p *testProblem, g *icfg.Graph) *dataflow.IDEResult[string, int64] {
	return dataflow.NewIDESolver[string, int64](p, g).WithLogger(quiet()).Solve()
}

func valueSeed(node, fact string, v int64) dataflow.ValueSeed[string, int64] {
	return dataflow.ValueSeed[string, int64]{Node: node, Fact: fact, Value: v}
}

// edgeConstants returns an edge function factory assigning a constant on
// the listed edges and passing values through elsewhere.
func edgeConstants(consts map[[2]string]int64) func(from, to, source, target string) dataflow.EdgeFunction[int64] {
	return func(from, to, _, _ string) dataflow.EdgeFunction[int64] {
		if v, ok := consts[[2]string{from, to}]; ok {
			return dataflow.Constant[int64]{Value: v}
		}
		return dataflow.Identity[int64]{}
	}
}

func TestIDESolver_EmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		graph *icfg.Graph
	}{
		{name: "nil graph", graph: nil},
		{name: "empty graph", graph: icfg.New()},
		{name: "graph without seeds", graph: diamondGraph()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res *dataflow.IDEResult[string, int64]
			require.NotPanics(t, func() {
				res = solveIDE(&testProblem{}, tt.graph)
			})

			assert.Zero(t, res.NumValues())
			assert.Empty(t, res.Nodes())
			assert.Empty(t, res.FactsAt("entry"))
			_, ok := res.Value("entry", "x")
			assert.False(t, ok)
			assert.Zero(t, res.Statistics().Iterations)
		})
	}
}

func TestIDESolver_DiamondMeet(t *testing.T) {
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("entry", "x", math.MinInt64)},
		normalEF: edgeConstants(map[[2]string]int64{
			{"entry", "left"}:  8,
			{"entry", "right"}: 3,
		}),
	}
	res := solveIDE(p, diamondGraph())

	tests := []struct {
		node string
		want int64
	}{
		{node: "entry", want: math.MinInt64},
		{node: "left", want: 8},
		{node: "right", want: 3},
		{node: "merge", want: 8},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			got, ok := res.Value(tt.node, "x")
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, 4, res.NumValues())
	assert.Equal(t, []string{"entry", "left", "right", "merge"}, res.NodesWithFact("x"))
}

func TestIDESolver_Interprocedural(t *testing.T) {
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{
			valueSeed("main_entry", "local", 5),
			valueSeed("main_entry", "arg", 1),
		},
		call: func(_, _, fact string) []string { return except("local")(fact) },
		c2r:  func(_, _, fact string) []string { return except("arg")(fact) },
		normalEF: func(from, to, _, _ string) dataflow.EdgeFunction[int64] {
			if from == "callee_entry" {
				return lattice.MaxAdd(10)
			}
			return dataflow.Identity[int64]{}
		},
	}
	res := solveIDE(p, interproceduralGraph())

	tests := []struct {
		node string
		fact string
		want int64
		ok   bool
	}{
		{node: "callee_entry", fact: "arg", want: 1, ok: true},
		{node: "callee_exit", fact: "arg", want: 11, ok: true},
		{node: "return_site", fact: "arg", want: 11, ok: true},
		{node: "return_site", fact: "local", want: 5, ok: true},
		{node: "main_exit", fact: "local", want: 5, ok: true},
		{node: "callee_entry", fact: "local"},
	}
	for _, tt := range tests {
		t.Run(tt.node+"/"+tt.fact, func(t *testing.T) {
			got, ok := res.Value(tt.node, tt.fact)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	v, ok := res.ValueInContext("arg", "callee_exit", "arg")
	assert.True(t, ok)
	assert.Equal(t, int64(11), v)
	v, ok = res.ValueInContext(zero, "return_site", "arg")
	assert.True(t, ok)
	assert.Equal(t, int64(11), v)

	assert.Equal(t, []string{"arg"}, res.FactsAt("callee_entry"))
	assert.Equal(t, 1, res.Statistics().JumpFunctions)
}

func TestIDESolver_MicroFunctionCache(t *testing.T) {
	// One call starts two callee contexts, p and q, that both map to fact t
	// with the same value. The edges inside the callee see identical
	// inputs twice.
	g := icfg.New()
	g.AddEntry("main_entry")
	g.AddEntry("f_entry")
	g.AddExit("f_exit")
	g.AddEdge("main_entry", icfg.Normal("cs"))
	g.AddEdge("cs", icfg.Call("f_entry"))
	g.AddEdge("cs", icfg.CallToReturn("rs"))
	g.AddEdge("f_entry", icfg.Normal("f_body"))
	g.AddEdge("f_body", icfg.Normal("f_exit"))
	g.AddEdge("f_exit", icfg.Return("rs", "cs"))

	built := make(map[string]int)
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("main_entry", "x", 1)},
		call:   func(_, _, _ string) []string { return []string{"p", "q"} },
		c2r:    func(_, _, _ string) []string { return nil },
		normal: func(from, _, fact string) []string {
			if from == "f_entry" {
				return []string{"t"}
			}
			return []string{fact}
		},
		normalEF: func(from, to, source, target string) dataflow.EdgeFunction[int64] {
			built[fmt.Sprintf("%s->%s:%s->%s", from, to, source, target)]++
			if from == "f_entry" {
				return dataflow.Constant[int64]{Value: 7}
			}
			return dataflow.Identity[int64]{}
		},
	}
	res := solveIDE(p, g)

	for key, n := range built {
		assert.Equal(t, 1, n, "edge function %s built more than once", key)
	}
	for _, ctx := range []string{"p", "q"} {
		v, ok := res.ValueInContext(ctx, "f_exit", "t")
		assert.True(t, ok, "context %s", ctx)
		assert.Equal(t, int64(7), v, "context %s", ctx)
	}
	v, ok := res.Value("rs", "t")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	stats := res.Statistics()
	assert.GreaterOrEqual(t, stats.MicroCacheHits, 1)
	assert.GreaterOrEqual(t, stats.JumpCacheHits, 1, "second context reproduces the cached jump value")
	assert.Equal(t, 1, stats.JumpFunctions)
}

func TestIDESolver_ParallelEdgesKeepTheirFunctions(t *testing.T) {
	// a reaches b over a Normal and a CallToReturn edge, each with its own
	// edge function.
	g := icfg.New()
	g.AddEntry("a")
	g.AddEdge("a", icfg.Normal("b"))
	g.AddEdge("a", icfg.CallToReturn("b"))

	p := &testProblem{
		vseeds:   []dataflow.ValueSeed[string, int64]{valueSeed("a", "x", 0)},
		normalEF: edgeConstants(map[[2]string]int64{{"a", "b"}: 5}),
		c2rEF: func(_, _, _, _ string) dataflow.EdgeFunction[int64] {
			return dataflow.Constant[int64]{Value: 100}
		},
	}
	res := solveIDE(p, g)

	v, ok := res.Value("b", "x")
	require.True(t, ok)
	assert.Equal(t, int64(100), v, "meet of both edges")
	assert.Equal(t, 2, res.Statistics().MicroCacheMisses)
}

func TestIDESolver_IndirectCallKeepsCalleesApart(t *testing.T) {
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{
			valueSeed("main_entry", "x", 1),
			valueSeed("main_entry", "y", 2),
		},
	}
	indirectCallFlows(p)
	res := solveIDE(p, indirectCallGraph())

	_, ok := res.Value("rs1", "fromB")
	assert.False(t, ok, "b is never entered with p from cs1")
	v, ok := res.Value("rs2", "fromB")
	require.True(t, ok)
	assert.Equal(t, int64(2), v)
	v, ok = res.Value("rs1", "p")
	require.True(t, ok)
	assert.Equal(t, int64(1), v)
}

func TestIDESolver_JumpFunctionReuse(t *testing.T) {
	built := 0
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("main_entry", "a", 1)},
		c2r:    func(_, _, fact string) []string { return except("a")(fact) },
		normalEF: func(from, to, _, _ string) dataflow.EdgeFunction[int64] {
			if from == "f_entry" {
				built++
				return dataflow.Constant[int64]{Value: 42}
			}
			return dataflow.Identity[int64]{}
		},
	}
	res := solveIDE(p, twoCallGraph())

	for _, n := range []string{"rs1", "cs2", "rs2", "main_exit"} {
		v, ok := res.Value(n, "a")
		assert.True(t, ok, "a should have a value at %s", n)
		assert.Equal(t, int64(42), v, "value at %s", n)
	}
	assert.Equal(t, 1, built)

	stats := res.Statistics()
	assert.Equal(t, 2, stats.JumpFunctions)
	assert.GreaterOrEqual(t, stats.SummaryReuses, 1)
	assert.False(t, stats.Truncated)
}

func TestIDESolver_Recursion(t *testing.T) {
	p := &testProblem{
		vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("main_entry", "x", 1)},
		c2r:    func(_, _, fact string) []string { return except("x")(fact) },
		normalEF: edgeConstants(map[[2]string]int64{
			{"f_rs", "f_exit"}: 9,
		}),
	}
	res := solveIDE(p, recursiveGraph())

	tests := []struct {
		node string
		want int64
	}{
		{node: "f_entry", want: 1},
		{node: "f_cs", want: 1},
		{node: "f_rs", want: 9},
		{node: "f_exit", want: 9},
		{node: "rs", want: 9},
	}
	for _, tt := range tests {
		got, ok := res.Value(tt.node, "x")
		assert.True(t, ok, "x should have a value at %s", tt.node)
		assert.Equal(t, tt.want, got, "value at %s", tt.node)
	}
	assert.False(t, res.Statistics().Truncated)
}

func TestIDESolver_LoopConverges(t *testing.T) {
	p := &testProblem{
		vseeds:   []dataflow.ValueSeed[string, int64]{valueSeed("head", "x", 1)},
		normalEF: edgeConstants(map[[2]string]int64{{"latch", "head"}: 3}),
	}
	res := solveIDE(p, loopGraph())

	for _, n := range []string{"head", "body", "latch", "out"} {
		v, ok := res.Value(n, "x")
		assert.True(t, ok)
		assert.Equal(t, int64(3), v, "value at %s", n)
	}
	assert.False(t, res.Statistics().Truncated)
}

func TestIDESolver_SolveWithConfig(t *testing.T) {
	// Incrementing around the loop never reaches a fixed point in practice.
	diverging := func() *testProblem {
		return &testProblem{
			vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("head", "x", 0)},
			normalEF: func(from, to, _, _ string) dataflow.EdgeFunction[int64] {
				if from == "latch" && to == "head" {
					return lattice.MaxAdd(1)
				}
				return dataflow.Identity[int64]{}
			},
		}
	}

	tests := []struct {
		name       string
		config     dataflow.Config
		wantReason string
		check      func(t *testing.T, s dataflow.Statistics)
	}{
		{
			name:       "max iterations",
			config:     dataflow.Config{Limits: dataflow.Limits{MaxIterations: 100}},
			wantReason: dataflow.ReasonMaxIterations,
			check: func(t *testing.T, s dataflow.Statistics) {
				assert.Equal(t, 100, s.Iterations)
			},
		},
		{
			name:       "max path edges",
			config:     dataflow.Config{Limits: dataflow.Limits{MaxPathEdges: 2}},
			wantReason: dataflow.ReasonMaxPathEdges,
			check: func(t *testing.T, s dataflow.Statistics) {
				assert.LessOrEqual(t, s.PathEdges, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res *dataflow.IDEResult[string, int64]
			require.NotPanics(t, func() {
				res = dataflow.NewIDESolver[string, int64](diverging(), loopGraph()).
					WithLogger(quiet()).
					SolveWithConfig(tt.config)
			})

			stats := res.Statistics()
			assert.True(t, stats.Truncated)
			assert.Equal(t, tt.wantReason, stats.TruncationReason)
			tt.check(t, stats)

			v, ok := res.Value("head", "x")
			assert.True(t, ok)
			assert.GreaterOrEqual(t, v, int64(0))
		})
	}
}

func TestIDESolver_ValuesOnlyGrow(t *testing.T) {
	newProblem := func() *testProblem {
		return &testProblem{
			vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("head", "x", 0)},
			normalEF: func(from, to, _, _ string) dataflow.EdgeFunction[int64] {
				if from == "latch" {
					return lattice.MaxAdd(1)
				}
				return dataflow.Identity[int64]{}
			},
		}
	}

	prev := map[string]int64{}
	for limit := 1; limit <= 30; limit++ {
		res := dataflow.NewIDESolver[string, int64](newProblem(), loopGraph()).
			WithLogger(quiet()).
			SolveWithLimits(dataflow.Limits{MaxIterations: limit})

		for node, old := range prev {
			v, ok := res.Value(node, "x")
			require.True(t, ok, "value at %s disappeared at limit %d", node, limit)
			assert.GreaterOrEqual(t, v, old, "value at %s went down at limit %d", node, limit)
		}
		res.ForEach(func(node, _ string, v int64) {
			prev[node] = v
		})
	}
}

func TestIDESolver_VerifyMeet(t *testing.T) {
	tests := []struct {
		name    string
		lat     dataflow.Lattice[int64]
		verify  bool
		wantLog bool
	}{
		{name: "broken lattice checked", lat: sumLattice{}, verify: true, wantLog: true},
		{name: "broken lattice unchecked", lat: sumLattice{}, verify: false},
		{name: "lawful lattice checked", lat: lattice.Max{}, verify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := icfg.New()
			g.AddEdge("a", icfg.Normal("b"))

			var buf bytes.Buffer
			logger := log.New(log.LoggerConfig{Level: log.ErrorLevel, Output: &buf})
			p := &testProblem{
				vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("a", "x", 1)},
				lat:    tt.lat,
			}
			res := dataflow.NewIDESolver[string, int64](p, g).
				WithLogger(logger).
				SolveWithConfig(dataflow.Config{VerifyMeet: tt.verify})

			v, ok := res.Value("b", "x")
			assert.True(t, ok)
			assert.Equal(t, int64(1), v)
			if tt.wantLog {
				assert.Contains(t, buf.String(), "lattice violates meet laws")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestIDESolver_ConstantPropagation(t *testing.T) {
	tests := []struct {
		name  string
		left  dataflow.EdgeFunction[lattice.ConstValue]
		right dataflow.EdgeFunction[lattice.ConstValue]
		want  lattice.ConstValue
	}{
		{
			name:  "same constant",
			left:  lattice.ConstSet(4),
			right: lattice.ConstSet(4),
			want:  lattice.Of(4),
		},
		{
			name:  "conflicting constants",
			left:  lattice.ConstSet(1),
			right: lattice.ConstSet(2),
			want:  lattice.ConstValue{Kind: lattice.Unknown},
		},
		{
			name:  "one branch undefined",
			left:  lattice.ConstSet(6),
			right: lattice.ConstAdd(1),
			want:  lattice.Of(6),
		},
		{
			name:  "arithmetic",
			left:  dataflow.Compose(lattice.ConstSet(3), lattice.ConstMul(2)),
			right: dataflow.Compose(lattice.ConstSet(5), lattice.ConstAdd(1)),
			want:  lattice.Of(6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &constProblem{
				seeds: []dataflow.ValueSeed[string, lattice.ConstValue]{
					{Node: "entry", Fact: "v", Value: lattice.Const{}.Bottom()},
				},
				edges: map[[2]string]dataflow.EdgeFunction[lattice.ConstValue]{
					{"entry", "left"}:  tt.left,
					{"entry", "right"}: tt.right,
				},
			}
			res := dataflow.NewIDESolver[string, lattice.ConstValue](p, diamondGraph()).
				WithLogger(quiet()).
				Solve()

			got, ok := res.Value("merge", "v")
			require.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("value at merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIDESolver_SolveIsIdempotent(t *testing.T) {
	p := &testProblem{vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("entry", "x", 0)}}
	s := dataflow.NewIDESolver[string, int64](p, diamondGraph()).WithLogger(quiet())

	first := s.Solve()
	second := s.SolveWithConfig(dataflow.Config{Limits: dataflow.Limits{MaxIterations: 1}})

	assert.Same(t, first, second)
}

func TestSolvers_Concurrent(t *testing.T) {
	const workers = 8

	results := make([]map[string]int64, workers)
	facts := make([][]string, workers)

	var eg errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		eg.Go(func() error {
			ifds := dataflow.NewIFDSSolver[string](&testProblem{seeds: seedsAt("main_entry", "a")}, twoCallGraph()).
				WithLogger(quiet()).
				Solve()
			facts[i] = ifds.FactsAtAnyContext("rs2")

			p := &testProblem{
				vseeds: []dataflow.ValueSeed[string, int64]{valueSeed("entry", "x", int64(i))},
				normalEF: edgeConstants(map[[2]string]int64{
					{"entry", "left"}: 8,
				}),
			}
			ide := dataflow.NewIDESolver[string, int64](p, diamondGraph()).WithLogger(quiet()).Solve()
			values := make(map[string]int64)
			ide.ForEach(func(node, _ string, v int64) { values[node] = v })
			results[i] = values
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	for i := 0; i < workers; i++ {
		assert.Equal(t, []string{"a"}, facts[i])
		want := map[string]int64{
			"entry": int64(i),
			"left":  8,
			"right": int64(i),
			"merge": max(8, int64(i)),
		}
		if diff := cmp.Diff(want, results[i]); diff != "" {
			t.Errorf("worker %d values mismatch (-want +got):\n%s", i, diff)
		}
	}
}

// sumLattice is not idempotent and must be reported by VerifyMeet.
type sumLattice struct{}

func (sumLattice) Top() int64            { return math.MaxInt64 }
func (sumLattice) Bottom() int64         { return 0 }
func (sumLattice) Meet(a, b int64) int64 { return a + b }

// constProblem propagates a single fact through a graph with per-edge
// constant lattice functions.
type constProblem struct {
	seeds []dataflow.ValueSeed[string, lattice.ConstValue]
	edges map[[2]string]dataflow.EdgeFunction[lattice.ConstValue]
}

func (p *constProblem) ZeroFact() string { return zero }

func (p *constProblem) InitialValueSeeds() []dataflow.ValueSeed[string, lattice.ConstValue] {
	return p.seeds
}

func (p *constProblem) Lattice() dataflow.Lattice[lattice.ConstValue] { return lattice.Const{} }

func (p *constProblem) NormalFlow(_, _ string, fact string) []string { return []string{fact} }

func (p *constProblem) CallFlow(_, _ string, fact string) []string { return []string{fact} }

func (p *constProblem) ReturnFlow(_, _, _ string, fact string) []string { return []string{fact} }

func (p *constProblem) CallToReturnFlow(_, _ string, fact string) []string { return []string{fact} }

func (p *constProblem) NormalEdgeFunction(from, to, _, _ string) dataflow.EdgeFunction[lattice.ConstValue] {
	return p.edges[[2]string{from, to}]
}

func (p *constProblem) CallEdgeFunction(_, _, _, _ string) dataflow.EdgeFunction[lattice.ConstValue] {
	return nil
}

func (p *constProblem) ReturnEdgeFunction(_, _, _, _, _ string) dataflow.EdgeFunction[lattice.ConstValue] {
	return nil
}

func (p *constProblem) CallToReturnEdgeFunction(_, _, _, _ string) dataflow.EdgeFunction[lattice.ConstValue] {
	return nil
}
