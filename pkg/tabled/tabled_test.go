package tabled

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dataflow/lattice"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

func TestLoad_Taint(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "problems", "taint.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "taint", p.Name())
	assert.Equal(t, []string{"main.entry", "id.entry"}, p.Graph().Entries())

	res := dataflow.NewIFDSSolver[string](p, p.Graph()).WithLogger(log.Discard()).Solve()

	tests := []struct {
		node    string
		holds   []string
		missing []string
	}{
		{node: "main.read", holds: []string{ZeroFact, "input"}},
		{node: "main.call", holds: []string{"input", "local"}},
		{node: "id.entry", holds: []string{ZeroFact, "param"}, missing: []string{"input", "local"}},
		{node: "id.exit", holds: []string{"param"}},
		{node: "main.ret", holds: []string{"result", "local"}, missing: []string{"input", "param"}},
		{node: "main.exit", holds: []string{"result", "local"}},
	}
	for _, tt := range tests {
		t.Run(tt.node, func(t *testing.T) {
			facts := res.FactsAtAnyContext(tt.node)
			assert.Subset(t, facts, tt.holds)
			for _, f := range tt.missing {
				assert.NotContains(t, facts, f)
			}
		})
	}
	assert.True(t, res.HoldsInContext("param", "id.exit", "param"))
	assert.Contains(t, res.SummaryEdges(), dataflow.SummaryEdge[string]{
		CallSite: "main.call", Fact: "input", ReturnSite: "main.ret", Target: "result",
	})
}

func TestLoad_Constants(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "problems", "constants.yaml"))
	require.NoError(t, err)

	res := dataflow.NewIDESolver[string, lattice.ConstValue](p, p.Graph()).WithLogger(log.Discard()).Solve()

	tests := []struct {
		node string
		fact string
		want lattice.ConstValue
	}{
		{node: "entry", fact: "x", want: lattice.Of(1)},
		{node: "left", fact: "x", want: lattice.Of(2)},
		{node: "right", fact: "y", want: lattice.Of(4)},
		{node: "left", fact: "y", want: lattice.Of(10)},
		{node: "merge", fact: "x", want: lattice.Of(2)},
		{node: "merge", fact: "y", want: lattice.Const{}.Top()},
		{node: "merge", fact: "u", want: lattice.Const{}.Bottom()},
		{node: "exit", fact: "z", want: lattice.Of(21)},
		{node: "exit", fact: ZeroFact, want: lattice.Const{}.Bottom()},
	}
	for _, tt := range tests {
		t.Run(tt.node+"/"+tt.fact, func(t *testing.T) {
			got, ok := res.Value(tt.node, tt.fact)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	_, ok := res.Value("merge", "z")
	assert.False(t, ok, "z is generated after merge")
}

func TestLoad_DefaultsNameToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("edges: [{from: a, to: b}]\nseeds: [{node: a, fact: x}]\n"), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, p.Name())
	assert.Equal(t, []dataflow.Seed[string]{
		{Node: "a", Fact: ZeroFact},
		{Node: "a", Fact: "x"},
	}, p.InitialSeeds())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Empty(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)

	p, err := New(doc)
	require.NoError(t, err)
	assert.Zero(t, p.Graph().NumNodes())
	assert.Empty(t, p.InitialSeeds())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		errText string
	}{
		{
			name:    "unknown edge kind",
			yaml:    "edges: [{kind: jump, from: a, to: b}]",
			wantErr: icfg.ErrUnknownEdgeKind,
		},
		{
			name:    "return without call site",
			yaml:    "edges: [{kind: return, from: a, to: b}]",
			wantErr: ErrMissingCallSite,
		},
		{
			name:    "seed on unknown node",
			yaml:    "edges: [{from: a, to: b}]\nseeds: [{node: c, fact: x}]",
			wantErr: ErrUnknownNode,
		},
		{
			name:    "reserved seed fact",
			yaml:    "edges: [{from: a, to: b}]\nseeds: [{node: a, fact: <zero>}]",
			wantErr: ErrReservedFact,
		},
		{
			name:    "rule on missing edge",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{from: b, to: a}]",
			wantErr: ErrNoSuchEdge,
		},
		{
			name:    "rule with wrong kind",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{kind: call, from: a, to: b}]",
			wantErr: ErrNoSuchEdge,
		},
		{
			name:    "unknown op",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{from: a, to: b, value: [{op: div, operand: 2}]}]",
			wantErr: ErrUnknownOp,
		},
		{
			name:    "unknown op in values",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{from: a, to: b, values: {x: [{op: sqrt}]}}]",
			wantErr: ErrUnknownOp,
			errText: "values of x",
		},
		{
			name:    "generating the zero fact",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{from: a, to: b, gen: [<zero>]}]",
			wantErr: ErrReservedFact,
		},
		{
			name:    "unknown callee",
			yaml:    "procedures: [{name: main, entry: m, exits: [m], edges: [], calls: [{site: m, callee: g, return_site: r}]}]",
			wantErr: icfg.ErrUnknownCallee,
		},
		{
			name:    "duplicate rule",
			yaml:    "edges: [{from: a, to: b}]\nrules: [{from: a, to: b}, {from: a, to: b, kill: [x]}]",
			errText: "duplicate rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)

			_, err = New(doc)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("edges: [{from: a, to: b, weight: 3}]"))
	assert.Error(t, err)
}

func TestProblem_FlowFunctions(t *testing.T) {
	doc, err := Parse([]byte(`
edges:
  - {from: a, to: b}
  - {from: b, to: c}
rules:
  - {from: a, to: b, kill: [k], gen: [g1, g2], rename: {r: s}}
`))
	require.NoError(t, err)
	p, err := New(doc)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to string
		fact     string
		want     []string
	}{
		{name: "zero generates", from: "a", to: "b", fact: ZeroFact, want: []string{ZeroFact, "g1", "g2"}},
		{name: "kill", from: "a", to: "b", fact: "k", want: nil},
		{name: "rename", from: "a", to: "b", fact: "r", want: []string{"s"}},
		{name: "identity", from: "a", to: "b", fact: "other", want: []string{"other"}},
		{name: "no rule", from: "b", to: "c", fact: "k", want: []string{"k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.NormalFlow(tt.from, tt.to, tt.fact))
		})
	}

	// Unmatched kinds fall back to identity.
	assert.Equal(t, []string{"k"}, p.CallFlow("a", "b", "k"))
	assert.Equal(t, []string{"k"}, p.CallToReturnFlow("a", "b", "k"))
	assert.Equal(t, []string{"k"}, p.ReturnFlow("a", "b", "cs", "k"))

	id := dataflow.Identity[lattice.ConstValue]{}
	assert.Equal(t, dataflow.EdgeFunction[lattice.ConstValue](id), p.NormalEdgeFunction("a", "b", ZeroFact, ZeroFact))
	assert.Equal(t, dataflow.EdgeFunction[lattice.ConstValue](id), p.NormalEdgeFunction("b", "c", "x", "x"))
	assert.Equal(t, lattice.Of(5), p.NormalEdgeFunction("a", "b", "x", "x").Apply(lattice.Of(5)))
}
