package tabled

import (
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dataflow/lattice"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

type ruleKey struct {
	kind     icfg.EdgeKind
	from, to string
}

type compiledRule struct {
	kill   map[string]bool
	gen    []string
	rename map[string]string
	value  dataflow.EdgeFunction[lattice.ConstValue]
	values map[string]dataflow.EdgeFunction[lattice.ConstValue]
}

// Problem is a compiled tabled document.
type Problem struct {
	name  string
	graph *icfg.Graph
	seeds []dataflow.ValueSeed[string, lattice.ConstValue]
	rules map[ruleKey]*compiledRule
}

var (
	_ dataflow.IFDSProblem[string]                    = (*Problem)(nil)
	_ dataflow.IDEProblem[string, lattice.ConstValue] = (*Problem)(nil)
)

// Name returns the document name.
func (p *Problem) Name() string { return p.name }

// Graph returns the interprocedural graph built from the document.
func (p *Problem) Graph() *icfg.Graph { return p.graph }

func (p *Problem) ZeroFact() string { return ZeroFact }

func (p *Problem) Lattice() dataflow.Lattice[lattice.ConstValue] { return lattice.Const{} }

// InitialSeeds returns the zero fact at every seed node followed by the
// declared facts.
func (p *Problem) InitialSeeds() []dataflow.Seed[string] {
	out := make([]dataflow.Seed[string], len(p.seeds))
	for i, s := range p.seeds {
		out[i] = dataflow.Seed[string]{Node: s.Node, Fact: s.Fact}
	}
	return out
}

func (p *Problem) InitialValueSeeds() []dataflow.ValueSeed[string, lattice.ConstValue] {
	return p.seeds
}

func (p *Problem) NormalFlow(from, to string, fact string) []string {
	return p.flow(ruleKey{kind: icfg.EdgeNormal, from: from, to: to}, fact)
}

func (p *Problem) CallFlow(callSite, calleeEntry string, fact string) []string {
	return p.flow(ruleKey{kind: icfg.EdgeCall, from: callSite, to: calleeEntry}, fact)
}

func (p *Problem) ReturnFlow(calleeExit, returnSite, _ string, fact string) []string {
	return p.flow(ruleKey{kind: icfg.EdgeReturn, from: calleeExit, to: returnSite}, fact)
}

func (p *Problem) CallToReturnFlow(callSite, returnSite string, fact string) []string {
	return p.flow(ruleKey{kind: icfg.EdgeCallToReturn, from: callSite, to: returnSite}, fact)
}

func (p *Problem) NormalEdgeFunction(from, to string, source, target string) dataflow.EdgeFunction[lattice.ConstValue] {
	return p.edgeFunction(ruleKey{kind: icfg.EdgeNormal, from: from, to: to}, target)
}

func (p *Problem) CallEdgeFunction(callSite, calleeEntry string, source, target string) dataflow.EdgeFunction[lattice.ConstValue] {
	return p.edgeFunction(ruleKey{kind: icfg.EdgeCall, from: callSite, to: calleeEntry}, target)
}

func (p *Problem) ReturnEdgeFunction(calleeExit, returnSite, _ string, source, target string) dataflow.EdgeFunction[lattice.ConstValue] {
	return p.edgeFunction(ruleKey{kind: icfg.EdgeReturn, from: calleeExit, to: returnSite}, target)
}

func (p *Problem) CallToReturnEdgeFunction(callSite, returnSite string, source, target string) dataflow.EdgeFunction[lattice.ConstValue] {
	return p.edgeFunction(ruleKey{kind: icfg.EdgeCallToReturn, from: callSite, to: returnSite}, target)
}

// flow applies the rule of k to fact. Edges without a rule pass every fact
// through.
func (p *Problem) flow(k ruleKey, fact string) []string {
	r := p.rules[k]
	if r == nil {
		return []string{fact}
	}
	if fact == ZeroFact {
		out := make([]string, 0, len(r.gen)+1)
		out = append(out, ZeroFact)
		return append(out, r.gen...)
	}
	if r.kill[fact] {
		return nil
	}
	if renamed, ok := r.rename[fact]; ok {
		return []string{renamed}
	}
	return []string{fact}
}

func (p *Problem) edgeFunction(k ruleKey, target string) dataflow.EdgeFunction[lattice.ConstValue] {
	r := p.rules[k]
	if r == nil || target == ZeroFact {
		return dataflow.Identity[lattice.ConstValue]{}
	}
	if fn, ok := r.values[target]; ok {
		return fn
	}
	return r.value
}
