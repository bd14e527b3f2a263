// Package report turns solver results into plain structs and encodes them for
// the host pipeline.
package report

import (
	"fmt"

	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dfg"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

// Summary is a summary edge with facts rendered as text.
type Summary struct {
	CallSite   string `json:"call_site"`
	Fact       string `json:"fact"`
	ReturnSite string `json:"return_site"`
	Target     string `json:"target"`
}

// NodeFacts lists the facts holding at a node in any context.
type NodeFacts struct {
	Node  string   `json:"node"`
	Facts []string `json:"facts"`
}

// IFDSReport is the outcome of an IFDS solve.
type IFDSReport struct {
	Problem   string              `json:"problem"`
	Nodes     []NodeFacts         `json:"nodes"`
	Summaries []Summary           `json:"summaries,omitempty"`
	Stats     dataflow.Statistics `json:"stats"`
}

// FactValue is one (fact, value) entry of a node.
type FactValue struct {
	Fact  string `json:"fact"`
	Value string `json:"value"`
}

// NodeValues lists the values of the facts at a node, merged over contexts.
type NodeValues struct {
	Node   string      `json:"node"`
	Values []FactValue `json:"values"`
}

// IDEReport is the outcome of an IDE solve.
type IDEReport struct {
	Problem string              `json:"problem"`
	Nodes   []NodeValues        `json:"nodes"`
	Stats   dataflow.Statistics `json:"stats"`
}

// GraphReport describes the shape of an interprocedural graph.
type GraphReport struct {
	Problem     string     `json:"problem"`
	Nodes       int        `json:"nodes"`
	Edges       int        `json:"edges"`
	Entries     []string   `json:"entries"`
	Exits       []string   `json:"exits"`
	Unreachable []string   `json:"unreachable,omitempty"`
	Cycles      [][]string `json:"cycles,omitempty"`

	Procedures []ProcedureShape `json:"procedures,omitempty"`
}

// ProcedureShape sizes one procedure of a graph.
type ProcedureShape struct {
	Name       string `json:"name"`
	Blocks     int    `json:"blocks"`
	Complexity int    `json:"complexity"`
}

// DefUseReport lists the def-use chains of a problem's procedures.
type DefUseReport struct {
	Problem    string              `json:"problem"`
	Procedures []string            `json:"procedures"`
	Chains     []dfg.DataflowEdge  `json:"chains"`
	Undefined  []dfg.DataflowEdge  `json:"undefined,omitempty"`
	Variables  map[string][]string `json:"variables"`
}

// FromIFDS builds the report of r. The zero fact is left out.
func FromIFDS[F comparable](problem string, r *dataflow.IFDSResult[F]) *IFDSReport {
	rep := &IFDSReport{Problem: problem, Nodes: []NodeFacts{}, Stats: r.Statistics()}
	zero := r.ZeroFact()
	for _, n := range r.Nodes() {
		var facts []string
		for _, f := range r.FactsAtAnyContext(n) {
			if f != zero {
				facts = append(facts, fmt.Sprint(f))
			}
		}
		if len(facts) > 0 {
			rep.Nodes = append(rep.Nodes, NodeFacts{Node: n, Facts: facts})
		}
	}
	for _, s := range r.SummaryEdges() {
		if s.Fact == zero && s.Target == zero {
			continue
		}
		rep.Summaries = append(rep.Summaries, Summary{
			CallSite:   s.CallSite,
			Fact:       fmt.Sprint(s.Fact),
			ReturnSite: s.ReturnSite,
			Target:     fmt.Sprint(s.Target),
		})
	}
	return rep
}

// FromIDE builds the report of r. The zero fact is left out.
func FromIDE[F, V comparable](problem string, r *dataflow.IDEResult[F, V]) *IDEReport {
	rep := &IDEReport{Problem: problem, Nodes: []NodeValues{}, Stats: r.Statistics()}
	zero := r.ZeroFact()
	for _, n := range r.Nodes() {
		var values []FactValue
		for _, f := range r.FactsAt(n) {
			if f == zero {
				continue
			}
			v, _ := r.Value(n, f)
			values = append(values, FactValue{Fact: fmt.Sprint(f), Value: fmt.Sprint(v)})
		}
		if len(values) > 0 {
			rep.Nodes = append(rep.Nodes, NodeValues{Node: n, Values: values})
		}
	}
	return rep
}

// FromGraph builds the report of g. Unreachable nodes are computed from the
// entries and left out when the graph declares none. procs, the procedures g
// was linked from, are listed with their cyclomatic complexity.
func FromGraph(problem string, g *icfg.Graph, procs ...*cfg.Procedure) *GraphReport {
	rep := &GraphReport{
		Problem: problem,
		Nodes:   g.NumNodes(),
		Edges:   g.NumEdges(),
		Entries: g.Entries(),
		Exits:   g.Exits(),
		Cycles:  g.Cycles(),
	}
	if len(rep.Entries) > 0 {
		rep.Unreachable = g.Unreachable()
	}
	for _, p := range procs {
		if p == nil {
			continue
		}
		rep.Procedures = append(rep.Procedures, ProcedureShape{
			Name:       p.Name,
			Blocks:     len(p.BlockIDs()),
			Complexity: p.CyclomaticComplexity(),
		})
	}
	return rep
}

// FromDefUse wraps the def-use chains of a problem.
func FromDefUse(problem string, info *dfg.DFGInfo) *DefUseReport {
	return &DefUseReport{
		Problem:    problem,
		Procedures: info.Procedures,
		Chains:     info.DataflowEdges,
		Undefined:  info.Undefined,
		Variables:  info.Variables,
	}
}
