// Package tabled loads declarative gen/kill problems from YAML documents.
//
// A document names an interprocedural graph, either as procedure CFGs linked
// with icfg.Link or as raw edges, together with seed facts and per-edge
// rules. The resulting Problem implements both dataflow.IFDSProblem and
// dataflow.IDEProblem over string facts and the constant lattice, so one
// document can be solved for reachability and for values.
package tabled

import (
	"github.com/l3aro/go-dataflow/pkg/cfg"
)

// ZeroFact is the fact that holds unconditionally. Documents may not use it
// as a fact name.
const ZeroFact = "<zero>"

// Document is the YAML form of a tabled problem.
type Document struct {
	Name       string           `yaml:"name"`
	Procedures []*cfg.Procedure `yaml:"procedures,omitempty"`
	Edges      []EdgeSpec       `yaml:"edges,omitempty"`
	Entries    []string         `yaml:"entries,omitempty"`
	Exits      []string         `yaml:"exits,omitempty"`
	Seeds      []SeedSpec       `yaml:"seeds"`
	Rules      []Rule           `yaml:"rules,omitempty"`
}

// EdgeSpec is a raw interprocedural edge. CallSite is required for return
// edges and ignored otherwise.
type EdgeSpec struct {
	Kind     string `yaml:"kind,omitempty"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	CallSite string `yaml:"call_site,omitempty"`
}

// SeedSpec declares an initial fact. An empty Fact seeds only the zero fact
// at Node. A missing Value starts the fact undefined.
type SeedSpec struct {
	Node  string `yaml:"node"`
	Fact  string `yaml:"fact,omitempty"`
	Value *int64 `yaml:"value,omitempty"`
}

// Rule attaches flow and edge functions to one edge. Facts listed in Kill
// are removed, facts in Rename are replaced, and Gen facts are generated
// from the zero fact. Value lists the ops applied to every non-zero target
// fact; Values overrides it per target fact.
type Rule struct {
	Kind   string            `yaml:"kind,omitempty"`
	From   string            `yaml:"from"`
	To     string            `yaml:"to"`
	Kill   []string          `yaml:"kill,omitempty"`
	Gen    []string          `yaml:"gen,omitempty"`
	Rename map[string]string `yaml:"rename,omitempty"`
	Value  []Op              `yaml:"value,omitempty"`
	Values map[string][]Op   `yaml:"values,omitempty"`
}

// Op is one step of an edge function over the constant lattice.
type Op struct {
	Op      string `yaml:"op"`
	Operand int64  `yaml:"operand,omitempty"`
}
