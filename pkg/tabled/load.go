package tabled

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/dataflow/lattice"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

// Load reads and compiles the problem document at path. The document name
// defaults to the file path.
func Load(path string) (*Problem, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// ReadDocument reads and decodes the document at path without compiling it.
// The document name defaults to the file path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse problem file %s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = path
	}
	return doc, nil
}

// Parse decodes a problem document. Unknown fields are rejected; an empty
// input yields an empty document.
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &doc, nil
}

// New builds the graph of doc and compiles its rules.
func New(doc *Document) (*Problem, error) {
	g, err := icfg.Link(doc.Procedures)
	if err != nil {
		return nil, fmt.Errorf("failed to link procedures: %w", err)
	}
	for i, e := range doc.Edges {
		edge, err := e.edge()
		if err != nil {
			return nil, fmt.Errorf("edge %d (%s -> %s): %w", i, e.From, e.To, err)
		}
		g.AddEdge(e.From, edge)
	}
	for _, n := range doc.Entries {
		g.AddEntry(n)
	}
	for _, n := range doc.Exits {
		g.AddExit(n)
	}

	p := &Problem{
		name:  doc.Name,
		graph: g,
		rules: make(map[ruleKey]*compiledRule, len(doc.Rules)),
	}
	if err := p.addSeeds(doc.Seeds); err != nil {
		return nil, err
	}
	for i, r := range doc.Rules {
		if err := p.addRule(r); err != nil {
			return nil, fmt.Errorf("rule %d (%s -> %s): %w", i, r.From, r.To, err)
		}
	}
	return p, nil
}

func (e EdgeSpec) edge() (icfg.Edge, error) {
	kind, err := icfg.ParseEdgeKind(e.Kind)
	if err != nil {
		return icfg.Edge{}, err
	}
	switch kind {
	case icfg.EdgeCall:
		return icfg.Call(e.To), nil
	case icfg.EdgeReturn:
		if e.CallSite == "" {
			return icfg.Edge{}, ErrMissingCallSite
		}
		return icfg.Return(e.To, e.CallSite), nil
	case icfg.EdgeCallToReturn:
		return icfg.CallToReturn(e.To), nil
	default:
		return icfg.Normal(e.To), nil
	}
}

func (p *Problem) addSeeds(seeds []SeedSpec) error {
	zeroSeeded := make(map[string]bool)
	for i, s := range seeds {
		if !p.graph.HasNode(s.Node) {
			return fmt.Errorf("seed %d: %w: %q", i, ErrUnknownNode, s.Node)
		}
		if s.Fact == ZeroFact {
			return fmt.Errorf("seed %d: %w: %q", i, ErrReservedFact, s.Fact)
		}
		if !zeroSeeded[s.Node] {
			zeroSeeded[s.Node] = true
			p.seeds = append(p.seeds, dataflow.ValueSeed[string, lattice.ConstValue]{
				Node: s.Node, Fact: ZeroFact, Value: lattice.Const{}.Bottom(),
			})
		}
		if s.Fact == "" {
			continue
		}
		v := lattice.Const{}.Bottom()
		if s.Value != nil {
			v = lattice.Of(*s.Value)
		}
		p.seeds = append(p.seeds, dataflow.ValueSeed[string, lattice.ConstValue]{
			Node: s.Node, Fact: s.Fact, Value: v,
		})
	}
	return nil
}

func (p *Problem) addRule(r Rule) error {
	kind, err := icfg.ParseEdgeKind(r.Kind)
	if err != nil {
		return err
	}
	if !p.hasEdge(kind, r.From, r.To) {
		return fmt.Errorf("%w: %s %s -> %s", ErrNoSuchEdge, kind, r.From, r.To)
	}
	k := ruleKey{kind: kind, from: r.From, to: r.To}
	if _, ok := p.rules[k]; ok {
		return fmt.Errorf("duplicate rule for %s %s -> %s", kind, r.From, r.To)
	}

	c := &compiledRule{
		kill:   make(map[string]bool, len(r.Kill)),
		gen:    r.Gen,
		rename: r.Rename,
		values: make(map[string]dataflow.EdgeFunction[lattice.ConstValue], len(r.Values)),
	}
	for _, f := range r.Kill {
		c.kill[f] = true
	}
	for _, f := range r.Gen {
		if f == ZeroFact {
			return fmt.Errorf("gen: %w", ErrReservedFact)
		}
	}
	for from, to := range r.Rename {
		if from == ZeroFact || to == ZeroFact {
			return fmt.Errorf("rename: %w", ErrReservedFact)
		}
	}
	if c.value, err = compileOps(r.Value); err != nil {
		return err
	}
	for fact, ops := range r.Values {
		fn, err := compileOps(ops)
		if err != nil {
			return fmt.Errorf("values of %s: %w", fact, err)
		}
		c.values[fact] = fn
	}
	p.rules[k] = c
	return nil
}

func (p *Problem) hasEdge(kind icfg.EdgeKind, from, to string) bool {
	for _, e := range p.graph.Successors(from) {
		if e.Kind == kind && e.To == to {
			return true
		}
	}
	return false
}

func compileOps(ops []Op) (dataflow.EdgeFunction[lattice.ConstValue], error) {
	fns := make([]dataflow.EdgeFunction[lattice.ConstValue], 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case "id":
		case "const":
			fns = append(fns, lattice.ConstSet(op.Operand))
		case "add":
			fns = append(fns, lattice.ConstAdd(op.Operand))
		case "mul":
			fns = append(fns, lattice.ConstMul(op.Operand))
		case "top":
			fns = append(fns, dataflow.AllTop[lattice.ConstValue](lattice.Const{}))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOp, op.Op)
		}
	}
	return dataflow.Compose(fns...), nil
}
