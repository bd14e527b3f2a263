package dfg

import (
	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cfg"
	"github.com/l3aro/go-dataflow/pkg/dataflow"
	"github.com/l3aro/go-dataflow/pkg/icfg"
)

// ReachingDefs is the reaching-definitions problem of a set of procedures.
// Variables are local to their procedure: no definition crosses a call or
// return edge, and the definitions of a call block take effect at its
// return site.
type ReachingDefs struct {
	procs []*cfg.Procedure
	graph *icfg.Graph
	// gen maps block ID to the definitions made in that block
	gen map[string][]Definition
	// kill maps block ID to the set of variable names assigned in that block
	kill map[string]map[string]struct{}
}

var _ dataflow.IFDSProblem[Definition] = (*ReachingDefs)(nil)

// NewReachingDefs links procs and collects the definitions of every block.
func NewReachingDefs(procs []*cfg.Procedure) (*ReachingDefs, error) {
	g, err := icfg.Link(procs)
	if err != nil {
		return nil, err
	}
	r := &ReachingDefs{
		procs: procs,
		graph: g,
		gen:   make(map[string][]Definition),
		kill:  make(map[string]map[string]struct{}),
	}
	for _, p := range procs {
		if p == nil {
			continue
		}
		for _, b := range p.Blocks {
			for _, v := range b.Defs {
				if _, ok := r.kill[b.ID][v]; ok {
					continue
				}
				if r.kill[b.ID] == nil {
					r.kill[b.ID] = make(map[string]struct{})
				}
				r.kill[b.ID][v] = struct{}{}
				r.gen[b.ID] = append(r.gen[b.ID], Definition{Var: v, Block: b.ID})
			}
		}
	}
	return r, nil
}

// Graph returns the linked procedure graph.
func (r *ReachingDefs) Graph() *icfg.Graph { return r.graph }

func (r *ReachingDefs) ZeroFact() Definition { return Definition{} }

// InitialSeeds starts every procedure at its entry.
func (r *ReachingDefs) InitialSeeds() []dataflow.Seed[Definition] {
	var seeds []dataflow.Seed[Definition]
	for _, n := range r.graph.Entries() {
		seeds = append(seeds, dataflow.Seed[Definition]{Node: n, Fact: Definition{}})
	}
	return seeds
}

func (r *ReachingDefs) NormalFlow(from, _ string, d Definition) []Definition {
	return r.transfer(from, d)
}

func (r *ReachingDefs) CallToReturnFlow(callSite, _ string, d Definition) []Definition {
	return r.transfer(callSite, d)
}

func (r *ReachingDefs) CallFlow(_, _ string, d Definition) []Definition {
	return onlyZero(d)
}

func (r *ReachingDefs) ReturnFlow(_, _, _ string, d Definition) []Definition {
	return onlyZero(d)
}

// transfer computes gen[block] U (in - kill[block]) for a single fact.
func (r *ReachingDefs) transfer(block string, d Definition) []Definition {
	if d == (Definition{}) {
		out := make([]Definition, 0, len(r.gen[block])+1)
		out = append(out, d)
		return append(out, r.gen[block]...)
	}
	if _, ok := r.kill[block][d.Var]; ok {
		return nil
	}
	return []Definition{d}
}

func onlyZero(d Definition) []Definition {
	if d == (Definition{}) {
		return []Definition{d}
	}
	return nil
}

// ComputeDefUseChains solves the problem and connects every use to the
// definitions reaching its block. Uses no definition reaches are listed in
// Undefined with an empty Def.
func (r *ReachingDefs) ComputeDefUseChains(logger log.Logger) *DFGInfo {
	res := dataflow.NewIFDSSolver[Definition](r, r.graph).WithLogger(logger).Solve()

	info := &DFGInfo{
		DataflowEdges: []DataflowEdge{},
		Variables:     make(map[string][]string),
	}
	for _, p := range r.procs {
		if p == nil {
			continue
		}
		info.Procedures = append(info.Procedures, p.Name)
		for _, b := range p.Blocks {
			for _, v := range b.Defs {
				info.Variables[v] = appendUnique(info.Variables[v], b.ID)
			}
			if len(b.Uses) == 0 {
				continue
			}
			reaching := res.FactsAtAnyContext(b.ID)
			for _, v := range b.Uses {
				found := false
				for _, d := range reaching {
					if d.Var == v {
						info.DataflowEdges = append(info.DataflowEdges, DataflowEdge{Def: d.Block, Use: b.ID, VarName: v})
						found = true
					}
				}
				if !found {
					info.Undefined = append(info.Undefined, DataflowEdge{Use: b.ID, VarName: v})
				}
			}
		}
	}
	return info
}

func appendUnique(s []string, v string) []string {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}
