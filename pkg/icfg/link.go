package icfg

import (
	"fmt"

	"github.com/l3aro/go-dataflow/pkg/cfg"
)

// Link builds an interprocedural graph from procedure CFGs. Intraprocedural
// edges become Normal edges. Each call site gets a Call edge to the callee
// entry, a CallToReturn edge to its return site, and one Return edge from
// every callee exit back to the return site.
func Link(procs []*cfg.Procedure) (*Graph, error) {
	byName := make(map[string]*cfg.Procedure, len(procs))
	for _, p := range procs {
		if p == nil {
			continue
		}
		if _, ok := byName[p.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProcedure, p.Name)
		}
		byName[p.Name] = p
	}

	g := New()
	if err := g.Merge(procs, byName); err != nil {
		return nil, err
	}
	return g, nil
}

// Merge adds procedures to an existing graph. Callees are looked up in
// known, so procedures may call into ones linked by an earlier Merge.
func (g *Graph) Merge(procs []*cfg.Procedure, known map[string]*cfg.Procedure) error {
	for _, p := range procs {
		if p == nil {
			continue
		}
		for _, id := range p.BlockIDs() {
			g.AddNode(id)
		}
		if p.Entry != "" {
			g.AddEntry(p.Entry)
		}
		for _, exit := range p.Exits {
			g.AddExit(exit)
		}
		for _, e := range p.Edges {
			g.AddEdge(e.From, Normal(e.To))
		}
	}

	for _, p := range procs {
		if p == nil {
			continue
		}
		for _, c := range p.Calls {
			callee, ok := known[c.Callee]
			if !ok {
				return fmt.Errorf("%w: %s calls %s at %s", ErrUnknownCallee, p.Name, c.Callee, c.Site)
			}
			g.AddEdge(c.Site, Call(callee.Entry))
			g.AddEdge(c.Site, CallToReturn(c.ReturnSite))
			for _, exit := range callee.Exits {
				g.AddEdge(exit, Return(c.ReturnSite, c.Site))
			}
		}
	}
	return nil
}
