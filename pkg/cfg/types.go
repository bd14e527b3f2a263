// Package cfg defines the per-procedure control flow graph that language
// front-ends hand to the dataflow engine. It carries block identifiers,
// intraprocedural edges and call sites; linking procedures into one
// interprocedural graph is done by package icfg.
package cfg

// BlockType represents the type of a CFG block.
type BlockType string

const (
	BlockTypeEntry  BlockType = "entry"  // Procedure entry point
	BlockTypePlain  BlockType = "plain"  // Regular statements
	BlockTypeBranch BlockType = "branch" // Conditional branch
	BlockTypeCall   BlockType = "call"   // Call site
	BlockTypeReturn BlockType = "return" // Return site following a call
	BlockTypeExit   BlockType = "exit"   // Procedure exit point
)

// Block represents a basic block of a procedure. Uses are read on entry to
// the block; Defs take effect when control leaves it.
type Block struct {
	ID         string    `json:"id" yaml:"id"`                                     // Unique identifier across the program
	Type       BlockType `json:"type,omitempty" yaml:"type,omitempty"`             // Kind of block
	StartLine  int       `json:"start_line,omitempty" yaml:"start_line,omitempty"` // Starting line number in source
	EndLine    int       `json:"end_line,omitempty" yaml:"end_line,omitempty"`     // Ending line number in source
	Statements []string  `json:"statements,omitempty" yaml:"statements,omitempty"` // Statements in this block
	Defs       []string  `json:"defs,omitempty" yaml:"defs,omitempty"`             // Variables assigned in this block
	Uses       []string  `json:"uses,omitempty" yaml:"uses,omitempty"`             // Variables read in this block
}

// Edge is an intraprocedural control flow edge.
type Edge struct {
	From      string `json:"from" yaml:"from"`                               // Source block ID
	To        string `json:"to" yaml:"to"`                                   // Target block ID
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"` // Branch condition, if any
}

// CallSite records a call from a block of this procedure to another
// procedure. ReturnSite is the block where control resumes in the caller.
type CallSite struct {
	Site       string `json:"site" yaml:"site"`               // Block ID of the call
	Callee     string `json:"callee" yaml:"callee"`           // Name of the called procedure
	ReturnSite string `json:"return_site" yaml:"return_site"` // Block ID control returns to
}

// Procedure is the control flow graph of a single function.
type Procedure struct {
	Name   string     `json:"name" yaml:"name"`                         // Name of the procedure
	Entry  string     `json:"entry" yaml:"entry"`                       // ID of the entry block
	Exits  []string   `json:"exits" yaml:"exits"`                       // IDs of exit blocks
	Blocks []Block    `json:"blocks,omitempty" yaml:"blocks,omitempty"` // Optional block metadata
	Edges  []Edge     `json:"edges" yaml:"edges"`                       // Intraprocedural edges
	Calls  []CallSite `json:"calls,omitempty" yaml:"calls,omitempty"`   // Outgoing calls
}

// BlockIDs returns every block ID mentioned by the procedure in first-seen
// order: declared blocks, entry, exits, edge endpoints and call sites.
func (p *Procedure) BlockIDs() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, b := range p.Blocks {
		add(b.ID)
	}
	add(p.Entry)
	for _, e := range p.Exits {
		add(e)
	}
	for _, e := range p.Edges {
		add(e.From)
		add(e.To)
	}
	for _, c := range p.Calls {
		add(c.Site)
		add(c.ReturnSite)
	}
	return ids
}

// CyclomaticComplexity returns E - N + 2 for the intraprocedural graph,
// counting each call site as an edge to its return site.
func (p *Procedure) CyclomaticComplexity() int {
	n := len(p.BlockIDs())
	if n == 0 {
		return 0
	}
	return len(p.Edges) + len(p.Calls) - n + 2
}
