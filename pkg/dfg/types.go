// Package dfg computes def-use chains across procedures. Reaching
// definitions are posed as an IFDS problem over the linked procedure graph,
// so a definition reaches a use along realizable paths only.
package dfg

// Definition is an assignment of Var in Block. The zero Definition is the
// zero fact of the problem.
type Definition struct {
	Var   string `json:"var"`
	Block string `json:"block"`
}

// DataflowEdge connects the block defining a variable to a block using it.
type DataflowEdge struct {
	Def     string `json:"def"`      // Block defining the variable
	Use     string `json:"use"`      // Block reading the variable
	VarName string `json:"var_name"` // Name of the variable being tracked
}

// DFGInfo represents the def-use chains of a set of procedures.
type DFGInfo struct {
	Procedures    []string            `json:"procedures"`     // Procedure names in input order
	DataflowEdges []DataflowEdge      `json:"dataflow_edges"` // Def-use edges
	Variables     map[string][]string `json:"variables"`      // Defining blocks grouped by variable
	Undefined     []DataflowEdge      `json:"undefined,omitempty"`
}
