package commands

import (
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph <problem.yaml>",
		Short: "Describe the shape of a problem's graph",
		Long: `Prints node and edge counts of a problem's interprocedural graph,
the nodes no entry reaches and the cycles of the graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, modeGraph, args[0])
		},
	}
}
