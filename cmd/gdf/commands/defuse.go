package commands

import (
	"github.com/spf13/cobra"
)

func newDefUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "defuse <problem.yaml>",
		Short: "Compute def-use chains of a problem's procedures",
		Long: `Solves reaching definitions over the procedures of a problem document,
using the defs and uses declared on their blocks, and prints which
definitions reach each use. Uses no definition reaches are listed
separately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, modeDefUse, args[0])
		},
	}
}
