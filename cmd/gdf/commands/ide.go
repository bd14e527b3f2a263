package commands

import (
	"github.com/spf13/cobra"
)

func newIDECmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ide <problem.yaml>",
		Short: "Propagate constant values along reachable facts",
		Long: `Loads a tabled problem and runs the IDE solver over the constant
lattice. Prints the value of every reachable fact at every node, merged over
calling contexts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, modeIDE, args[0])
		},
	}
	cmd.Flags().Bool("verify-meet", false, "Check the lattice meet laws over the values seen")
	return cmd
}
