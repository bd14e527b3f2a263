package commands

import (
	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/pkg/report"
)

func newIFDSCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ifds <problem.yaml>",
		Short: "Compute which facts reach which nodes",
		Long: `Loads a tabled problem and runs the IFDS tabulation to its fixed point.
Prints the facts holding at every node and the summary edges computed for
each call site.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(cmd, modeIFDS, args[0])
		},
	}
}

// runSolve solves a single problem file and writes its report to the
// command's output.
func runSolve(cmd *cobra.Command, mode, path string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	rep, err := solveCached(s, mode, path)
	if err != nil {
		return err
	}
	if err := report.Encode(cmd.OutOrStdout(), s.format, rep); err != nil {
		return err
	}
	return s.saveCache()
}
