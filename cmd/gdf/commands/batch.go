package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-dataflow/internal/scanner"
	"github.com/l3aro/go-dataflow/pkg/report"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <problem.yaml|dir>...",
		Short: "Solve several problems concurrently",
		Long: `Solves each problem file with its own solver, running up to
--concurrency solves at once. Directories are searched for .yaml and .yml
files, honoring .gdfignore files. Reports are printed in argument order. The
first failure cancels the solves that have not started yet.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			mode, _ := cmd.Flags().GetString("mode")

			paths, err := scanner.Expand(args, scanner.DefaultOptions())
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no problem files found in %v", args)
			}
			s.logger.Debug("batch started", "problems", len(paths), "mode", mode, "concurrency", s.cfg.Concurrency)

			reports, err := solveAll(cmd.Context(), s, mode, paths)
			if err != nil {
				return err
			}

			if err := writeReports(cmd, s.format, reports); err != nil {
				return err
			}
			return s.saveCache()
		},
	}
	cmd.Flags().String("mode", modeIFDS, "Analysis to run: ifds, ide, graph or defuse")
	cmd.Flags().Int("concurrency", 0, "Maximum concurrent solves (default from config)")
	cmd.Flags().Bool("verify-meet", false, "Check the lattice meet laws over the values seen (ide mode)")
	return cmd
}

// writeReports prints JSON and msgpack reports as one array, text reports
// one after the other.
func writeReports(cmd *cobra.Command, format report.Format, reports []any) error {
	if format != report.FormatText {
		return report.Encode(cmd.OutOrStdout(), format, reports)
	}
	for i, rep := range reports {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := report.Encode(cmd.OutOrStdout(), format, rep); err != nil {
			return err
		}
	}
	return nil
}

// solveAll solves every path with at most s.cfg.Concurrency solves in
// flight. Each solve owns its solver, so no state is shared between them.
func solveAll(ctx context.Context, s *settings, mode string, paths []string) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]any, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rep, err := solveCached(s, mode, path)
			if err != nil {
				return fmt.Errorf("solving %s: %w", path, err)
			}
			reports[i] = rep
			s.logger.Debug("batch problem solved", "path", path, "mode", mode)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
