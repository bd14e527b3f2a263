// Package commands provides the CLI commands for the go-dataflow tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-dataflow/internal/config"
	"github.com/l3aro/go-dataflow/internal/log"
	"github.com/l3aro/go-dataflow/pkg/cache"
	"github.com/l3aro/go-dataflow/pkg/report"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the gdf command tree with fresh flag state.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gdf",
		Short: "go-dataflow - Interprocedural IFDS/IDE dataflow solver",
		Long: `go-dataflow solves interprocedural dataflow problems described as
tabled YAML documents.

Commands:
  ifds        Compute which facts reach which nodes
  ide         Propagate constant values along reachable facts
  graph       Describe the shape of a problem's graph
  defuse      Compute def-use chains of a problem's procedures
  batch       Solve several problems concurrently

Use "gdf [command] --help" for more information about a command.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Config file path (default: ~/.gdf/config.yaml, ./.gdf/config.yaml)")
	flags.StringP("format", "f", "", "Output format: text, json or msgpack")
	flags.String("log-level", "", "Log level: debug, info, warn, error or silent")
	flags.Bool("json-logs", false, "Write logs as JSON")
	flags.BoolP("verbose", "v", false, "Verbose logging")
	flags.Int("max-iterations", 0, "Stop after this many worklist items (0 = unbounded)")
	flags.Int("max-path-edges", 0, "Stop after this many path edges (0 = unbounded)")
	flags.String("cache", "", "Report cache file; unchanged problems are not solved again")

	root.AddCommand(newIFDSCmd())
	root.AddCommand(newIDECmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newDefUseCmd())
	root.AddCommand(newBatchCmd())
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

// settings is the resolved configuration of one invocation.
type settings struct {
	cfg    *config.Config
	format report.Format
	logger log.Logger
	cache  *cache.LRUCache // nil when caching is off
}

// loadSettings reads the config file, then applies the flags the user set
// explicitly.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	flags := cmd.Flags()

	var (
		cfg *config.Config
		err error
	)
	if path, _ := flags.GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if flags.Changed("format") {
		cfg.OutputFormat, _ = flags.GetString("format")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs, _ = flags.GetBool("json-logs")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations, _ = flags.GetInt("max-iterations")
	}
	if flags.Changed("max-path-edges") {
		cfg.MaxPathEdges, _ = flags.GetInt("max-path-edges")
	}
	if flags.Changed("cache") {
		cfg.CacheFile, _ = flags.GetString("cache")
	}
	if f := flags.Lookup("verify-meet"); f != nil && f.Changed {
		cfg.VerifyMeet, _ = flags.GetBool("verify-meet")
	}
	if f := flags.Lookup("concurrency"); f != nil && f.Changed {
		cfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	format, err := report.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	s := &settings{cfg: cfg, format: format, logger: cfg.Logger()}
	if cfg.CacheFile != "" {
		s.cache = cache.New(cache.Options{MaxSize: cfg.CacheSize, MaxAge: cfg.CacheMaxAge})
		if err := cache.LoadFromFile(s.cache, cfg.CacheFile); err != nil {
			s.logger.Warn("ignoring unreadable report cache", "path", cfg.CacheFile, "error", err)
			s.cache = cache.New(cache.Options{MaxSize: cfg.CacheSize, MaxAge: cfg.CacheMaxAge})
		}
	}
	return s, nil
}

// saveCache writes the report cache back to its file.
func (s *settings) saveCache() error {
	if s.cache == nil {
		return nil
	}
	hits, misses := s.cache.Stats()
	s.logger.Debug("report cache", "path", s.cfg.CacheFile, "hits", hits, "misses", misses, "entries", s.cache.Len())
	return cache.PersistToFile(s.cache, s.cfg.CacheFile)
}
