package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/qorder/internal/config"
	"github.com/roach88/qorder/internal/keycache"
)

// CacheOptions holds flags for the cache command.
type CacheOptions struct {
	*RootOptions
	Config string
}

// cacheStats is the JSON payload for the cache command.
type cacheStats struct {
	Database string         `json:"database"`
	Total    int            `json:"total"`
	ByWidth  map[string]int `json:"by_width"`
}

// NewCacheCommand creates the cache command.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Show key cache statistics",
		Long: `Report how many keys the cache holds, broken down by bit width. A cache
that holds keys at more than one width usually means the deployment's
batch maximum changed at some point; those partitions never mix.

Example:
  qorder cache --config deploy.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runCacheStats(opts *CacheOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	store, err := keycache.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open key cache", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing key cache", "error", closeErr)
		}
	}()

	counts, err := store.CountByWidth(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read key cache", err)
	}

	total := 0
	widths := make([]int, 0, len(counts))
	for w, n := range counts {
		total += n
		widths = append(widths, w)
	}
	sort.Ints(widths)

	if opts.Format == "json" {
		byWidth := make(map[string]int, len(counts))
		for w, n := range counts {
			byWidth[fmt.Sprintf("%d", w)] = n
		}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(cacheStats{
			Database: cfg.Database,
			Total:    total,
			ByWidth:  byWidth,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d cached keys in %s\n", total, cfg.Database)
	for _, w := range widths {
		fmt.Fprintf(cmd.OutOrStdout(), "  %d-bit: %d\n", w, counts[w])
	}
	return nil
}
