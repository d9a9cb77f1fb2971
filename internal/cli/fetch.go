package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qorder/internal/config"
	"github.com/roach88/qorder/internal/feed"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Config      string
	CachedPages bool
}

// fetchedComment is the JSON payload for one fetched question.
type fetchedComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	URL    string `json:"url"`
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the post's questions without assigning keys",
		Long: `Fetch every comment page for the configured post and list the questions
found, in API order. Useful for checking what a run would see before
drawing any entropy.

Example:
  qorder fetch --config deploy.cue
  qorder fetch --config deploy.cue --cached-pages --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file (required)")
	cmd.Flags().BoolVar(&opts.CachedPages, "cached-pages", false, "serve comment pages from the page cache when present")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	creds := config.CredentialsFromEnv()

	comments, err := feed.NewClient(feed.Config{
		APIURL:    cfg.APIURL,
		PostURL:   cfg.PostURL,
		Cookie:    creds.FeedCookie,
		CacheDir:  cfg.PageCacheDir,
		ReadCache: opts.CachedPages,
	}).Comments(ctx)
	if err != nil {
		return WrapExitError(ExitRunFailure, "failed to fetch comments", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Format == "json" {
		out := make([]fetchedComment, len(comments))
		for i, c := range comments {
			out[i] = fetchedComment{Author: c.Author, Text: c.Text, URL: c.URL}
		}
		return formatter.Success(out)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d questions\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", c.Author, c.Text)
	}
	return nil
}
