package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/qorder/internal/config"
	"github.com/roach88/qorder/internal/engine"
	"github.com/roach88/qorder/internal/entropy"
	"github.com/roach88/qorder/internal/feed"
	"github.com/roach88/qorder/internal/gist"
	"github.com/roach88/qorder/internal/keycache"
	"github.com/roach88/qorder/internal/render"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config      string
	Quantum     bool
	Gist        bool
	CachedPages bool
	Out         string

	// Entropy overrides the quantum entropy source (for testing).
	// If nil, an ANU API client is built from config and credentials.
	Entropy entropy.Source

	// Tokens overrides the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens engine.RunTokenGenerator

	// Now overrides the rendered timestamp (for testing). Zero means
	// time.Now.
	Now time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch questions, assign keys, and render the table",
		Long: `Run the full pipeline: fetch the post's comments, assign each distinct
question a fixed-width random key, sort by key, and render a Markdown
table.

Quantum mode (the default) draws keys from the ANU quantum randomness
API and persists them in the key cache, so reruns against the same post
reuse earlier keys. Pass --quantum=false to key the batch locally with
a pseudorandom generator instead; pseudo runs never touch the cache.

Example:
  qorder run --config deploy.cue
  qorder run --config deploy.cue --quantum=false --out questions.md
  qorder run --config deploy.cue --gist`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file (required)")
	cmd.Flags().BoolVar(&opts.Quantum, "quantum", true, "draw keys from the quantum entropy API")
	cmd.Flags().BoolVar(&opts.Gist, "gist", false, "publish the rendered table to a GitHub gist")
	cmd.Flags().BoolVar(&opts.CachedPages, "cached-pages", false, "serve comment pages from the page cache when present")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the rendered table to a file instead of stdout")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runPipeline(opts *RunOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	creds := config.CredentialsFromEnv()

	slog.Info("fetching questions", "post", cfg.PostURL)
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

	store, err := keycache.Open(cfg.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open key cache", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing key cache", "error", closeErr)
		}
	}()

	quantum := opts.Entropy
	if quantum == nil {
		quantum = entropy.NewQuantum(cfg.ANUURL, creds.ANUKey, nil)
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = engine.UUIDv7Generator{}
	}
	eng := engine.New(store, quantum, entropy.NewPseudo(nil), cfg.MaxQuestions, tokens)

	items := make([]engine.Item, len(comments))
	for i, c := range comments {
		items[i] = engine.Item{Text: c.Text, Author: c.Author, SourceURL: c.URL}
	}

	res, err := eng.Assign(ctx, items, opts.Quantum)
	if err != nil {
		return wrapAssignError(err)
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	doc := render.Document(res, render.Options{
		PostURL: cfg.PostURL,
		RepoURL: cfg.RepoURL,
		Now:     now,
	})

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, []byte(doc), 0o644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		slog.Info("wrote table", "path", opts.Out, "questions", len(res.Items))
	} else {
		fmt.Fprint(cmd.OutOrStdout(), doc)
	}

	if opts.Gist {
		url, err := publishGist(ctx, store, cfg, creds, res.Quantum, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Published: %s\n", url)
	}

	return nil
}

// publishGist creates a new private gist for the post's table, or updates
// the one recorded from an earlier run.
func publishGist(ctx context.Context, store *keycache.Store, cfg *config.Config, creds config.Credentials, quantum bool, doc string) (string, error) {
	client := gist.NewClient(cfg.GistAPIURL, creds.GistToken, &http.Client{Timeout: 30 * time.Second})

	const filename = "questions.md"
	description := render.Title(quantum)

	existing, err := store.GistURL(ctx, cfg.PostURL)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to look up gist URL", err)
	}

	var url string
	if existing != "" {
		slog.Info("updating gist", "url", existing)
		url, err = client.Update(ctx, existing, filename, description, doc)
	} else {
		slog.Info("creating gist")
		url, err = client.Create(ctx, filename, description, doc)
	}
	if err != nil {
		if errors.Is(err, gist.ErrMissingToken) {
			return "", WrapExitError(ExitCommandError, "cannot publish gist", err)
		}
		return "", WrapExitError(ExitRunFailure, "gist publish failed", err)
	}

	if err := store.PutGistURL(ctx, cfg.PostURL, url); err != nil {
		// Non-fatal: the gist exists, the next run just creates a new one.
		slog.Warn("could not record gist URL", "error", err)
	}
	return url, nil
}

// wrapAssignError maps assignment failures onto exit codes. Missing
// credentials are operator mistakes; everything else is a run failure.
func wrapAssignError(err error) error {
	switch {
	case errors.Is(err, entropy.ErrMissingAPIKey):
		return WrapExitError(ExitCommandError, "quantum mode requires an API key", err)
	case engine.IsCapacityError(err):
		return WrapExitError(ExitRunFailure, "batch over capacity", err)
	case engine.IsCollisionError(err):
		return WrapExitError(ExitRunFailure, "key collision", err)
	default:
		return WrapExitError(ExitRunFailure, "assignment failed", err)
	}
}
