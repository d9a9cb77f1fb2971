package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qorder/internal/engine"
	"github.com/roach88/qorder/internal/entropy"
	"github.com/roach88/qorder/internal/render"
	"github.com/roach88/qorder/internal/testutil"
)

// renderOpts pins the rendered document's variable parts so scenario
// output is byte-stable for golden comparison.
var renderOpts = render.Options{
	PostURL: "https://example.com/posts/1",
	RepoURL: "https://github.com/roach88/qorder",
	Now:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
}

// RunResult captures everything a scenario run produced.
type RunResult struct {
	// First is the primary run's result.
	First *engine.Result

	// Second is the rerun's result, when the scenario requests one.
	Second *engine.Result

	// SecondDraws counts entropy calls made by the rerun.
	SecondDraws int

	// Document is the first run rendered as markdown.
	Document string

	// Cache is the scenario's cache, for post-run inspection.
	Cache *testutil.MemCache
}

// Run executes a scenario and returns its result, or the engine's error
// for scenarios that expect failure.
func Run(sc *Scenario) (*RunResult, error) {
	maxBatch := sc.MaxQuestions
	if maxBatch == 0 {
		maxBatch = 500
	}

	cache := testutil.NewMemCache()
	bitWidth := engine.BitWidth(maxBatch)
	for _, seed := range sc.SeedCache {
		sub := cache.Entries[bitWidth]
		if sub == nil {
			sub = make(map[string]uint64)
			cache.Entries[bitWidth] = sub
		}
		sub[engine.Fingerprint(seed.Text)] = seed.Key
	}

	items := make([]engine.Item, len(sc.Items))
	for i, it := range sc.Items {
		items[i] = engine.Item{Text: it.Text, Author: it.Author}
	}

	eng := engine.New(cache, entropy.NewFixed(sc.Keys...), entropy.NewPseudo(nil),
		maxBatch, engine.NewFixedTokenGenerator(sc.Name))

	first, err := eng.Assign(context.Background(), items, !sc.Pseudo)
	if err != nil {
		return nil, err
	}

	rr := &RunResult{
		First:    first,
		Document: render.Document(first, renderOpts),
		Cache:    cache,
	}

	if sc.Rerun {
		empty := entropy.NewFixed()
		eng2 := engine.New(cache, empty, entropy.NewPseudo(nil),
			maxBatch, engine.NewFixedTokenGenerator(sc.Name))
		second, err := eng2.Assign(context.Background(), items, !sc.Pseudo)
		if err != nil {
			return nil, err
		}
		rr.Second = second
		rr.SecondDraws = len(empty.Calls)
	}

	return rr, nil
}

// Verify asserts a scenario's expectations against its run outcome.
func Verify(t *testing.T, sc *Scenario, rr *RunResult, err error) {
	t.Helper()

	if sc.ExpectError != "" {
		require.Error(t, err, "scenario %s expects a %s failure", sc.Name, sc.ExpectError)
		require.Nil(t, rr, "failed runs must produce no output")
		switch sc.ExpectError {
		case "capacity":
			assert.True(t, engine.IsCapacityError(err), "want capacity error, got %v", err)
		case "collision":
			assert.True(t, engine.IsCollisionError(err), "want collision error, got %v", err)
		}
		return
	}

	require.NoError(t, err, "scenario %s", sc.Name)
	require.Len(t, rr.First.Items, len(sc.Items), "output must be a permutation of the input")

	if len(sc.ExpectOrder) > 0 {
		texts := make([]string, len(rr.First.Items))
		for i, ai := range rr.First.Items {
			texts[i] = ai.Item.Text
		}
		assert.Equal(t, sc.ExpectOrder, texts)
	}
	if len(sc.ExpectKeys) > 0 {
		keys := make([]uint64, len(rr.First.Items))
		for i, ai := range rr.First.Items {
			keys[i] = ai.Key
		}
		assert.Equal(t, sc.ExpectKeys, keys)
	}
	if sc.Pseudo {
		assert.Zero(t, rr.Cache.Loads, "pseudo mode must not read the cache")
		assert.Zero(t, rr.Cache.Saves, "pseudo mode must not write the cache")
	}
	if sc.Rerun {
		assert.Equal(t, rr.First.Items, rr.Second.Items, "rerun must reproduce the first ordering")
		assert.Zero(t, rr.SecondDraws, "rerun must resolve entirely from cache")
	}
}
