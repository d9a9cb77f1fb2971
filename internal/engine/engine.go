package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/qorder/internal/entropy"
)

// Engine orchestrates one assignment run: fingerprint, cache lookup,
// entropy draw, collision check, sort.
//
// Engine is single-threaded by design. One run performs strictly
// sequential work; callers wanting concurrent runs need external mutual
// exclusion around the cache (an acknowledged gap, see keycache docs).
type Engine struct {
	cache    Cache
	quantum  entropy.Source
	pseudo   entropy.Source
	maxBatch int
	tokens   RunTokenGenerator
}

// New creates an engine for a deployment supporting at most maxBatch items
// per run.
//
// cache may be nil only if quantum mode is never used. tokens defaults to
// UUIDv7Generator when nil.
func New(cache Cache, quantum, pseudo entropy.Source, maxBatch int, tokens RunTokenGenerator) *Engine {
	if tokens == nil {
		tokens = UUIDv7Generator{}
	}
	return &Engine{
		cache:    cache,
		quantum:  quantum,
		pseudo:   pseudo,
		maxBatch: maxBatch,
		tokens:   tokens,
	}
}

// Assign keys every item and returns the batch sorted ascending by key.
//
// Quantum mode consults the cache first and draws entropy only for
// fingerprints seen for the first time at this deployment's bit width, so
// re-runs are idempotent for previously seen items. Pseudo mode draws one
// local key per item and never reads or writes the cache.
//
// Assignment is all-or-nothing: any fatal error (capacity, configuration,
// upstream, collision) returns before any output is produced. Cache I/O
// failures are warnings only.
func (e *Engine) Assign(ctx context.Context, items []Item, useQuantum bool) (*Result, error) {
	bitWidth := BitWidth(e.maxBatch)
	token := e.tokens.Generate()
	log := slog.With("run", token, "bit_width", bitWidth, "quantum", useQuantum)

	if len(items) >= e.maxBatch {
		return nil, &CapacityError{Count: len(items), Max: e.maxBatch}
	}
	if len(items) == 0 {
		log.Info("empty batch, nothing to assign")
		return &Result{RunToken: token, Items: []AssignedItem{}, BitWidth: bitWidth, Quantum: useQuantum}, nil
	}

	fingerprints := make([]string, len(items))
	for i, item := range items {
		fingerprints[i] = Fingerprint(item.Text)
	}

	var (
		keys []uint64
		err  error
	)
	if useQuantum {
		keys, err = e.quantumKeys(ctx, log, fingerprints, bitWidth)
	} else {
		keys, err = e.pseudo.Draw(ctx, len(items), bitWidth)
	}
	if err != nil {
		return nil, err
	}
	if len(keys) != len(items) {
		return nil, fmt.Errorf("assign: resolved %d keys for %d items", len(keys), len(items))
	}

	if err := checkCollisions(keys, fingerprints, bitWidth); err != nil {
		return nil, err
	}

	assigned := make([]AssignedItem, len(items))
	for i, item := range items {
		assigned[i] = AssignedItem{Key: keys[i], Item: item}
	}
	sort.SliceStable(assigned, func(i, j int) bool {
		return assigned[i].Key < assigned[j].Key
	})

	log.Info("assignment complete", "items", len(assigned))
	return &Result{RunToken: token, Items: assigned, BitWidth: bitWidth, Quantum: useQuantum}, nil
}

// quantumKeys resolves one key per fingerprint through the cache, drawing
// entropy only for fingerprints not yet keyed at this bit width.
func (e *Engine) quantumKeys(ctx context.Context, log *slog.Logger, fingerprints []string, bitWidth int) ([]uint64, error) {
	known := make(map[string]uint64)
	if cache, err := e.cache.Load(ctx); err != nil {
		// Non-fatal: degrade to an empty cache and re-draw everything.
		log.Warn("could not read key cache, proceeding without it", "error", err)
	} else if sub := cache[bitWidth]; sub != nil {
		known = sub
	}

	// New fingerprints in first-seen order. Duplicate texts fold into one
	// entry here and are caught later by the collision check.
	var fresh []string
	seen := make(map[string]bool)
	for _, fp := range fingerprints {
		if _, ok := known[fp]; ok || seen[fp] {
			continue
		}
		seen[fp] = true
		fresh = append(fresh, fp)
	}

	if len(fresh) > 0 {
		log.Info("drawing keys for new questions", "new", len(fresh), "cached", len(fingerprints)-len(fresh))
		drawn, err := e.quantum.Draw(ctx, len(fresh), bitWidth)
		if err != nil {
			return nil, err
		}
		entries := make(map[string]uint64, len(fresh))
		for i, fp := range fresh {
			entries[fp] = drawn[i]
			known[fp] = drawn[i]
		}
		if err := e.cache.Save(ctx, bitWidth, entries); err != nil {
			// Non-fatal: the run continues, keys are re-drawn next time.
			log.Warn("could not persist key cache", "error", err)
		}
	} else {
		log.Info("all questions already keyed in cache")
	}

	keys := make([]uint64, len(fingerprints))
	for i, fp := range fingerprints {
		key, ok := known[fp]
		if !ok {
			return nil, fmt.Errorf("assign: fingerprint %s unresolved after draw", fp)
		}
		keys[i] = key
	}
	return keys, nil
}

// checkCollisions verifies all keys in the batch are pairwise distinct.
func checkCollisions(keys []uint64, fingerprints []string, bitWidth int) error {
	byKey := make(map[uint64][]string, len(keys))
	for i, k := range keys {
		byKey[k] = append(byKey[k], fingerprints[i])
	}
	for k, fps := range byKey {
		if len(fps) > 1 {
			return &CollisionError{Key: k, BitWidth: bitWidth, Fingerprints: fps}
		}
	}
	return nil
}
