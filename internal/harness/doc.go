// Package harness runs YAML-defined assignment scenarios end to end.
//
// A scenario describes a batch of questions, the stubbed entropy sequence,
// and the expected outcome (order, keys, or a failure kind). The harness
// wires the engine with a fixed entropy source, an in-memory cache, and a
// fixed run token, so every scenario is fully deterministic and rendered
// documents can be compared against golden files.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
