// Package entropy provides interchangeable sources of fixed-width random keys.
//
// Two production sources exist:
//   - Quantum: draws raw bytes from an ANU-style quantum randomness HTTP API,
//     chunked to respect the API's per-call payload ceiling, and slices the
//     concatenated byte stream into big-endian bit windows.
//   - Pseudo: draws from a local injectable generator. No network, no cache.
//
// Fixed is a deterministic stub for tests and harness scenarios.
//
// All sources return keys in request order: key i of a Draw call corresponds
// to position i of whatever the caller is keying. Sources never reorder.
package entropy
