package entropy

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the ANU quantum numbers API endpoint.
const DefaultBaseURL = "https://api.quantumnumbers.anu.edu.au"

// maxBytesPerCall is the upstream API's payload ceiling per request.
// Larger draws are split into sequential calls of at most this size.
const maxBytesPerCall = 1024

// defaultTimeout bounds each upstream call. One attempt only; a timeout
// is fatal to the run.
const defaultTimeout = 10 * time.Second

// Quantum draws keys from a quantum randomness HTTP API.
//
// The API returns raw bytes (hex8 encoding). Quantum computes the total
// byte requirement up front, issues ceil(totalBytes/1024) sequential calls,
// concatenates the byte streams in call order, and interprets the result as
// one big-endian bit string: key i occupies bits [i*bitsPerKey, (i+1)*bitsPerKey).
//
// Every call asserts the API's success flag and that the returned byte
// count exactly matches the request. Any mismatch is fatal, not retried.
type Quantum struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQuantum creates a quantum entropy source.
//
// baseURL defaults to DefaultBaseURL when empty. client defaults to an
// http.Client with a 10-second timeout when nil. The API key is checked at
// Draw time so that a missing credential surfaces as ErrMissingAPIKey only
// when the quantum path is actually exercised.
func NewQuantum(baseURL, apiKey string, client *http.Client) *Quantum {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Quantum{baseURL: baseURL, apiKey: apiKey, client: client}
}

// anuResponse is the upstream API's JSON envelope for hex8 draws.
type anuResponse struct {
	Success bool     `json:"success"`
	Data    []string `json:"data"`
}

// Draw implements Source.
func (q *Quantum) Draw(ctx context.Context, count, bitsPerKey int) ([]uint64, error) {
	if count == 0 {
		return []uint64{}, nil
	}
	if count < 0 {
		return nil, fmt.Errorf("entropy: negative key count %d", count)
	}
	if bitsPerKey < 1 || bitsPerKey > MaxBitsPerKey {
		return nil, fmt.Errorf("entropy: bits per key %d out of range [1, %d]", bitsPerKey, MaxBitsPerKey)
	}
	if q.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	totalBits := count * bitsPerKey
	totalBytes := (totalBits + 7) / 8
	calls := (totalBytes + maxBytesPerCall - 1) / maxBytesPerCall

	slog.Debug("drawing quantum entropy",
		"keys", count, "bits_per_key", bitsPerKey,
		"total_bytes", totalBytes, "api_calls", calls)

	buf := make([]byte, 0, totalBytes)
	for call := 1; call <= calls; call++ {
		remaining := totalBytes - len(buf)
		request := remaining
		if request > maxBytesPerCall {
			request = maxBytesPerCall
		}

		chunk, err := q.fetch(ctx, call, request)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}

	return sliceKeys(buf, count, bitsPerKey), nil
}

// fetch performs one upstream call for length bytes and returns them decoded.
func (q *Quantum) fetch(ctx context.Context, call, length int) ([]byte, error) {
	url := fmt.Sprintf("%s?length=%d&type=hex8&size=1", q.baseURL, length)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("entropy: build request: %w", err)
	}
	req.Header.Set("x-api-key", q.apiKey)

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Call: call, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Call: call, Status: resp.StatusCode, Reason: "non-OK response"}
	}

	var body anuResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &UpstreamError{Call: call, Status: resp.StatusCode, Reason: fmt.Sprintf("decode response: %v", err)}
	}
	if !body.Success {
		return nil, &UpstreamError{Call: call, Status: resp.StatusCode, Reason: "success flag false"}
	}
	if len(body.Data) != length {
		return nil, &UpstreamError{
			Call:   call,
			Status: resp.StatusCode,
			Reason: fmt.Sprintf("returned %d bytes, expected %d", len(body.Data), length),
		}
	}

	// Each data element is one byte as two hex digits.
	var sb strings.Builder
	sb.Grow(length * 2)
	for _, b := range body.Data {
		if len(b) == 1 {
			sb.WriteByte('0')
		}
		sb.WriteString(strings.ToLower(b))
	}
	chunk, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, &UpstreamError{Call: call, Status: resp.StatusCode, Reason: fmt.Sprintf("non-hex payload: %v", err)}
	}
	return chunk, nil
}

// sliceKeys reads count big-endian bit windows of width bitsPerKey from buf.
// The caller guarantees buf holds at least count*bitsPerKey bits.
func sliceKeys(buf []byte, count, bitsPerKey int) []uint64 {
	keys := make([]uint64, count)
	for i := range keys {
		keys[i] = readBits(buf, i*bitsPerKey, bitsPerKey)
	}
	return keys
}

// readBits returns width bits of buf starting at bit offset start,
// interpreted as a big-endian unsigned integer. Bit 0 is the most
// significant bit of buf[0].
func readBits(buf []byte, start, width int) uint64 {
	var v uint64
	for i := start; i < start+width; i++ {
		v <<= 1
		if buf[i/8]&(1<<uint(7-i%8)) != 0 {
			v |= 1
		}
	}
	return v
}
