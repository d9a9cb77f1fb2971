package entropy

import "context"

// MaxBitsPerKey is the widest key a Source can produce.
// Keys are returned as uint64, so wider windows cannot be represented.
const MaxBitsPerKey = 64

// Source produces a requested number of uniformly-distributed unsigned
// integers, each bitsPerKey bits wide.
//
// Implementations must return exactly count keys in request order, each in
// [0, 2^bitsPerKey). A count of zero returns an empty slice without any
// external call. Errors are fatal to the caller; sources do not retry.
type Source interface {
	Draw(ctx context.Context, count, bitsPerKey int) ([]uint64, error)
}
