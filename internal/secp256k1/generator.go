package secp256k1

import (
	"math/big"
	"sync"
)

var (
	genTableOnce sync.Once
	genTable     []Point
)

// GeneratorTable returns the process-wide precomputed odd-multiple table for
// G at width W. It is built once, lazily, on first use and is read-only
// thereafter, so concurrent callers never need to coordinate beyond the
// one-time build.
func GeneratorTable() []Point {
	genTableOnce.Do(func() {
		genTable = Precompute(G, W)
	})
	return genTable
}

// MultiplyGenerator computes k*G using the shared generator table. This is
// the hot path for deriving a public key from a private scalar.
func MultiplyGenerator(k *big.Int) Point {
	return G.Multiply(k, W, GeneratorTable())
}
