// Package bigmath provides the arbitrary-precision modular arithmetic the
// curve and signature packages are built on: Euclidean reduction, modular
// inverse, secure scalar entropy, and width-w non-adjacent form recoding.
package bigmath

import (
	"crypto/rand"
	"math/big"
)

// ModFloor returns x mod m in the Euclidean sense, i.e. always in [0, m)
// even when x is negative. big.Int.Mod already does this for a positive
// modulus, but we keep the helper so callers read like the source math.
func ModFloor(x, m *big.Int) *big.Int {
	r := new(big.Int).Mod(x, m)
	if r.Sign() < 0 {
		r.Add(r, m)
	}
	return r
}

// ModInverse returns the modular multiplicative inverse of b modulo m using
// the extended Euclidean algorithm, expressed iteratively instead of the
// source's tail-recursive helper. Returns 0 when m == 0, b == 0, or
// gcd(m, b) != 1 — mirroring the source's sentinel-zero contract rather than
// panicking on a non-invertible input.
func ModInverse(m, b *big.Int) *big.Int {
	if m.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(0)
	}

	bb := ModFloor(b, m)
	if bb.Sign() == 0 {
		return big.NewInt(0)
	}

	oldR, r := new(big.Int).Set(m), bb
	oldT, t := big.NewInt(0), big.NewInt(1)

	for r.Sign() != 0 {
		q := new(big.Int)
		rem := new(big.Int)
		q.QuoRem(oldR, r, rem)

		oldR, r = r, rem

		newT := new(big.Int).Mul(q, t)
		newT.Sub(oldT, newT)
		oldT, t = t, newT
	}

	// oldR now holds gcd(m, b); inverse exists only when it is 1.
	if oldR.CmpAbs(big.NewInt(1)) != 0 {
		return big.NewInt(0)
	}

	return ModFloor(oldT, m)
}

// Entropy draws 256 uniformly random bits from a cryptographically secure
// source and returns them as a nonnegative scalar.
func Entropy() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(buf), nil
}

// WNAF computes the width-w non-adjacent form of n. The result holds
// coefficients in {0, ±1, ±3, ..., ±(2^(w-1)-1)} (nonzero entries always
// odd), ordered least-significant digit first; consumers such as
// secp256k1's Multiply walk it in reverse, most significant digit first.
// n == 0 yields an empty slice.
func WNAF(w uint, n *big.Int) []int8 {
	if n.Sign() == 0 {
		return nil
	}

	modulus := new(big.Int).Lsh(big.NewInt(1), w)
	half := new(big.Int).Lsh(big.NewInt(1), w-1)
	halfMinusOne := new(big.Int).Sub(half, big.NewInt(1))

	rem := new(big.Int)
	cur := new(big.Int).Set(n)

	var out []int8
	for cur.Sign() > 0 {
		if cur.Bit(0) == 1 {
			rem.Mod(cur, modulus)

			var digit int64
			if rem.Cmp(halfMinusOne) > 0 {
				digit = rem.Int64() - modulus.Int64()
			} else {
				digit = rem.Int64()
			}
			out = append(out, int8(digit))
			cur.Sub(cur, big.NewInt(digit))
		} else {
			out = append(out, 0)
		}
		cur.Rsh(cur, 1)
	}

	return out
}
