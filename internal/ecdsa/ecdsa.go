// Package ecdsa implements signing and verification over the secp256k1
// group, deliberately diverging from textbook ECDSA in two ways that are
// load-bearing for this codebase's consensus rules: the nonce is reduced
// modulo the field prime P (not the group order N), and the message hash is
// computed over the message with the decimal field prime appended, not the
// raw message alone.
package ecdsa

import (
	"fmt"
	"math/big"

	"github.com/djkazic/rblocknode/internal/bigmath"
	"github.com/djkazic/rblocknode/internal/rhash"
	"github.com/djkazic/rblocknode/internal/secp256k1"
)

// Signature holds the (r, s) pair produced by Sign.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Empty returns the zero signature (r = s = 0), the placeholder carried by
// reward transactions, which are never signed.
func Empty() Signature {
	return Signature{R: big.NewInt(0), S: big.NewInt(0)}
}

// Display renders the signature in the consensus-critical "r{hex}_s{hex}"
// form.
func (s Signature) Display() string {
	return fmt.Sprintf("r%s_s%s", s.R.Text(16), s.S.Text(16))
}

func messageDigest(message string) *big.Int {
	digest := rhash.Sum256(message + secp256k1.P.Text(10))
	n, _ := new(big.Int).SetString(digest, 16)
	return n
}

// Sign produces a signature over message under private key d. k, if
// non-nil, fixes the nonce (tests use this for reproducibility); callers in
// production code should pass nil and let Sign draw fresh entropy. Per the
// source algorithm, a degenerate r == 0 or s == 0 causes Sign to redraw a
// fresh nonce and retry rather than returning a degenerate signature.
func Sign(message string, d *big.Int, k *big.Int) (Signature, error) {
	for {
		nonce := k
		if nonce == nil {
			e, err := bigmath.Entropy()
			if err != nil {
				return Signature{}, fmt.Errorf("ecdsa: sign: %w", err)
			}
			nonce = e
		}
		nonce = bigmath.ModFloor(nonce, secp256k1.P)

		p := secp256k1.MultiplyGenerator(nonce)
		r := bigmath.ModFloor(p.X, secp256k1.P)
		if r.Sign() == 0 {
			k = nil
			continue
		}

		m := messageDigest(message)

		dr := new(big.Int).Mul(d, r)
		dr.Add(dr, m)

		kInv := bigmath.ModInverse(secp256k1.N, nonce)
		s := bigmath.ModFloor(new(big.Int).Mul(dr, kInv), secp256k1.N)
		if s.Sign() == 0 {
			k = nil
			continue
		}

		return Signature{R: r, S: s}, nil
	}
}

// Verify reports whether sig is a valid signature over message under
// public key pub.
func Verify(sig Signature, message string, pub secp256k1.Point) bool {
	z := messageDigest(message)

	w := bigmath.ModFloor(bigmath.ModInverse(secp256k1.N, sig.S), secp256k1.N)

	u1 := bigmath.ModFloor(new(big.Int).Mul(z, w), secp256k1.N)
	u2 := bigmath.ModFloor(new(big.Int).Mul(sig.R, w), secp256k1.N)

	p1 := secp256k1.MultiplyGenerator(u1)

	pubPrecomp := secp256k1.Precompute(pub, secp256k1.W)
	p2 := pub.Multiply(u2, secp256k1.W, pubPrecomp)

	res := p1.Add(p2)

	return res.X.Cmp(sig.R) == 0
}
