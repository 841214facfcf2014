// Package secp256k1 implements affine point arithmetic over the secp256k1
// short Weierstrass curve y^2 = x^3 + 7 (mod P), plus width-w NAF scalar
// multiplication with a lazily-initialized, process-wide table of
// precomputed multiples of the generator.
package secp256k1

import "math/big"

// W is the w-NAF window width used throughout the codebase.
const W = 4

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("secp256k1: invalid hex constant " + s)
	}
	return n
}

var (
	// P is the field prime.
	P = mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEFFFFFC2F")
	// N is the group order.
	N = mustHex("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141")

	gx = mustHex("79BE667EF9DCBBAC55A06295CE870B07029BFCDB2DCE28D959F2815B16F81798")
	gy = mustHex("483ADA7726A3C4655DA4FBFC0E1108A8FD17B448A68554199C47D08FFB10D4B8")

	// G is the generator point.
	G = Point{X: new(big.Int).Set(gx), Y: new(big.Int).Set(gy)}
)
