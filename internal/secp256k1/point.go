package secp256k1

import (
	"fmt"
	"math/big"

	"github.com/djkazic/rblocknode/internal/bigmath"
)

// Point is an affine coordinate pair on the curve. (0, 0) is the
// distinguished identity element — no real curve point has x = 0 in this
// field, so the sentinel never collides with a legitimate key.
type Point struct {
	X *big.Int
	Y *big.Int
}

// Identity returns the distinguished identity point (0, 0).
func Identity() Point {
	return Point{X: big.NewInt(0), Y: big.NewInt(0)}
}

// IsIdentity reports whether p is the identity sentinel.
func (p Point) IsIdentity() bool {
	return p.X.Sign() == 0 && p.Y.Sign() == 0
}

// Equal reports structural equality on (x, y).
func (p Point) Equal(q Point) bool {
	return p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0
}

// Negate returns (x, -y mod P).
func (p Point) Negate() Point {
	return Point{X: new(big.Int).Set(p.X), Y: bigmath.ModFloor(new(big.Int).Neg(p.Y), P)}
}

// Double returns 2*p.
func (p Point) Double() Point {
	if p.IsIdentity() {
		return Identity()
	}

	// lambda = (3*x^2) * inv(2*y, p) mod p
	threeXSq := new(big.Int).Mul(p.X, p.X)
	threeXSq.Mul(threeXSq, big.NewInt(3))

	twoY := new(big.Int).Lsh(p.Y, 1)
	inv2y := bigmath.ModInverse(P, twoY)

	lambda := bigmath.ModFloor(new(big.Int).Mul(threeXSq, inv2y), P)

	rx := new(big.Int).Mul(lambda, lambda)
	rx.Sub(rx, p.X)
	rx.Sub(rx, p.X)
	rx = bigmath.ModFloor(rx, P)

	ry := new(big.Int).Sub(p.X, rx)
	ry.Mul(ry, lambda)
	ry.Sub(ry, p.Y)
	ry = bigmath.ModFloor(ry, P)

	return Point{X: rx, Y: ry}
}

// Add returns p+q, handling the identity and doubling special cases in the
// order the source checks them.
func (p Point) Add(q Point) Point {
	negQY := bigmath.ModFloor(new(big.Int).Neg(q.Y), P)

	switch {
	case p.X.Cmp(q.X) == 0 && p.Y.Cmp(negQY) == 0:
		// vertical line: p == -q
		return Identity()
	case p.X.Cmp(q.X) == 0 && p.Y.Cmp(q.Y) == 0:
		return p.Double()
	case p.IsIdentity():
		return q
	case q.IsIdentity():
		return p
	default:
		num := new(big.Int).Sub(q.Y, p.Y)
		den := new(big.Int).Sub(q.X, p.X)
		lambda := bigmath.ModFloor(new(big.Int).Mul(num, bigmath.ModInverse(P, den)), P)

		rx := new(big.Int).Mul(lambda, lambda)
		rx.Sub(rx, q.X)
		rx.Sub(rx, p.X)
		rx = bigmath.ModFloor(rx, P)

		ry := new(big.Int).Sub(p.X, rx)
		ry.Mul(ry, lambda)
		ry.Sub(ry, p.Y)
		ry = bigmath.ModFloor(ry, P)

		return Point{X: rx, Y: ry}
	}
}

// Precompute builds the odd-multiple table of length 2^(w-1): index j holds
// (2j+1)*p. p[0] = p, then each subsequent entry adds 2*p onto the previous.
func Precompute(p Point, w uint) []Point {
	table := make([]Point, 1<<(w-1))
	table[0] = p
	twoP := p.Double()
	for j := 1; j < len(table); j++ {
		table[j] = twoP.Add(table[j-1])
	}
	return table
}

// Multiply computes k*p via width-w NAF scalar multiplication, using a
// caller-supplied table of odd multiples of p (precomp[i] must equal
// (2i+1)*p).
func (p Point) Multiply(k *big.Int, w uint, precomp []Point) Point {
	digits := bigmath.WNAF(w, k)

	q := Identity()
	for i := len(digits) - 1; i >= 0; i-- {
		q = q.Double()
		d := digits[i]
		switch {
		case d > 0:
			q = q.Add(precomp[(d-1)/2])
		case d < 0:
			idx := (-d - 1) / 2
			q = q.Add(precomp[idx].Negate())
		}
	}
	return q
}

// Display renders the point in the consensus-critical "x{hex}_y{hex}" form
// used to build signed/hashed messages. Stability of this exact string is
// load-bearing for signature verification.
func (p Point) Display() string {
	return fmt.Sprintf("x%s_y%s", p.X.Text(16), p.Y.Text(16))
}

// Compress renders the informational SEC1-style compressed form: a 02/03
// parity prefix followed by x zero-padded to 64 hex characters. Not
// required for consensus.
func (p Point) Compress() string {
	prefix := "02"
	if p.Y.Bit(0) == 1 {
		prefix = "03"
	}
	xhex := p.X.Text(16)
	if len(xhex) < 64 {
		xhex = zeroPad(xhex, 64)
	}
	return prefix + xhex
}

func zeroPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// MarshalStruct returns the structured (x, y) hex pair used by JSON/binary
// serialization.
func (p Point) MarshalStruct() (x, y string) {
	return p.X.Text(16), p.Y.Text(16)
}

// FromHex reconstructs a Point from lowercase hex x/y strings.
func FromHex(x, y string) (Point, error) {
	xi, ok := new(big.Int).SetString(x, 16)
	if !ok {
		return Point{}, fmt.Errorf("secp256k1: invalid x hex %q", x)
	}
	yi, ok := new(big.Int).SetString(y, 16)
	if !ok {
		return Point{}, fmt.Errorf("secp256k1: invalid y hex %q", y)
	}
	return Point{X: xi, Y: yi}, nil
}
