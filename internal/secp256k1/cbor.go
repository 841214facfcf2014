package secp256k1

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MarshalCBOR implements cbor.Marshaler, encoding the same structured hex
// form used for JSON so a Point round-trips identically over either wire
// format.
func (p Point) MarshalCBOR() ([]byte, error) {
	x, y := p.MarshalStruct()
	return cbor.Marshal(pointJSON{X: x, Y: y})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (p *Point) UnmarshalCBOR(data []byte) error {
	var raw pointJSON
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt, err := FromHex(raw.X, raw.Y)
	if err != nil {
		return fmt.Errorf("secp256k1: unmarshal point: %w", err)
	}
	*p = pt
	return nil
}
