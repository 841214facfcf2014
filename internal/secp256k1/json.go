package secp256k1

import (
	"encoding/json"
	"fmt"
)

// pointJSON mirrors the structured wire form: lowercase hex x/y fields, no
// "0x" prefix, no padding.
type pointJSON struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// MarshalJSON implements json.Marshaler using the structured hex form.
func (p Point) MarshalJSON() ([]byte, error) {
	x, y := p.MarshalStruct()
	return json.Marshal(pointJSON{X: x, Y: y})
}

// UnmarshalJSON implements json.Unmarshaler using the structured hex form.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt, err := FromHex(raw.X, raw.Y)
	if err != nil {
		return fmt.Errorf("secp256k1: unmarshal point: %w", err)
	}
	*p = pt
	return nil
}
