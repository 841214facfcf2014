package ecdsa

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

type signatureWire struct {
	R string `json:"r"`
	S string `json:"s"`
}

func (s Signature) wire() signatureWire {
	return signatureWire{R: s.R.Text(16), S: s.S.Text(16)}
}

func fromWire(w signatureWire) (Signature, error) {
	r, ok := new(big.Int).SetString(w.R, 16)
	if !ok {
		return Signature{}, fmt.Errorf("ecdsa: invalid r hex %q", w.R)
	}
	s, ok := new(big.Int).SetString(w.S, 16)
	if !ok {
		return Signature{}, fmt.Errorf("ecdsa: invalid s hex %q", w.S)
	}
	return Signature{R: r, S: s}, nil
}

// MarshalJSON implements json.Marshaler using lowercase hex r/s fields.
func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.wire())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Signature) UnmarshalJSON(data []byte) error {
	var w signatureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	sig, err := fromWire(w)
	if err != nil {
		return err
	}
	*s = sig
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (s Signature) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(s.wire())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *Signature) UnmarshalCBOR(data []byte) error {
	var w signatureWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	sig, err := fromWire(w)
	if err != nil {
		return err
	}
	*s = sig
	return nil
}
