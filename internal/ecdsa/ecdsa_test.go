package ecdsa

import (
	"math/big"
	"testing"

	"github.com/djkazic/rblocknode/internal/secp256k1"
)

func fixedKey(t *testing.T) *big.Int {
	t.Helper()
	d, ok := new(big.Int).SetString("78c8ca876adc4094c7ff87980d237de55a1eb4047573ef72366c8c0e0c5553b", 16)
	if !ok {
		t.Fatal("failed to parse fixed private key")
	}
	return d
}

func TestSignVerify_RoundTrip(t *testing.T) {
	d := fixedKey(t)
	pub := secp256k1.MultiplyGenerator(d)

	sig, err := Sign("hello world", d, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(sig, "hello world", pub) {
		t.Error("signature should verify against the correct message and key")
	}
}

func TestVerify_RejectsTamperedMessage(t *testing.T) {
	d := fixedKey(t)
	pub := secp256k1.MultiplyGenerator(d)

	sig, err := Sign("hello world", d, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify(sig, "goodbye world", pub) {
		t.Error("signature should not verify against a different message")
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	d := fixedKey(t)
	other, _ := new(big.Int).SetString("1", 16)
	pub := secp256k1.MultiplyGenerator(other)

	sig, err := Sign("hello world", d, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if Verify(sig, "hello world", pub) {
		t.Error("signature should not verify against an unrelated public key")
	}
}

func TestSign_FixedNonceIsDeterministic(t *testing.T) {
	d := fixedKey(t)
	k := big.NewInt(12345)

	sig1, err := Sign("fixed nonce", d, k)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig2, err := Sign("fixed nonce", d, k)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig1.R.Cmp(sig2.R) != 0 || sig1.S.Cmp(sig2.S) != 0 {
		t.Error("signing with a fixed nonce should be deterministic")
	}
}

func TestSign_RandomNonceVaries(t *testing.T) {
	d := fixedKey(t)
	sig1, err := Sign("hello world", d, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	sig2, err := Sign("hello world", d, nil)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig1.R.Cmp(sig2.R) == 0 && sig1.S.Cmp(sig2.S) == 0 {
		t.Error("two independently drawn nonces produced identical signatures (collision or broken entropy)")
	}
}

func TestDisplay_Format(t *testing.T) {
	sig := Signature{R: big.NewInt(10), S: big.NewInt(11)}
	if got, want := sig.Display(), "ra_sb"; got != want {
		t.Errorf("Display() = %s, want %s", got, want)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	sig := Signature{R: big.NewInt(0xdead), S: big.NewInt(0xbeef)}
	data, err := sig.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var out Signature
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if out.R.Cmp(sig.R) != 0 || out.S.Cmp(sig.S) != 0 {
		t.Error("JSON round trip did not preserve signature")
	}
}
