package crypto

import (
	"bytes"
	"testing"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(i + 1)
	}
	addr := NewAddress(AccountPrefix, raw)

	encoded := addr.String()
	if encoded[:4] != "svt1" {
		t.Fatalf("unexpected encoding prefix: %s", encoded)
	}

	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded.Bytes(), raw) {
		t.Fatalf("round trip mismatch: %x", decoded.Bytes())
	}
	if !decoded.Equal(addr) {
		t.Fatal("decoded address not equal to original")
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "svt1", "not-bech32", "svt1qqqq"} {
		if _, err := DecodeAddress(bad); err == nil {
			t.Fatalf("expected failure for %q", bad)
		}
	}
}

func TestZeroAddress(t *testing.T) {
	var addr Address
	if !addr.IsZero() {
		t.Fatal("zero value should report zero")
	}
	populated := NewAddress(AccountPrefix, make([]byte, 20))
	if !populated.IsZero() {
		t.Fatal("all-zero payload should report zero")
	}
}

func TestKeyDerivesAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	addr := key.PubKey().Address()
	if addr.IsZero() {
		t.Fatal("derived address is zero")
	}
	if addr.Prefix() != AccountPrefix {
		t.Fatalf("unexpected prefix: %s", addr.Prefix())
	}

	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore key: %v", err)
	}
	if !restored.PubKey().Address().Equal(addr) {
		t.Fatal("restored key derives a different address")
	}
}
