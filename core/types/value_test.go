package types

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestValueAddSubOverflow(t *testing.T) {
	max := MustValue("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	if _, err := max.Add(NewValue(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := NewValue(1).Sub(NewValue(2)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}

	sum, err := NewValue(2).Add(NewValue(3))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.Cmp(NewValue(5)) != 0 {
		t.Fatalf("unexpected sum: %s", sum)
	}
}

func TestValueMulDivFloorsAndKeepsFullWidth(t *testing.T) {
	// 7*3/2 floors to 10.
	got, err := NewValue(7).MulDiv(NewValue(3), NewValue(2))
	if err != nil {
		t.Fatalf("muldiv: %v", err)
	}
	if got.Cmp(NewValue(10)) != 0 {
		t.Fatalf("unexpected floor result: %s", got)
	}

	// The intermediate product of two near-max operands exceeds 256 bits but
	// must not wrap when the final quotient fits.
	big2_200 := MustValue(new(big.Int).Lsh(big.NewInt(1), 200).String())
	big2_100 := MustValue(new(big.Int).Lsh(big.NewInt(1), 100).String())
	got, err = big2_200.MulDiv(big2_100, big2_100)
	if err != nil {
		t.Fatalf("wide muldiv: %v", err)
	}
	if got.Cmp(big2_200) != 0 {
		t.Fatalf("unexpected wide result: %s", got)
	}

	if _, err := NewValue(1).MulDiv(NewValue(1), Value{}); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected divide-by-zero failure, got %v", err)
	}
	if _, err := big2_200.MulDiv(big2_200, NewValue(1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected quotient overflow, got %v", err)
	}
}

func TestValueFromString(t *testing.T) {
	v, err := ValueFromString("666666666666666666")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v.String() != "666666666666666666" {
		t.Fatalf("unexpected render: %s", v)
	}

	for _, bad := range []string{"", "-1", "1.5", "0x10", "abc"} {
		if _, err := ValueFromString(bad); err == nil {
			t.Fatalf("expected parse failure for %q", bad)
		}
	}
}

func TestValueFromBig(t *testing.T) {
	if _, err := ValueFromBig(big.NewInt(-1)); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected rejection of negative input, got %v", err)
	}
	v, err := ValueFromBig(big.NewInt(42))
	if err != nil {
		t.Fatalf("from big: %v", err)
	}
	if v.Big().Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("round trip mismatch: %s", v.Big())
	}
}

func TestValueJSON(t *testing.T) {
	v := MustValue("100000000000000000000")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"100000000000000000000"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Cmp(v) != 0 {
		t.Fatalf("round trip mismatch: %s", decoded)
	}

	// Bare numbers are tolerated for hand-written payloads.
	if err := json.Unmarshal([]byte(`12345`), &decoded); err != nil {
		t.Fatalf("unmarshal bare number: %v", err)
	}
	if decoded.Cmp(NewValue(12345)) != 0 {
		t.Fatalf("unexpected bare number value: %s", decoded)
	}
}

func TestValueZeroValueUsable(t *testing.T) {
	var v Value
	if !v.IsZero() {
		t.Fatal("zero value should be zero")
	}
	sum, err := v.Add(NewValue(7))
	if err != nil {
		t.Fatalf("add to zero: %v", err)
	}
	if sum.Cmp(NewValue(7)) != 0 {
		t.Fatalf("unexpected sum: %s", sum)
	}
}
