package ledger

import (
	"math"
	"testing"
)

func TestParseEther(t *testing.T) {
	cases := []struct {
		in   string
		want Value
	}{
		{"1", Ether},
		{"0.5", Ether / 2},
		{".1", Ether / 10},
		{"0.000000001", Gwei},
		{"1.5000000000", Ether + Ether/2},
		{"0", 0},
	}
	for _, tc := range cases {
		got, err := ParseEther(tc.in)
		if err != nil {
			t.Fatalf("ParseEther(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseEther(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "-1", "1.", "abc", "0.0000000001", "1e9", "99999999999999999999"} {
		if _, err := ParseEther(bad); err == nil {
			t.Fatalf("ParseEther(%q): expected error", bad)
		}
	}
}

func TestValueString(t *testing.T) {
	cases := map[Value]string{
		0:                   "0",
		Ether:               "1",
		Ether / 2:           "0.5",
		Gwei:                "0.000000001",
		3*Ether + Ether/100: "3.01",
	}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Fatalf("Value(%d).String() = %q, want %q", uint64(v), got, want)
		}
		back, err := ParseEther(want)
		if err != nil || back != v {
			t.Fatalf("ParseEther(%q) = %d, %v; want %d", want, back, err, v)
		}
	}
}

func TestValueOverflow(t *testing.T) {
	if _, err := Value(math.MaxUint64).Add(1); !IsKind(err, KindOverflow) {
		t.Fatalf("Add: expected Overflow, got %v", err)
	}
	if _, err := Value(math.MaxUint64 / 2).Mul(3); !IsKind(err, KindOverflow) {
		t.Fatalf("Mul: expected Overflow, got %v", err)
	}
	if v, err := Ether.Mul(30); err != nil || v != 30*Ether {
		t.Fatalf("Mul: got %d, %v", v, err)
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("0xABCDEF0000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if got := id.String(); got != "0xabcdef0000000000000000000000000000000001" {
		t.Fatalf("String() = %q", got)
	}
	if _, err := ParseIdentity("0x1234"); err == nil {
		t.Fatalf("expected length error")
	}
	if _, err := ParseIdentity("0xzz00000000000000000000000000000000000000"); err == nil {
		t.Fatalf("expected hex error")
	}
	if AccountFor("staking") == AccountFor("content") {
		t.Fatalf("expected distinct custody accounts")
	}
	if AccountFor("staking").IsZero() {
		t.Fatalf("expected non-zero custody account")
	}
}
