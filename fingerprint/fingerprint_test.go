package fingerprint

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"blocksui.xyz/ledger/cidutil"
)

var knownCIDs = []string{
	"QmWmyoMoctfbAaiEs2G46gpeUmhqFRDW6KWo64y5r581Vz",
	"QmTBV6zgUqwTPNWSRYL5W9dmcHzYxosvgKgno9obB3EuU4",
}

func TestFromCID_RoundTrip(t *testing.T) {
	for _, s := range knownCIDs {
		f, err := FromCID(s)
		if err != nil {
			t.Fatalf("FromCID(%s): %v", s, err)
		}
		if got := f.CID(); got != s {
			t.Fatalf("CID() = %s, want %s", got, s)
		}
		back, err := FromHex(f.Hex())
		if err != nil {
			t.Fatalf("FromHex(%s): %v", f.Hex(), err)
		}
		if back != f {
			t.Fatalf("hex round-trip mismatch for %s", s)
		}
		if f.Cid().String() != s {
			t.Fatalf("Cid() = %s, want %s", f.Cid(), s)
		}
	}
}

func TestRoundTrip_RandomDigests(t *testing.T) {
	rng := rand.New(rand.NewSource(20240101))
	digests := [][Size]byte{{}, bytes32(0xff)}
	for i := 0; i < 512; i++ {
		var d [Size]byte
		rng.Read(d[:])
		digests = append(digests, d)
	}

	for _, d := range digests {
		// digest -> CID -> digest
		f := Fingerprint(d)
		back, err := FromCID(f.CID())
		if err != nil {
			t.Fatalf("FromCID(%s): %v", f.CID(), err)
		}
		if back != f {
			t.Fatalf("digest %x did not survive the CID form", d)
		}

		// CID -> digest -> CID, with the CID built independently
		mh, err := multihash.Encode(d[:], multihash.SHA2_256)
		if err != nil {
			t.Fatalf("multihash.Encode: %v", err)
		}
		want := cid.NewCidV0(mh).String()
		g, err := FromCID(want)
		if err != nil {
			t.Fatalf("FromCID(%s): %v", want, err)
		}
		if got := g.CID(); got != want {
			t.Fatalf("CID() = %s, want %s", got, want)
		}
		if [Size]byte(g) != d {
			t.Fatalf("FromCID(%s) = %x, want %x", want, g[:], d)
		}

		h, err := FromHex(f.Hex())
		if err != nil {
			t.Fatalf("FromHex(%s): %v", f.Hex(), err)
		}
		if h != f {
			t.Fatalf("hex round-trip mismatch for %x", d)
		}
	}
}

func bytes32(b byte) [Size]byte {
	var out [Size]byte
	for i := range out {
		out[i] = b
	}
	return out
}

func TestFromCID_DistinctDigests(t *testing.T) {
	a := MustFromCID(knownCIDs[0])
	b := MustFromCID(knownCIDs[1])
	if a == b {
		t.Fatalf("expected distinct fingerprints")
	}
}

func TestSum_MatchesMultihash(t *testing.T) {
	data := []byte("hello blocks")
	f := Sum(data)

	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if got, want := f.CID(), cid.NewCidV0(mh).String(); got != want {
		t.Fatalf("CID() = %s, want %s", got, want)
	}

	// A CIDv1 over the same bytes carries the same digest.
	v1, err := FromCID(cidutil.CIDv1RawSHA256(data))
	if err != nil {
		t.Fatalf("FromCID(v1): %v", err)
	}
	if v1 != f {
		t.Fatalf("CIDv1 fingerprint mismatch")
	}

	// Any hex bytes32 value maps back through the CID form.
	g, err := FromHex("0x" + "ab" + "00000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	if back := MustFromCID(g.CID()); back != g {
		t.Fatalf("bytes32 -> cid -> bytes32 mismatch")
	}
}

func TestFromCID_RejectsNonSHA256(t *testing.T) {
	mh, err := multihash.Sum([]byte("x"), multihash.SHA1, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	c := cid.NewCidV1(cid.Raw, mh)

	for _, s := range []string{"", "QmNotAValidCid", "not-a-cid", c.String()} {
		if _, err := FromCID(s); !errors.Is(err, ErrInvalid) {
			t.Fatalf("FromCID(%q): expected ErrInvalid, got %v", s, err)
		}
	}
	if _, err := FromHex("0x1234"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("FromHex: expected ErrInvalid, got %v", err)
	}
}

func TestTextMarshaling(t *testing.T) {
	f := MustFromCID(knownCIDs[0])
	b, err := f.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var g Fingerprint
	if err := g.UnmarshalText(b); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if g != f {
		t.Fatalf("text round-trip mismatch")
	}
}
