package codec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUint64CodecRoundTrip(t *testing.T) {
	var c Uint64Codec
	for _, v := range []uint64{0, 1, 42, 1 << 40} {
		got := c.Decode(c.Encode(v))
		if got != v {
			t.Fatalf("Uint64Codec roundtrip: got %d, want %d", got, v)
		}
	}
	if c.Width() != 8 {
		t.Fatalf("expected width 8, got %d", c.Width())
	}
}

func TestStringCodecRoundTrip(t *testing.T) {
	var c StringCodec
	if c.Width() != -1 {
		t.Fatalf("expected variable width (-1), got %d", c.Width())
	}
	for _, v := range []string{"", "hello", "a longer key with spaces"} {
		got := c.Decode(c.Encode(v))
		if diff := cmp.Diff(v, got); diff != "" {
			t.Fatalf("StringCodec roundtrip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestOptional(t *testing.T) {
	none := None[int]()
	if none.Present {
		t.Fatalf("expected None to be absent")
	}

	some := Some(7)
	if !some.Present || some.Value != 7 {
		t.Fatalf("expected Some(7), got %+v", some)
	}
}
