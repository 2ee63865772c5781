package pagination

import (
	"encoding/base64"
	"testing"
)

func TestNormalizeLimit(t *testing.T) {
	t.Parallel()
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCursorRoundTrip(t *testing.T) {
	t.Parallel()
	for _, seq := range []int64{0, 1, 987654321} {
		out, err := ParseCursor(EncodeCursor(Cursor{Seq: seq}))
		if err != nil {
			t.Fatalf("parse %d: %v", seq, err)
		}
		if out.Seq != seq {
			t.Fatalf("round trip mismatch: got %d, want %d", out.Seq, seq)
		}
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	t.Parallel()
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("empty cursor should be nil, got %v (%v)", c, err)
	}
	for _, raw := range []string{"!!", encodeRaw("12"), encodeRaw("seq:"), encodeRaw("seq:abc"), encodeRaw("seq:-4")} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestCursorAfter(t *testing.T) {
	t.Parallel()
	c := Cursor{Seq: 5}
	if !c.After(6) {
		t.Fatal("higher positions sort after")
	}
	if c.After(5) || c.After(4) {
		t.Fatal("the cursor item and earlier items are not after")
	}
}

func encodeRaw(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}
