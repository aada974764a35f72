package carrier

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtract_StoresAndReturnsPacket(t *testing.T) {
	c := New(100)

	p := c.Extract("alpha", 1, "some findings")

	if p.Workload != "alpha" || p.Cycle != 1 || p.Text != "some findings" {
		t.Errorf("unexpected packet: %+v", p)
	}

	got, ok := c.Get("alpha")
	if !ok {
		t.Fatal("expected a packet for alpha")
	}
	if got != p {
		t.Errorf("Get returned %+v, want %+v", got, p)
	}
}

func TestExtract_OverwritesNotAppends(t *testing.T) {
	c := New(100)

	c.Extract("alpha", 1, "first output")
	c.Extract("alpha", 2, "second output")

	got, ok := c.Get("alpha")
	if !ok {
		t.Fatal("expected a packet")
	}
	if got.Text != "second output" || got.Cycle != 2 {
		t.Errorf("expected only the most recent packet to survive, got %+v", got)
	}
}

func TestExtract_EmptyOutputYieldsNoPacket(t *testing.T) {
	c := New(100)

	c.Extract("alpha", 1, "   \n  ")

	if _, ok := c.Get("alpha"); ok {
		t.Error("whitespace-only output must not produce a packet")
	}
}

func TestExtract_BoundsPacketSize(t *testing.T) {
	c := New(50)

	long := strings.Repeat("word ", 100) // 500 chars
	p := c.Extract("alpha", 1, long)

	if len(p.Text) > 50 {
		t.Errorf("packet length %d exceeds cap 50", len(p.Text))
	}
}

func TestExtract_KeepsTailSentences(t *testing.T) {
	c := New(40)

	p := c.Extract("alpha", 1, "Old context that overflows the cap. Recent conclusion here.")

	if p.Text != "Recent conclusion here." {
		t.Errorf("got %q, want the trailing sentence", p.Text)
	}
}

func TestExtract_TruncationKeepsValidUTF8(t *testing.T) {
	c := New(25)

	// Two-byte runes with no sentence boundaries: an odd cap lands inside a
	// rune, and the leading partial byte must be dropped.
	p := c.Extract("alpha", 1, strings.Repeat("é", 30))

	if !utf8.ValidString(p.Text) {
		t.Errorf("truncated packet is not valid UTF-8: %q", p.Text)
	}
	if len(p.Text) == 0 || len(p.Text) > 25 {
		t.Errorf("got packet length %d, want within (0, 25]", len(p.Text))
	}
}

func TestGet_UnknownWorkload(t *testing.T) {
	c := New(100)

	if _, ok := c.Get("nobody"); ok {
		t.Error("expected no packet for unknown workload")
	}
}

func TestNew_ZeroCapUsesDefault(t *testing.T) {
	c := New(0)

	long := strings.Repeat("x", DefaultMaxChars+500)
	p := c.Extract("alpha", 1, long)

	if len(p.Text) > DefaultMaxChars {
		t.Errorf("packet length %d exceeds default cap %d", len(p.Text), DefaultMaxChars)
	}
}
