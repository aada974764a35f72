// Package carrier hands a bounded fragment of one workload's output to the
// next workload's prompt.
package carrier

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars bounds extracted packets when no cap is configured.
const DefaultMaxChars = 2000

// Packet is the carried fragment, keyed by the workload that produced it.
// Only the most recent packet per workload survives.
type Packet struct {
	Workload string
	Cycle    int
	Text     string
}

// Carrier owns the packets. It is the sole writer; the scheduler reads
// packets when composing the next workload's prompt. Not safe for concurrent
// use, which is fine: the executor is strictly sequential.
type Carrier struct {
	maxChars int
	packets  map[string]Packet
}

// New creates a carrier with the given character cap per packet.
func New(maxChars int) *Carrier {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Carrier{
		maxChars: maxChars,
		packets:  make(map[string]Packet),
	}
}

// Extract derives a packet from the workload's output and stores it,
// replacing any previous packet for the same workload. Extraction is lossy
// and best-effort: an empty output simply yields no packet, never an error.
func (c *Carrier) Extract(workload string, cycle int, output string) Packet {
	text := truncate(strings.TrimSpace(output), c.maxChars)
	if text == "" {
		return Packet{}
	}

	p := Packet{Workload: workload, Cycle: cycle, Text: text}
	c.packets[workload] = p
	return p
}

// Get returns the most recent packet for a workload, if one exists.
func (c *Carrier) Get(workload string) (Packet, bool) {
	p, ok := c.packets[workload]
	return p, ok
}

// truncate keeps the last sentences of s that fit within max characters.
// When even one sentence does not fit, the tail of s is kept instead, so
// the most recent content always wins.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	tail := s[len(s)-max:]

	// The cap may land inside a multi-byte rune; skip to the next rune start
	// so the packet is always valid UTF-8.
	for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
		tail = tail[1:]
	}

	// Drop the leading partial sentence if a boundary exists in the tail.
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(tail, sep); idx >= 0 && idx+len(sep) < len(tail) {
			return strings.TrimSpace(tail[idx+len(sep):])
		}
	}

	return strings.TrimSpace(tail)
}
