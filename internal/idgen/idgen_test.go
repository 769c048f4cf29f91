package idgen

import (
	"strings"
	"testing"
)

func TestEncodeBase36Padding(t *testing.T) {
	// Small values pad with leading zeros to the requested length.
	got := EncodeBase36([]byte{0x01}, 5)
	if len(got) != 5 {
		t.Fatalf("expected length 5, got %d (%q)", len(got), got)
	}
	if !strings.HasPrefix(got, "0000") {
		t.Errorf("expected zero padding, got %q", got)
	}
}

func TestEncodeBase36Alphabet(t *testing.T) {
	got := EncodeBase36([]byte{0xff, 0xff, 0xff, 0xff}, 7)
	for _, r := range got {
		if !strings.ContainsRune(base36Alphabet, r) {
			t.Errorf("character %q outside base36 alphabet in %q", r, got)
		}
	}
}

func TestRandomTokenShape(t *testing.T) {
	tok, err := RandomToken("qh")
	if err != nil {
		t.Fatalf("RandomToken: %v", err)
	}
	if !strings.HasPrefix(tok, "qh-") {
		t.Errorf("expected qh- prefix, got %q", tok)
	}
	if len(tok) != len("qh-")+tokenEncodedLen {
		t.Errorf("unexpected token length %d: %q", len(tok), tok)
	}
}

func TestRandomTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := RandomToken("qh")
		if err != nil {
			t.Fatalf("RandomToken: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws: %s", i, tok)
		}
		seen[tok] = true
	}
}
