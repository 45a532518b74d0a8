package ident

import (
	"regexp"
	"strings"
	"testing"
)

func TestRandomID(t *testing.T) {
	hex := regexp.MustCompile(`^[0-9a-f]{10}$`)
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := RandomID()
		if !hex.MatchString(id) {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestRandomName(t *testing.T) {
	if got := RandomName("pizza"); !strings.HasPrefix(got, "pizza ") || len(got) != len("pizza ")+10 {
		t.Errorf("unexpected name %q", got)
	}
	if got := RandomName(""); len(got) != 10 {
		t.Errorf("expected bare id, got %q", got)
	}
}

func TestRandomEmail(t *testing.T) {
	if got := RandomEmail(""); !strings.HasSuffix(got, "@jwt.com") {
		t.Errorf("expected default domain, got %q", got)
	}
	if got := RandomEmail("example.test"); !strings.HasSuffix(got, "@example.test") {
		t.Errorf("expected custom domain, got %q", got)
	}
}

func TestRandomPassword(t *testing.T) {
	a, b := RandomPassword(), RandomPassword()
	if len(a) != 32 || a == b {
		t.Errorf("unexpected passwords %q %q", a, b)
	}
}
