package util

import "testing"

func TestBeanKey(t *testing.T) {
	if got := BeanKey("cart", "42"); got != "bean:cart:42" {
		t.Fatalf("BeanKey = %q", got)
	}
}

func TestRedactStableAndShort(t *testing.T) {
	a, b := Redact("bean:cart:42"), Redact("bean:cart:42")
	if a != b {
		t.Fatalf("Redact not stable: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("Redact length = %d, want 16", len(a))
	}
	if a == Redact("bean:cart:43") {
		t.Fatalf("Redact collided on distinct keys")
	}
}
