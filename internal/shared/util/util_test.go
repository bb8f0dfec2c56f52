package util

import (
	"context"
	"testing"
	"time"
)

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint([]byte("package main"))
	b := Fingerprint([]byte("package main"))
	if a != b {
		t.Error("same bytes must produce the same fingerprint")
	}
	if a == Fingerprint([]byte("package other")) {
		t.Error("different bytes must produce different fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 length 64, got %d", len(a))
	}
}

func TestFingerprintFields_SeparatorMatters(t *testing.T) {
	if FingerprintFields("ab", "c") == FingerprintFields("a", "bc") {
		t.Error("field boundaries must affect the fingerprint")
	}
	if FingerprintFields("a", "b") == FingerprintFields("b", "a") {
		t.Error("field order must affect the fingerprint")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow(1) {
			t.Fatal("unlimited limiter must always allow")
		}
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
}
