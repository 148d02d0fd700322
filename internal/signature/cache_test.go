package signature

import (
	"testing"
	"time"
)

func TestCacheGetMiss(t *testing.T) {
	c := NewCache(time.Hour, 16)
	if _, ok := c.Get(42); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestCachePutGetRoundtrip(t *testing.T) {
	c := NewCache(time.Hour, 16)
	c.Put(7, "sig_007_long_enough_to_be_real")
	sig, ok := c.Get(7)
	if !ok || sig != "sig_007_long_enough_to_be_real" {
		t.Fatalf("expected cached signature, got %q ok=%v", sig, ok)
	}
}

func TestCacheOverwriteWins(t *testing.T) {
	c := NewCache(time.Hour, 16)
	c.Put(1, "first_signature_value_padded")
	c.Put(1, "second_signature_value_padded")
	sig, ok := c.Get(1)
	if !ok || sig != "second_signature_value_padded" {
		t.Fatalf("expected overwrite to win, got %q", sig)
	}
}

func TestCacheClampsTTLAndCapacity(t *testing.T) {
	c := NewCache(0, 0)
	if c.store.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
	c.Put(1, "a_signature_value_padded_long")
	if _, ok := c.Get(1); !ok {
		t.Fatalf("cache with clamped defaults should still function")
	}
}
