package keypool

import (
	"testing"
	"time"
)

func TestNext_RoundRobin(t *testing.T) {
	keys := []string{"key-a", "key-b", "key-c"}
	pool := New("stratz", keys)

	// N consecutive calls return N distinct keys in configuration order.
	for i, want := range keys {
		got, ok := pool.Next()
		if !ok {
			t.Fatalf("Next call %d returned no key", i)
		}
		if got != want {
			t.Errorf("Next call %d = %q, want %q", i, got, want)
		}
	}

	// The (N+1)th call wraps back to the first key.
	got, ok := pool.Next()
	if !ok {
		t.Fatal("Next after full rotation returned no key")
	}
	if got != "key-a" {
		t.Errorf("Next after full rotation = %q, want %q", got, "key-a")
	}
}

func TestNext_EmptyPool(t *testing.T) {
	pool := New("stratz", nil)

	if !pool.Empty() {
		t.Error("Empty() should be true for a pool with no keys")
	}
	if _, ok := pool.Next(); ok {
		t.Error("Next on empty pool should return ok=false")
	}
}

func TestCooldown_Exclusion(t *testing.T) {
	pool := New("stratz", []string{"key-a", "key-b"})

	pool.Cooldown("key-a", 1*time.Hour)

	// key-a must never be returned while cooling down.
	for i := 0; i < 5; i++ {
		got, ok := pool.Next()
		if !ok {
			t.Fatalf("Next call %d returned no key", i)
		}
		if got == "key-a" {
			t.Fatalf("Next call %d returned cooling-down key", i)
		}
	}
}

func TestCooldown_Expires(t *testing.T) {
	pool := New("stratz", []string{"key-a"})

	pool.Cooldown("key-a", 20*time.Millisecond)

	if _, ok := pool.Next(); ok {
		t.Error("Next should return no key while the only key cools down")
	}

	time.Sleep(30 * time.Millisecond)

	got, ok := pool.Next()
	if !ok {
		t.Fatal("Next should return the key after cooldown elapsed")
	}
	if got != "key-a" {
		t.Errorf("Next = %q, want %q", got, "key-a")
	}
}

func TestCooldown_Overwrite(t *testing.T) {
	pool := New("stratz", []string{"key-a"})

	// A second cooldown overwrites the first deadline rather than stacking.
	pool.Cooldown("key-a", 1*time.Hour)
	pool.Cooldown("key-a", 20*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	if _, ok := pool.Next(); !ok {
		t.Error("Next should return the key after the overwritten cooldown elapsed")
	}
}

func TestCooldown_AllKeysExhausted(t *testing.T) {
	pool := New("stratz", []string{"key-a", "key-b"})

	pool.Cooldown("key-a", 1*time.Hour)
	pool.Cooldown("key-b", 1*time.Hour)

	if _, ok := pool.Next(); ok {
		t.Error("Next should return ok=false when every key is cooling down")
	}
}

func TestCooldown_UnknownKeyIgnored(t *testing.T) {
	pool := New("stratz", []string{"key-a"})

	pool.Cooldown("no-such-key", 1*time.Hour)

	if _, ok := pool.Next(); !ok {
		t.Error("cooldown of an unknown key must not affect the pool")
	}
}

func TestCooldown_DefaultDuration(t *testing.T) {
	pool := New("stratz", []string{"key-a"})

	// Non-positive duration falls back to DefaultCooldown.
	pool.Cooldown("key-a", 0)

	if _, ok := pool.Next(); ok {
		t.Error("key should be cooling down after default-duration cooldown")
	}
}

func TestNext_SkipsCoolingKeyMidRotation(t *testing.T) {
	pool := New("stratz", []string{"key-a", "key-b", "key-c"})

	// Advance cursor past key-a.
	if got, _ := pool.Next(); got != "key-a" {
		t.Fatalf("first Next = %q, want key-a", got)
	}

	pool.Cooldown("key-b", 1*time.Hour)

	got, ok := pool.Next()
	if !ok {
		t.Fatal("Next returned no key")
	}
	if got != "key-c" {
		t.Errorf("Next = %q, want key-c (skipping cooling key-b)", got)
	}
}
