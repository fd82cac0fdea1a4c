package nonce

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := NewToken()
		if err != nil {
			t.Fatalf("NewToken: %v", err)
		}
		if tok == "" {
			t.Fatalf("NewToken returned empty token")
		}
		if seen[tok] {
			t.Fatalf("NewToken returned duplicate token %q", tok)
		}
		seen[tok] = true

		// URL-safe: no padding or characters needing escaping
		for _, r := range tok {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				t.Fatalf("NewToken produced non-url-safe character %q in %q", r, tok)
			}
		}
	}
}

func TestMemoryStore_ConsumeOnce(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if err := ms.Put(ctx, "abc", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := ms.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	if !ok {
		t.Errorf("first Consume = false, want true")
	}

	// Consuming again must fail: the nonce is single use.
	ok, err = ms.Consume(ctx, "abc")
	if ok {
		t.Errorf("second Consume = true, want false")
	}
	var missing *NonceMissingError
	if !errors.As(err, &missing) {
		t.Errorf("second Consume error = %v, want NonceMissingError", err)
	}
}

func TestMemoryStore_ConsumeUnknown(t *testing.T) {
	ms := NewMemoryStore()

	ok, err := ms.Consume(context.Background(), "never-stored")
	if ok {
		t.Errorf("Consume of unknown nonce = true, want false")
	}
	var missing *NonceMissingError
	if !errors.As(err, &missing) {
		t.Errorf("error = %v, want NonceMissingError", err)
	}
}

func TestMemoryStore_ConsumeExpired(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if err := ms.Put(ctx, "stale", time.Nanosecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	ok, err := ms.Consume(ctx, "stale")
	if ok {
		t.Errorf("Consume of expired nonce = true, want false")
	}
	var expired *NonceExpiredError
	if !errors.As(err, &expired) {
		t.Errorf("error = %v, want NonceExpiredError", err)
	}
}

func TestMemoryStore_PutRejectsZeroTTL(t *testing.T) {
	ms := NewMemoryStore()
	if err := ms.Put(context.Background(), "x", 0); err == nil {
		t.Errorf("Put with zero TTL succeeded, want error")
	}
}

func TestMemoryStore_Exists(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if ms.Exists(ctx, "abc") {
		t.Errorf("Exists before Put = true")
	}

	if err := ms.Put(ctx, "abc", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !ms.Exists(ctx, "abc") {
		t.Errorf("Exists after Put = false")
	}

	// Exists must not consume.
	if !ms.Exists(ctx, "abc") {
		t.Errorf("second Exists = false, Exists should not consume")
	}

	if _, err := ms.Consume(ctx, "abc"); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if ms.Exists(ctx, "abc") {
		t.Errorf("Exists after Consume = true")
	}
}

func TestMemoryStore_ExistsExpired(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if err := ms.Put(ctx, "stale", time.Nanosecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if ms.Exists(ctx, "stale") {
		t.Errorf("Exists for expired nonce = true")
	}
}

func TestMemoryStore_ExpireNonces(t *testing.T) {
	ms := NewMemoryStore()
	ctx := context.Background()

	if err := ms.Put(ctx, "stale", time.Nanosecond); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ms.Put(ctx, "fresh", time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if err := ms.ExpireNonces(ctx); err != nil {
		t.Fatalf("ExpireNonces: %v", err)
	}

	ms.mu.RLock()
	_, staleKept := ms.entries["stale"]
	_, freshKept := ms.entries["fresh"]
	ms.mu.RUnlock()

	if staleKept {
		t.Errorf("expired nonce survived ExpireNonces")
	}
	if !freshKept {
		t.Errorf("fresh nonce was purged by ExpireNonces")
	}
}
