package store

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

// unreachableClient returns a client whose every command fails, exercising
// the degrade-to-store paths without a Redis server.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedStoreDegradesWithoutRedis(t *testing.T) {
	inner := NewInMemory()
	if _, err := Seed(context.Background(), inner, false); err != nil {
		t.Fatal(err)
	}
	cached := NewCachedStore(inner, unreachableClient(t), 0)

	med, err := cached.MedicationByName(context.Background(), "Aspirin")
	if err != nil {
		t.Fatalf("MedicationByName() error = %v", err)
	}
	if med.Name != "Aspirin" {
		t.Errorf("medication = %+v", med)
	}

	meds, err := cached.Medications(context.Background())
	if err != nil {
		t.Fatalf("Medications() error = %v", err)
	}
	if len(meds) != 5 {
		t.Errorf("medications = %d, want 5", len(meds))
	}
}

func TestCachedStoreForceReseed(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemory()
	if _, err := Seed(ctx, inner, false); err != nil {
		t.Fatal(err)
	}
	cached := NewCachedStore(inner, unreachableClient(t), 0)

	// A force reseed through the cached store reaches the inner store; the
	// failed catalogue invalidation is only logged.
	seeded, err := Seed(ctx, cached, true)
	if err != nil {
		t.Fatalf("Seed(force) error = %v", err)
	}
	if !seeded {
		t.Fatal("force reseed should repopulate the store")
	}

	meds, err := inner.Medications(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(meds) != 5 {
		t.Errorf("medications after reseed = %d, want 5", len(meds))
	}
	if _, err := inner.UserByID(ctx, 1); err != nil {
		t.Errorf("UserByID(1) after reseed: %v", err)
	}
}

func TestCachedStoreRequiresSeedableInner(t *testing.T) {
	// An inner store that only implements Store cannot be reseeded; the
	// passthrough reports that instead of panicking.
	cached := NewCachedStore(struct{ Store }{Store: NewInMemory()}, unreachableClient(t), 0)
	if _, err := cached.Seeded(context.Background()); err == nil {
		t.Error("Seeded() on a non-seedable store should fail")
	}
}
