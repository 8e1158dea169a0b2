package memory

import "testing"

func TestFeedStoreLifecycle(t *testing.T) {
	store := NewFeedStore()

	feed := store.GetOrCreate("quiz-1")
	if feed == nil {
		t.Fatalf("expected feed")
	}
	if again := store.GetOrCreate("quiz-1"); again != feed {
		t.Fatalf("expected the same feed for the same quiz")
	}
	if _, ok := store.Get("quiz-1"); !ok {
		t.Fatalf("expected feed present")
	}

	store.DeleteIfEmpty("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected feed removed when empty")
	}
}
