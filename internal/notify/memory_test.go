package notify

import "testing"

func TestMemoryFeedNewestFirst(t *testing.T) {
	feed := NewMemoryFeed()
	feed.Push("default", LevelInfo, "one")
	feed.Push("default", LevelWarning, "two")
	feed.Push("default", LevelSuccess, "three")

	messages := feed.Recent("default", 2)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Text != "three" || messages[1].Text != "two" {
		t.Fatalf("unexpected order: %+v", messages)
	}
}

func TestMemoryFeedCap(t *testing.T) {
	feed := NewMemoryFeed()
	for i := 0; i < defaultCapacity+10; i++ {
		feed.Push("default", LevelInfo, "message")
	}
	if got := feed.Recent("default", 0); len(got) != defaultCapacity {
		t.Fatalf("expected %d messages, got %d", defaultCapacity, len(got))
	}
}

func TestScopedBindsNamespace(t *testing.T) {
	feed := NewMemoryFeed()
	scoped := Bind(feed, "alpha")
	scoped.Warning("careful")

	if got := feed.Recent("alpha", 1); len(got) != 1 || got[0].Level != LevelWarning {
		t.Fatalf("unexpected alpha feed: %+v", got)
	}
	if got := feed.Recent("default", 1); len(got) != 0 {
		t.Fatalf("expected no default messages, got %+v", got)
	}
}
