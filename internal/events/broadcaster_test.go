package events

import "testing"

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	var got1, got2 []Update
	b.Subscribe(func(u Update) { got1 = append(got1, u) })
	b.Subscribe(func(u Update) { got2 = append(got2, u) })

	b.Publish(Update{Type: TypeStatus, DownloadID: "a"})
	b.Publish(Update{Type: TypeProgress, DownloadID: "a"})

	if len(got1) != 2 || len(got2) != 2 {
		t.Fatalf("deliveries: %d, %d; want 2 each", len(got1), len(got2))
	}
	if got1[0].Type != TypeStatus || got1[1].Type != TypeProgress {
		t.Fatalf("order: %v", got1)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	var n int
	id := b.Subscribe(func(Update) { n++ })

	b.Publish(Update{Type: TypeStatus})
	b.Unsubscribe(id)
	b.Publish(Update{Type: TypeStatus})

	if n != 1 {
		t.Fatalf("deliveries after unsubscribe: %d, want 1", n)
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := NewBroadcaster()
	// must not panic
	b.Publish(Update{Type: TypeComplete, DownloadID: "x"})
}
