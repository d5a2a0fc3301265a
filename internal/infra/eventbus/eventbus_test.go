package eventbus

import (
	"testing"
	"time"
)

func TestBus_PublishAndSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe(TopicDocumentCreated)

	bus.Publish(TopicDocumentCreated, "tenant-1", map[string]string{"id": "doc-1"})

	select {
	case evt := <-ch:
		if evt.Topic != TopicDocumentCreated || evt.TenantID != "tenant-1" {
			t.Errorf("unexpected event: %+v", evt)
		}
		if evt.OccurredAt.IsZero() {
			t.Error("OccurredAt should be set")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_MultipleSubscribers_AllReceive(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe(TopicChatCompleted)
	ch2 := bus.Subscribe(TopicChatCompleted)

	bus.Publish(TopicChatCompleted, "t", 42)

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Payload != 42 {
				t.Errorf("subscriber %d: payload = %v; want 42", i, evt.Payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout", i)
		}
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	bus := New()
	chat := bus.Subscribe(TopicChatCompleted)
	_ = bus.Subscribe(TopicDocumentCreated)

	bus.Publish(TopicDocumentCreated, "t", "doc")

	select {
	case evt := <-chat:
		t.Errorf("chat subscriber received %v", evt)
	default:
	}
}

func TestBus_FullBufferDropsWithoutBlocking(t *testing.T) {
	bus := New()
	_ = bus.Subscribe("overflow")

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBufferSize+10; i++ {
			bus.Publish("overflow", "t", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
	if got := bus.Dropped(); got != 10 {
		t.Errorf("Dropped() = %d; want 10", got)
	}
}

func TestBus_CloseClosesSubscribers(t *testing.T) {
	bus := New()
	ch := bus.Subscribe(TopicChatCompleted)

	bus.Close()
	bus.Close()
	bus.Publish(TopicChatCompleted, "t", "ignored")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Close")
	}
	if _, ok := <-bus.Subscribe(TopicChatCompleted); ok {
		t.Error("Subscribe after Close should return a closed channel")
	}
}
