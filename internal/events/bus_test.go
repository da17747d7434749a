package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBusDeliversInOrder(t *testing.T) {
	b := New[int](Config{BufferSize: 4})
	defer b.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	done := make(chan struct{})
	b.Subscribe(func(v int) {
		mu.Lock()
		got = append(got, v)
		n := len(got)
		mu.Unlock()
		if n == 100 {
			close(done)
		}
	})

	for i := 0; i < 100; i++ {
		b.Publish(context.Background(), i)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("delivery %d = %d, out of order", i, v)
		}
	}
}

func TestUnsubscribeWaitsForInFlightDelivery(t *testing.T) {
	b := New[string](Config{})
	defer b.Close()

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished bool
	var calls int

	sub := b.Subscribe(func(string) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
			finished = true
		}
	})

	b.Publish(context.Background(), "first")
	<-entered

	returned := make(chan struct{})
	go func() {
		sub.Unsubscribe()
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("Unsubscribe returned while delivery was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-returned
	if !finished {
		t.Fatal("expected in-flight delivery to finish before Unsubscribe returned")
	}

	b.Publish(context.Background(), "second")
	b.Close()
	if calls != 1 {
		t.Fatalf("expected no delivery after Unsubscribe, got %d calls", calls)
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	b := New[int](Config{BufferSize: 8})

	var count int
	b.Subscribe(func(int) { count++ })
	for i := 0; i < 8; i++ {
		b.Publish(context.Background(), i)
	}
	b.Close()
	b.Close()

	if count != 8 {
		t.Fatalf("expected 8 deliveries before Close returned, got %d", count)
	}

	b.Publish(context.Background(), 9)
	if count != 8 {
		t.Fatal("expected publish after close to be ignored")
	}
}

func TestPublishHonoursContext(t *testing.T) {
	b := New[int](Config{BufferSize: 1})
	defer b.Close()

	block := make(chan struct{})
	b.Subscribe(func(int) { <-block })
	defer close(block)

	b.Publish(context.Background(), 1)
	b.Publish(context.Background(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	b.Publish(ctx, 3)

	if b.Dropped() != 1 {
		t.Fatalf("expected 1 dropped value, got %d", b.Dropped())
	}
}

func TestSubscriberPanicDoesNotStopBus(t *testing.T) {
	b := New[int](Config{})

	var got []int
	b.Subscribe(func(v int) {
		if v == 1 {
			panic("boom")
		}
	})
	b.Subscribe(func(v int) { got = append(got, v) })

	b.Publish(context.Background(), 1)
	b.Publish(context.Background(), 2)
	b.Close()

	if len(got) != 2 {
		t.Fatalf("expected both values delivered to healthy subscriber, got %v", got)
	}
}
