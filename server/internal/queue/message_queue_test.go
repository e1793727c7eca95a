package queue

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

func TestSubscribersReceiveEventsInOrder(t *testing.T) {
	mq := NewMessageQueue(4)
	mq.SetupConsumer()

	var (
		mu  sync.Mutex
		got []string
	)
	if err := mq.Subscribe(func(e internal.Event) {
		mu.Lock()
		got = append(got, e.Task.Id)
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	for i := range 20 {
		mq.Publish(internal.Event{Kind: internal.EventProgress, Task: internal.TaskSnapshot{Id: fmt.Sprint(i)}})
	}
	mq.Stop()

	if len(got) != 20 {
		t.Fatalf("got %d events, want 20", len(got))
	}
	for i, id := range got {
		if id != fmt.Sprint(i) {
			t.Fatalf("event %d has id %s", i, id)
		}
	}
}

func TestConcurrentPublishers(t *testing.T) {
	mq := NewMessageQueue(0)
	mq.SetupConsumer()

	// subscribers share the consumer goroutine, no locking needed
	count := 0
	mq.Subscribe(func(e internal.Event) { count++ })

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				mq.Publish(internal.Event{Task: internal.TaskSnapshot{Id: fmt.Sprintf("%d-%d", w, i)}})
			}
		}()
	}
	wg.Wait()
	mq.Stop()

	if count != 400 {
		t.Fatalf("got %d events, want 400", count)
	}
}

func TestPublishAfterStop(t *testing.T) {
	mq := NewMessageQueue(1)
	mq.SetupConsumer()
	mq.Stop()

	done := make(chan struct{})
	go func() {
		mq.Publish(internal.Event{})
		mq.Publish(internal.Event{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stopped queue")
	}
}
