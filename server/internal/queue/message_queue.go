package queue

import (
	"context"
	"log/slog"
	"sync"

	evbus "github.com/asaskevich/EventBus"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
)

const (
	topicEvents = "task:events"

	defaultSize = 256
)

// MessageQueue is the single channel through which task state leaves the
// workers. Exactly one consumer drains it and hands each event to every
// subscriber in publish order.
type MessageQueue struct {
	events chan internal.Event
	bus    evbus.Bus
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	done      chan struct{}
}

func NewMessageQueue(size int) *MessageQueue {
	if size <= 0 {
		size = defaultSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &MessageQueue{
		events: make(chan internal.Event, size),
		bus:    evbus.New(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Publish is safe for concurrent use. Events published after Stop are dropped.
func (m *MessageQueue) Publish(e internal.Event) {
	select {
	case m.events <- e:
	case <-m.ctx.Done():
		slog.Debug("queue stopped, dropping event",
			slog.String("id", e.Task.Id),
			slog.String("kind", string(e.Kind)),
		)
	}
}

// Subscribe registers fn. Subscribers run on the consumer goroutine and must
// not block.
func (m *MessageQueue) Subscribe(fn func(internal.Event)) error {
	return m.bus.Subscribe(topicEvents, fn)
}

func (m *MessageQueue) SetupConsumer() {
	m.startOnce.Do(func() {
		go m.consume()
	})
}

func (m *MessageQueue) consume() {
	defer close(m.done)

	for {
		select {
		case <-m.ctx.Done():
			m.drain()
			return
		case e := <-m.events:
			m.bus.Publish(topicEvents, e)
		}
	}
}

// drain delivers what was accepted before Stop.
func (m *MessageQueue) drain() {
	for {
		select {
		case e := <-m.events:
			m.bus.Publish(topicEvents, e)
		default:
			return
		}
	}
}

// Stop halts the consumer after delivering pending events.
func (m *MessageQueue) Stop() {
	m.cancel()
	m.SetupConsumer()
	<-m.done
}
