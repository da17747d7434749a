package events

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Config controls dispatcher buffering.
type Config struct {
	BufferSize int
	Logger     *zap.Logger
}

// Bus delivers published values to every subscriber on a single dispatcher
// goroutine, in publish order.
type Bus[T any] struct {
	logger    *zap.Logger
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu     sync.Mutex
	subs   []*Subscription[T]
	nextID uint64
}

// Subscription is a registered callback. Unsubscribe returns only after any
// in-flight delivery to it has finished, and no delivery starts afterwards.
// Calling Unsubscribe from inside the callback deadlocks.
type Subscription[T any] struct {
	bus    *Bus[T]
	id     uint64
	fn     func(T)
	mu     sync.Mutex
	active bool
	once   sync.Once
}

func New[T any](cfg Config) *Bus[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	b := &Bus[T]{
		logger: cfg.Logger,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go b.run()

	return b
}

func (b *Bus[T]) run() {
	defer b.wg.Done()

	for {
		select {
		case v := <-b.ch:
			b.deliver(v)
		case <-b.done:
			for {
				select {
				case v := <-b.ch:
					b.deliver(v)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus[T]) deliver(v T) {
	b.mu.Lock()
	subs := make([]*Subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.call(v, b.logger)
	}
}

func (s *Subscription[T]) call(v T, logger *zap.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("events: subscriber panicked", zap.Uint64("subscription", s.id), zap.Any("panic", r))
		}
	}()
	s.fn(v)
}

// Subscribe registers fn for every value published after it returns.
func (b *Bus[T]) Subscribe(fn func(T)) *Subscription[T] {
	s := &Subscription[T]{bus: b, fn: fn, active: fn != nil}
	if b == nil || fn == nil || b.closed.Load() {
		s.active = false
		return s
	}

	b.mu.Lock()
	b.nextID++
	s.id = b.nextID
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

// Unsubscribe is idempotent.
func (s *Subscription[T]) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if b := s.bus; b != nil {
			b.mu.Lock()
			for i, cur := range b.subs {
				if cur == s {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
		}

		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	})
}

// Publish enqueues v. It blocks while the buffer is full until ctx ends or
// the bus closes; values that are not enqueued are counted as dropped.
func (b *Bus[T]) Publish(ctx context.Context, v T) {
	if b == nil || b.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case b.ch <- v:
	case <-ctx.Done():
		b.dropped.Add(1)
	case <-b.done:
		b.dropped.Add(1)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *Bus[T]) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close delivers everything already enqueued, then stops the dispatcher.
// Close is idempotent and must not be called from a subscriber.
func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.done)
		b.wg.Wait()
	})
}

func (b *Bus[T]) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}
