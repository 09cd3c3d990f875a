// Package app holds the services that own the in-memory todo and project
// state. Every mutation goes through a repository, after which the service
// re-reads the authoritative list and notifies its observers.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrTodoNotFound    = errors.New("todo not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrAmbiguousRef    = errors.New("reference matches more than one entry")
	ErrEmptyRef        = errors.New("reference must not be empty")
)

// Clock returns the current time.
type Clock func() time.Time

type options struct {
	log *zap.Logger
	now Clock
}

// Option configures a service.
type Option func(*options)

// WithLogger sets the service logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithClock replaces time.Now, for deterministic timestamps.
func WithClock(now Clock) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log: zap.NewNop(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// notifier fans a zero-argument change signal out to callbacks and
// channel watchers.
type notifier struct {
	mu       sync.Mutex
	nextID   int
	subs     map[int]func()
	watchers map[int]chan struct{}
}

// Subscribe registers fn to run after every change. The returned func
// removes it.
func (n *notifier) Subscribe(fn func()) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = map[int]func(){}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Watch returns a channel that receives a value after changes. Signals
// coalesce while the receiver is busy. The channel closes when ctx ends or
// stop is called, whichever comes first. Callers holding a context that is
// never cancelled must call stop.
func (n *notifier) Watch(ctx context.Context) (changes <-chan struct{}, stop func()) {
	ch := make(chan struct{}, 1)
	done := make(chan struct{})

	n.mu.Lock()
	if n.watchers == nil {
		n.watchers = map[int]chan struct{}{}
	}
	id := n.nextID
	n.nextID++
	n.watchers[id] = ch
	n.mu.Unlock()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.watchers, id)
			close(ch)
			n.mu.Unlock()
			close(done)
		})
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				stop()
			case <-done:
			}
		}()
	}
	return ch, stop
}

func (n *notifier) notify() {
	n.mu.Lock()
	subs := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	for _, ch := range n.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// resolveRef finds the single entry whose ID equals ref or starts with it.
func resolveRef[T any](items []T, ref string, id func(T) string, notFound error) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, ErrEmptyRef
	}
	var (
		match T
		found int
	)
	for _, item := range items {
		itemID := id(item)
		if itemID == ref {
			return item, nil
		}
		if strings.HasPrefix(itemID, ref) {
			match = item
			found++
		}
	}
	switch found {
	case 0:
		return zero, notFound
	case 1:
		return match, nil
	default:
		return zero, ErrAmbiguousRef
	}
}
