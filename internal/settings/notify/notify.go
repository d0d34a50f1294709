// Package notify provides a Sink that records flushed preferences and fans
// them out to observers.
//
// A Notifier keeps the last value received for every preference name, so
// repeated flushes of the same name simply overwrite each other. Observers
// subscribe globally or to a dotted name prefix ("network.cookie" receives
// "network.cookie.cookieBehavior").
package notify

import (
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// ChangeType represents the type of change event.
type ChangeType int

const (
	// ChangeSet indicates a preference value was flushed.
	ChangeSet ChangeType = iota

	// ChangeReload indicates the whole preference set was replaced.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a change event.
type Change struct {
	// Name is the preference name. Empty for reload events.
	Name string

	// Type is the type of change.
	Type ChangeType

	// Value is the flushed value.
	Value value.Value

	// Explicit reports whether the value was set explicitly rather than
	// being the registry default.
	Explicit bool

	// Previous is the value held before this change; invalid if none.
	Previous value.Value

	// Source identifies where a reload came from.
	Source string
}

// Entry is the last state recorded for a preference.
type Entry struct {
	Value    value.Value
	Explicit bool
}

// Observer is called when changes occur.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	prefix   string
	notifier *Notifier
}

// Unsubscribe removes this subscription.
func (s *Subscription) Unsubscribe() {
	if s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

// Notifier records flushed preferences and notifies observers.
// It is safe for concurrent use.
type Notifier struct {
	mu      sync.RWMutex
	entries map[string]Entry

	globalObservers map[uint64]Observer
	prefixObservers map[string]map[uint64]Observer // keyed by dotted prefix
	nextID          uint64

	logger *slog.Logger

	// async delivery: changes queue on buffer and a single goroutine
	// drains them until done is closed.
	async  bool
	buffer chan Change
	done   chan struct{}
	wg     sync.WaitGroup

	closed bool
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithAsync enables asynchronous notification delivery. Observers are then
// called on a dedicated goroutine, in arrival order.
func WithAsync(bufferSize int) Option {
	return func(n *Notifier) {
		if bufferSize > 0 {
			n.async = true
			n.buffer = make(chan Change, bufferSize)
		}
	}
}

// WithLogger logs every change at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		entries:         make(map[string]Entry),
		globalObservers: make(map[uint64]Observer),
		prefixObservers: make(map[string]map[uint64]Observer),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:            make(chan struct{}),
	}

	for _, opt := range opts {
		opt(n)
	}

	if n.async {
		n.wg.Add(1)
		go n.processAsync()
	}

	return n
}

// Notify records a flushed preference and delivers it to observers.
// It implements value.Sink.
func (n *Notifier) Notify(name string, v value.Value, explicit bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	prev := n.entries[name]
	n.entries[name] = Entry{Value: v, Explicit: explicit}
	n.mu.Unlock()

	n.logger.Debug("preference flushed",
		slog.String("name", name),
		slog.String("value", v.String()),
		slog.Bool("explicit", explicit),
	)

	n.dispatch(Change{
		Name:     name,
		Type:     ChangeSet,
		Value:    v,
		Explicit: explicit,
		Previous: prev.Value,
	})
}

// NotifyReload tells observers that the preference set was replaced.
// The recorded entries are kept; the flushes that follow overwrite them.
func (n *Notifier) NotifyReload(source string) {
	n.mu.RLock()
	closed := n.closed
	n.mu.RUnlock()
	if closed {
		return
	}

	n.logger.Debug("preferences reloaded", slog.String("source", source))
	n.dispatch(Change{Type: ChangeReload, Source: source})
}

// Get returns the last recorded state for name.
func (n *Notifier) Get(name string) (Entry, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.entries[name]
	return e, ok
}

// Names returns every recorded preference name, sorted.
func (n *Notifier) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.entries))
	for name := range n.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of every recorded entry.
func (n *Notifier) Snapshot() map[string]Entry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make(map[string]Entry, len(n.entries))
	for name, e := range n.entries {
		out[name] = e
	}
	return out
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.globalObservers[id] = observer

	return &Subscription{
		id:       id,
		notifier: n,
	}
}

// SubscribePrefix registers an observer for a preference name and every
// name below it. For example, subscribing to "network.cookie" receives
// changes to "network.cookie.cookieBehavior". Reload events reach all
// prefix observers.
func (n *Notifier) SubscribePrefix(prefix string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	if n.prefixObservers[prefix] == nil {
		n.prefixObservers[prefix] = make(map[uint64]Observer)
	}
	n.prefixObservers[prefix][id] = observer

	return &Subscription{
		id:       id,
		prefix:   prefix,
		notifier: n,
	}
}

// Close shuts down the notifier. It is safe to call Close multiple times.
// Pending asynchronous changes are delivered before Close returns.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) dispatch(change Change) {
	if n.async {
		select {
		case n.buffer <- change:
		case <-n.done:
		}
		return
	}
	n.deliverChange(change)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.globalObservers, id)

	for prefix, observers := range n.prefixObservers {
		delete(observers, id)
		if len(observers) == 0 {
			delete(n.prefixObservers, prefix)
		}
	}
}

// deliverChange calls every observer interested in change, outside the lock.
func (n *Notifier) deliverChange(change Change) {
	n.mu.RLock()

	var observers []Observer
	for _, obs := range n.globalObservers {
		observers = append(observers, obs)
	}

	for prefix, prefixObs := range n.prefixObservers {
		if change.Type == ChangeReload || prefix == change.Name || isParentName(prefix, change.Name) {
			for _, obs := range prefixObs {
				observers = append(observers, obs)
			}
		}
	}

	n.mu.RUnlock()

	for _, obs := range observers {
		obs(change)
	}
}

func (n *Notifier) processAsync() {
	defer n.wg.Done()

	for {
		select {
		case change := <-n.buffer:
			n.deliverChange(change)
		case <-n.done:
			// Deliver whatever was queued before Close.
			for {
				select {
				case change := <-n.buffer:
					n.deliverChange(change)
				default:
					return
				}
			}
		}
	}
}

// isParentName checks if parent is a dotted prefix of child.
// e.g., "network.cookie" is parent of "network.cookie.cookieBehavior".
func isParentName(parent, child string) bool {
	if len(parent) >= len(child) {
		return false
	}
	if parent == "" {
		return true
	}
	return child[:len(parent)] == parent && child[len(parent)] == '.'
}
