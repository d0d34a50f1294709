package value

import "fmt"

// Sink receives flushed slot values. It is the live runtime a registry
// propagates into. Implementations must tolerate repeated notifications for
// the same name; the last one wins.
type Sink interface {
	Notify(name string, v Value, explicit bool)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(name string, v Value, explicit bool)

// Notify calls f(name, v, explicit).
func (f SinkFunc) Notify(name string, v Value, explicit bool) {
	f(name, v, explicit)
}

// Slot is a single named, typed preference.
type Slot struct {
	name     string
	def      Value
	current  Value
	explicit bool
}

// NewSlot creates a slot holding its default value. The default must be a
// valid Value; its kind becomes the kind of the slot.
func NewSlot(name string, def Value) *Slot {
	if !def.IsValid() {
		panic(fmt.Sprintf("value: slot %q declared with an invalid default", name))
	}
	return &Slot{
		name:    name,
		def:     def,
		current: def,
	}
}

// Name returns the stable identifier of the slot.
func (s *Slot) Name() string { return s.name }

// Kind returns the kind every value of this slot has.
func (s *Slot) Kind() Kind { return s.def.kind }

// Default returns the value the slot was declared with.
func (s *Slot) Default() Value { return s.def }

// Get returns the current value.
func (s *Slot) Get() Value { return s.current }

// IsSet reports whether Set has been called on the slot, regardless of
// whether the value differs from the default.
func (s *Slot) IsSet() bool { return s.explicit }

// Set assigns v, marks the slot explicit and flushes it to sink when sink is
// non-nil. Values are forwarded as given; only the kind is checked, and a kind
// mismatch is a programming error.
func (s *Slot) Set(v Value, sink Sink) {
	if v.kind != s.def.kind {
		panic(fmt.Sprintf("value: slot %q is %s, cannot hold %s", s.name, s.def.kind, v.kind))
	}
	s.current = v
	s.explicit = true
	s.Flush(sink)
}

// Flush sends the slot's name, current value and explicit flag to sink.
// It is a no-op when sink is nil.
func (s *Slot) Flush(sink Sink) {
	if sink == nil {
		return
	}
	sink.Notify(s.name, s.current, s.explicit)
}
