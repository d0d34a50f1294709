// Package registry provides the runtime preference registry.
//
// A Registry holds one slot per schema entry, each with a default and a flag
// recording whether it was assigned explicitly. Changes are forwarded to an
// attached Sink as they happen, and attaching a Sink re-sends every slot.
// The full state can be encoded to a flat binary form and decoded again; see
// MarshalBinary.
//
// A Registry is not safe for concurrent use. It must be used from the
// goroutine that owns it, which is also the goroutine the Sink is notified on.
package registry

import (
	"fmt"
	"slices"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Sink receives flushed preference values.
type Sink = value.Sink

// SlotState is a read-only view of one slot.
type SlotState struct {
	Pref     Pref
	Name     string
	Default  value.Value
	Value    value.Value
	Explicit bool
}

// Registry maintains the preference slots and the untyped process settings
// that travel with them.
type Registry struct {
	slots [prefCount]*value.Slot

	// sink is not owned; Detach before tearing it down.
	sink Sink

	// Process settings. These have no default-vs-set distinction.
	useContentProcess    bool
	args                 []string
	extras               Extras
	nativeCrashReporting bool
	javaCrashReporting   bool
	crashReportingJobID  int32
	pauseForDebugger     bool
	densityOverride      float32
	dpiOverride          int32
	screenWidthOverride  int32
	screenHeightOverride int32
}

// New creates a registry with every slot at its default.
func New() *Registry {
	if debugAssertions {
		validateSchema()
	}

	r := &Registry{
		args:            []string{},
		extras:          Extras{},
		densityOverride: -1,
	}
	for i, def := range schema {
		r.slots[i] = value.NewSlot(def.Name, def.Default)
	}
	return r
}

// NewFrom creates a registry carrying over the explicitly set slots of other.
// Slots other left at their default start at the default here too, so they
// stay free to be reset. Process settings are always copied.
func NewFrom(other *Registry) (*Registry, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: source registry is nil", ErrInvalidArgument)
	}

	r := New()
	for i, s := range other.slots {
		if !s.IsSet() {
			continue
		}
		r.slots[i].Set(s.Get(), r.sink)
	}

	r.useContentProcess = other.useContentProcess
	r.args = slices.Clone(other.args)
	r.extras = other.extras.Clone()
	r.nativeCrashReporting = other.nativeCrashReporting
	r.javaCrashReporting = other.javaCrashReporting
	r.crashReportingJobID = other.crashReportingJobID
	r.pauseForDebugger = other.pauseForDebugger
	r.densityOverride = other.densityOverride
	r.dpiOverride = other.dpiOverride
	r.screenWidthOverride = other.screenWidthOverride
	r.screenHeightOverride = other.screenHeightOverride
	return r, nil
}

// Attach stores sink and flushes every slot to it in schema order, whether
// or not the slot was set explicitly. The sink decides from the explicit
// flag whether to honour the value or keep its own default.
func (r *Registry) Attach(sink Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: sink is nil", ErrInvalidArgument)
	}
	r.sink = sink
	r.Flush()
	return nil
}

// Detach drops the sink. Later changes are kept but not forwarded.
func (r *Registry) Detach() {
	r.sink = nil
}

// Sink returns the attached sink, or nil.
func (r *Registry) Sink() Sink {
	return r.sink
}

// Flush sends every slot to the attached sink in schema order.
// It is a no-op without a sink.
func (r *Registry) Flush() {
	for _, s := range r.slots {
		s.Flush(r.sink)
	}
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// Slot returns a view of the slot at p.
// It panics if p is not a schema position.
func (r *Registry) Slot(p Pref) SlotState {
	s := r.slots[p]
	return SlotState{
		Pref:     p,
		Name:     s.Name(),
		Default:  s.Default(),
		Value:    s.Get(),
		Explicit: s.IsSet(),
	}
}

// Slots returns views of every slot in schema order.
func (r *Registry) Slots() []SlotState {
	states := make([]SlotState, len(r.slots))
	for i := range r.slots {
		states[i] = r.Slot(Pref(i))
	}
	return states
}

// Get returns the current value at p.
func (r *Registry) Get(p Pref) value.Value {
	return r.slots[p].Get()
}

// IsSet reports whether the slot at p was set explicitly.
func (r *Registry) IsSet(p Pref) bool {
	return r.slots[p].IsSet()
}

// Set assigns v to the slot at p and forwards it to the attached sink.
func (r *Registry) Set(p Pref, v value.Value) error {
	if !p.Valid() {
		return fmt.Errorf("%w: position %d", ErrUnknownPref, int(p))
	}
	s := r.slots[p]
	if v.Kind() != s.Kind() {
		return &TypeError{Name: s.Name(), Expected: s.Kind(), Actual: v.Kind()}
	}
	s.Set(v, r.sink)
	return nil
}

// SetByName assigns v to the named slot.
func (r *Registry) SetByName(name string, v value.Value) error {
	p, ok := Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPref, name)
	}
	return r.Set(p, v)
}

// set is the typed-accessor path; kinds are guaranteed by the caller.
func (r *Registry) set(p Pref, v value.Value) {
	r.slots[p].Set(v, r.sink)
}
