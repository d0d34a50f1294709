package registry

import (
	"fmt"
	"io"

	"github.com/dshills/runtimeprefs/internal/settings/parcel"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// MarshalBinary encodes the registry. Fields are written in this order:
//
//	use-content-process hint
//	arguments
//	extras (length-prefixed block)
//	one tagged value per slot, in schema order
//	native crash reporting, java crash reporting, crash reporting job id,
//	pause for debugger, density, DPI, screen width, screen height
//
// Slot values are written without their explicit flags; a decoded registry
// reports every slot as explicitly set. An extras entry holding the zero
// Value cannot be decoded again and fails with ErrInvalidArgument.
func (r *Registry) MarshalBinary() ([]byte, error) {
	w := parcel.NewWriter()
	if err := r.encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// WriteTo writes the encoded registry to w.
func (r *Registry) WriteTo(w io.Writer) (int64, error) {
	data, err := r.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// UnmarshalBinary replaces the state of r with the decoded data. Every slot
// is set explicitly and forwarded to the attached sink. Nothing is changed
// if data is malformed.
func (r *Registry) UnmarshalBinary(data []byte) error {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return err
	}
	snap.apply(r)
	return nil
}

// Decode creates a registry from data produced by MarshalBinary.
func Decode(data []byte) (*Registry, error) {
	r := New()
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadFrom decodes a registry from everything remaining in rd.
func ReadFrom(rd io.Reader) (*Registry, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	return Decode(data)
}

func (r *Registry) encode(w *parcel.Writer) error {
	extras, err := encodeExtras(r.extras)
	if err != nil {
		return err
	}

	w.WriteBool(r.useContentProcess)
	w.WriteStringList(r.args)
	w.WriteBlob(extras)

	for _, s := range r.slots {
		w.WriteValue(s.Get())
	}

	w.WriteBool(r.nativeCrashReporting)
	w.WriteBool(r.javaCrashReporting)
	w.WriteInt32(r.crashReportingJobID)
	w.WriteBool(r.pauseForDebugger)
	w.WriteFloat32(r.densityOverride)
	w.WriteInt32(r.dpiOverride)
	w.WriteInt32(r.screenWidthOverride)
	w.WriteInt32(r.screenHeightOverride)
	return nil
}

// snapshot holds a fully decoded registry before it is applied.
type snapshot struct {
	useContentProcess    bool
	args                 []string
	extras               Extras
	values               [prefCount]value.Value
	nativeCrashReporting bool
	javaCrashReporting   bool
	crashReportingJobID  int32
	pauseForDebugger     bool
	densityOverride      float32
	dpiOverride          int32
	screenWidthOverride  int32
	screenHeightOverride int32
}

func decodeSnapshot(data []byte) (*snapshot, error) {
	rd := parcel.NewReader(data)
	snap := &snapshot{}

	snap.useContentProcess = rd.ReadBool("use content process")
	snap.args = rd.ReadStringList("arguments")
	extrasOff := rd.Offset()
	extrasBlob := rd.ReadBlob("extras")
	if err := rd.Err(); err != nil {
		return nil, err
	}
	extras, err := decodeExtras(extrasBlob)
	if err != nil {
		return nil, &parcel.FormatError{Offset: extrasOff, Field: "extras", Err: err}
	}
	snap.extras = extras

	for i, def := range schema {
		snap.values[i] = rd.ReadValueOf(def.Name, def.Default.Kind())
	}

	snap.nativeCrashReporting = rd.ReadBool("native crash reporting")
	snap.javaCrashReporting = rd.ReadBool("java crash reporting")
	snap.crashReportingJobID = rd.ReadInt32("crash reporting job id")
	snap.pauseForDebugger = rd.ReadBool("pause for debugger")
	snap.densityOverride = rd.ReadFloat32("display density override")
	snap.dpiOverride = rd.ReadInt32("display dpi override")
	snap.screenWidthOverride = rd.ReadInt32("screen width override")
	snap.screenHeightOverride = rd.ReadInt32("screen height override")

	if err := rd.Done(); err != nil {
		return nil, err
	}
	if snap.args == nil {
		snap.args = []string{}
	}
	return snap, nil
}

func (s *snapshot) apply(r *Registry) {
	r.useContentProcess = s.useContentProcess
	r.args = s.args
	r.extras = s.extras

	for i, v := range s.values {
		r.slots[i].Set(v, r.sink)
	}

	r.nativeCrashReporting = s.nativeCrashReporting
	r.javaCrashReporting = s.javaCrashReporting
	r.crashReportingJobID = s.crashReportingJobID
	r.pauseForDebugger = s.pauseForDebugger
	r.densityOverride = s.densityOverride
	r.dpiOverride = s.dpiOverride
	r.screenWidthOverride = s.screenWidthOverride
	r.screenHeightOverride = s.screenHeightOverride
}

// encodeExtras writes the entry count followed by each key and tagged value,
// keys sorted so equal bags encode identically.
func encodeExtras(e Extras) ([]byte, error) {
	w := parcel.NewWriter()
	keys := e.Keys()
	w.WriteInt32(int32(len(keys)))
	for _, k := range keys {
		v := e[k]
		if !v.IsValid() {
			return nil, fmt.Errorf("%w: extras entry %q has no value", ErrInvalidArgument, k)
		}
		w.WriteString(k)
		w.WriteValue(v)
	}
	return w.Bytes(), nil
}

func decodeExtras(data []byte) (Extras, error) {
	rd := parcel.NewReader(data)
	n := rd.ReadInt32("extras count")
	if rd.Err() == nil && (n < 0 || int64(n)*8 > int64(rd.Remaining())) {
		return nil, fmt.Errorf("invalid extras count %d", n)
	}

	e := make(Extras, max(n, 0))
	for i := int32(0); i < n && rd.Err() == nil; i++ {
		k := rd.ReadString("extras key")
		e[k] = rd.ReadValue("extras value " + k)
	}
	if err := rd.Done(); err != nil {
		return nil, err
	}
	return e, nil
}
