package parcel

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

func TestWriterReader_Primitives(t *testing.T) {
	w := NewWriter()
	w.WriteBool(true)
	w.WriteInt32(-12)
	w.WriteFloat32(-1)
	w.WriteFloat64(3.25)
	w.WriteString("héllo")
	w.WriteStringList([]string{"-profile", ""})
	w.WriteStringList(nil)
	w.WriteBlob([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if !r.ReadBool("b") {
		t.Error("ReadBool = false")
	}
	if got := r.ReadInt32("i"); got != -12 {
		t.Errorf("ReadInt32 = %d", got)
	}
	if got := r.ReadFloat32("f32"); got != -1 {
		t.Errorf("ReadFloat32 = %v", got)
	}
	if got := r.ReadFloat64("f64"); got != 3.25 {
		t.Errorf("ReadFloat64 = %v", got)
	}
	if got := r.ReadString("s"); got != "héllo" {
		t.Errorf("ReadString = %q", got)
	}
	if got := r.ReadStringList("list"); !reflect.DeepEqual(got, []string{"-profile", ""}) {
		t.Errorf("ReadStringList = %#v", got)
	}
	if got := r.ReadStringList("nil list"); got != nil {
		t.Errorf("ReadStringList(nil) = %#v", got)
	}
	if got := r.ReadBlob("blob"); !reflect.DeepEqual(got, []byte{1, 2, 3}) {
		t.Errorf("ReadBlob = %v", got)
	}
	if err := r.Done(); err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestWriterReader_Values(t *testing.T) {
	values := []value.Value{
		value.Bool(false),
		value.Int(2),
		value.Float(0.1),
		value.String("ads-track-digest256"),
	}

	w := NewWriter()
	for _, v := range values {
		w.WriteValue(v)
	}

	r := NewReader(w.Bytes())
	for _, want := range values {
		got := r.ReadValueOf("v", want.Kind())
		if !got.Equal(want) {
			t.Errorf("ReadValueOf = %v, want %v", got, want)
		}
	}
	if err := r.Done(); err != nil {
		t.Fatalf("Done: %v", err)
	}
}

func TestReader_Truncated(t *testing.T) {
	w := NewWriter()
	w.WriteString("abcdef")
	data := w.Bytes()[:6]

	r := NewReader(data)
	_ = r.ReadString("name")

	err := r.Err()
	if err == nil {
		t.Fatal("expected error for truncated string")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error %v should match ErrMalformed", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("error %T is not *FormatError", err)
	}
	if fe.Field != "name" {
		t.Errorf("Field = %q, want name", fe.Field)
	}
}

func TestReader_ErrorIsSticky(t *testing.T) {
	r := NewReader([]byte{1, 0})
	_ = r.ReadInt32("first")
	first := r.Err()

	_ = r.ReadInt32("second")

	if r.Err() != first {
		t.Error("first error should be retained")
	}
}

func TestReader_InvalidBool(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(2)

	r := NewReader(w.Bytes())
	_ = r.ReadBool("flag")
	if !errors.Is(r.Err(), ErrMalformed) {
		t.Errorf("expected malformed error, got %v", r.Err())
	}
}

func TestReader_UnknownTag(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(42)
	w.WriteInt32(0)

	r := NewReader(w.Bytes())
	_ = r.ReadValue("pref")
	if r.Err() == nil {
		t.Error("expected error for unknown tag")
	}
}

func TestReader_NullTagRejected(t *testing.T) {
	w := NewWriter()
	w.WriteValue(value.Value{})

	r := NewReader(w.Bytes())
	_ = r.ReadValue("pref")
	if r.Err() == nil {
		t.Error("expected error for null tag")
	}
}

func TestReader_KindMismatch(t *testing.T) {
	w := NewWriter()
	w.WriteValue(value.Int(1))

	r := NewReader(w.Bytes())
	_ = r.ReadValueOf("javascript.enabled", value.KindBool)
	if r.Err() == nil {
		t.Error("expected error for kind mismatch")
	}
}

func TestReader_NegativeLengths(t *testing.T) {
	tests := []struct {
		name string
		read func(r *Reader)
	}{
		{"string", func(r *Reader) { r.ReadString("s") }},
		{"blob", func(r *Reader) { r.ReadBlob("b") }},
		{"list", func(r *Reader) { r.ReadStringList("l") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			w.WriteInt32(-5)
			r := NewReader(w.Bytes())
			tt.read(r)
			if r.Err() == nil {
				t.Error("expected error for negative length")
			}
		})
	}
}

func TestReader_HugeListCount(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(1 << 30)

	r := NewReader(w.Bytes())
	if got := r.ReadStringList("args"); got != nil {
		t.Errorf("ReadStringList = %v, want nil", got)
	}
	if r.Err() == nil {
		t.Error("expected error for oversized list")
	}
}

func TestReader_TrailingBytes(t *testing.T) {
	w := NewWriter()
	w.WriteInt32(1)
	w.WriteInt32(2)

	r := NewReader(w.Bytes())
	_ = r.ReadInt32("one")
	if err := r.Done(); err == nil {
		t.Error("expected error for trailing bytes")
	}
}

func TestTagFor(t *testing.T) {
	tests := []struct {
		kind value.Kind
		tag  int32
		ok   bool
	}{
		{value.KindString, TagString, true},
		{value.KindInt, TagInt, true},
		{value.KindFloat, TagFloat, true},
		{value.KindBool, TagBool, true},
		{value.KindInvalid, TagNull, false},
	}

	for _, tt := range tests {
		tag, ok := TagFor(tt.kind)
		if tag != tt.tag || ok != tt.ok {
			t.Errorf("TagFor(%v) = %d, %v; want %d, %v", tt.kind, tag, ok, tt.tag, tt.ok)
		}
	}
}
