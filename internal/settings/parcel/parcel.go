// Package parcel implements the flat binary encoding used to move preference
// state across a process boundary.
//
// The format carries no field names. Producer and consumer must agree on the
// order of reads and writes; the only self-description is the tag written in
// front of each typed value. All integers are little-endian, booleans are
// written as 32-bit integers and strings as a 32-bit byte length followed by
// UTF-8 bytes.
package parcel

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Value tags. The numbering follows the Android Parcel value tags so dumps
// stay recognisable next to the runtime's own.
const (
	TagNull   int32 = -1
	TagString int32 = 0
	TagInt    int32 = 1
	TagFloat  int32 = 8
	TagBool   int32 = 9
)

// nullLength marks a nil string or list.
const nullLength int32 = -1

// ErrMalformed is matched by every decoding failure.
var ErrMalformed = errors.New("malformed parcel")

// FormatError describes where decoding stopped.
type FormatError struct {
	// Offset is the byte offset at which the failing read started.
	Offset int
	// Field names what was being read.
	Field string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed parcel at offset %d reading %s: %v", e.Offset, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is implements error matching for FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrMalformed
}

// TagFor returns the wire tag for a value kind.
func TagFor(k value.Kind) (int32, bool) {
	switch k {
	case value.KindString:
		return TagString, true
	case value.KindInt:
		return TagInt, true
	case value.KindFloat:
		return TagFloat, true
	case value.KindBool:
		return TagBool, true
	default:
		return TagNull, false
	}
}

// Writer appends encoded fields to an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded data.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteInt32 appends a 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// WriteBool appends a boolean as a 32-bit 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteInt32(1)
		return
	}
	w.WriteInt32(0)
}

// WriteFloat32 appends an IEEE-754 single.
func (w *Writer) WriteFloat32(v float32) {
	w.WriteInt32(int32(math.Float32bits(v)))
}

// WriteFloat64 appends an IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

// WriteString appends a length-prefixed string.
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	w.buf.WriteString(s)
}

// WriteStringList appends a count followed by each string. A nil list is
// written as a null marker.
func (w *Writer) WriteStringList(list []string) {
	if list == nil {
		w.WriteInt32(nullLength)
		return
	}
	w.WriteInt32(int32(len(list)))
	for _, s := range list {
		w.WriteString(s)
	}
}

// WriteBlob appends a length-prefixed byte block.
func (w *Writer) WriteBlob(b []byte) {
	w.WriteInt32(int32(len(b)))
	w.buf.Write(b)
}

// WriteValue appends a tag followed by the payload of v.
// Invalid values are written as a bare null tag.
func (w *Writer) WriteValue(v value.Value) {
	switch v.Kind() {
	case value.KindBool:
		w.WriteInt32(TagBool)
		w.WriteBool(v.Bool())
	case value.KindInt:
		w.WriteInt32(TagInt)
		w.WriteInt32(v.Int())
	case value.KindFloat:
		w.WriteInt32(TagFloat)
		w.WriteFloat64(v.Float())
	case value.KindString:
		w.WriteInt32(TagString)
		w.WriteString(v.Text())
	default:
		w.WriteInt32(TagNull)
	}
}

// Reader decodes fields from a byte slice. The first failure is sticky:
// subsequent reads return zero values and Err reports the original cause.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Done reports an error if decoding failed or bytes remain unread.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n > 0 {
		r.fail(r.off, "end of parcel", fmt.Errorf("%d trailing bytes", n))
	}
	return r.err
}

func (r *Reader) fail(off int, field string, err error) {
	if r.err == nil {
		r.err = &FormatError{Offset: off, Field: field, Err: err}
	}
}

func (r *Reader) take(n int, field string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.fail(r.off, field, fmt.Errorf("need %d bytes, have %d", n, r.Remaining()))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadInt32 reads a 32-bit integer.
func (r *Reader) ReadInt32(field string) int32 {
	b := r.take(4, field)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// ReadBool reads a boolean. Anything other than 0 or 1 is malformed.
func (r *Reader) ReadBool(field string) bool {
	off := r.off
	v := r.ReadInt32(field)
	switch v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail(off, field, fmt.Errorf("invalid boolean %d", v))
		return false
	}
}

// ReadFloat32 reads an IEEE-754 single.
func (r *Reader) ReadFloat32(field string) float32 {
	return math.Float32frombits(uint32(r.ReadInt32(field)))
}

// ReadFloat64 reads an IEEE-754 double.
func (r *Reader) ReadFloat64(field string) float64 {
	b := r.take(8, field)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// ReadString reads a length-prefixed string. A null marker is malformed.
func (r *Reader) ReadString(field string) string {
	off := r.off
	n := r.ReadInt32(field)
	if r.err != nil {
		return ""
	}
	if n < 0 {
		r.fail(off, field, fmt.Errorf("invalid string length %d", n))
		return ""
	}
	return string(r.take(int(n), field))
}

// ReadStringList reads a list written by WriteStringList. A null marker
// decodes to a nil slice.
func (r *Reader) ReadStringList(field string) []string {
	off := r.off
	n := r.ReadInt32(field)
	if r.err != nil {
		return nil
	}
	if n == nullLength {
		return nil
	}
	if n < 0 {
		r.fail(off, field, fmt.Errorf("invalid list length %d", n))
		return nil
	}
	// Each element needs at least its 4-byte length.
	if int64(n)*4 > int64(r.Remaining()) {
		r.fail(off, field, fmt.Errorf("list of %d strings exceeds %d remaining bytes", n, r.Remaining()))
		return nil
	}
	list := make([]string, 0, n)
	for i := int32(0); i < n && r.err == nil; i++ {
		list = append(list, r.ReadString(field))
	}
	if r.err != nil {
		return nil
	}
	return list
}

// ReadBlob reads a length-prefixed byte block. The returned slice aliases
// the input.
func (r *Reader) ReadBlob(field string) []byte {
	off := r.off
	n := r.ReadInt32(field)
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.fail(off, field, fmt.Errorf("invalid blob length %d", n))
		return nil
	}
	return r.take(int(n), field)
}

// ReadValue reads a tagged value. A null or unknown tag is malformed.
func (r *Reader) ReadValue(field string) value.Value {
	off := r.off
	tag := r.ReadInt32(field)
	if r.err != nil {
		return value.Value{}
	}
	switch tag {
	case TagBool:
		return value.Bool(r.ReadBool(field))
	case TagInt:
		return value.Int(r.ReadInt32(field))
	case TagFloat:
		return value.Float(r.ReadFloat64(field))
	case TagString:
		return value.String(r.ReadString(field))
	default:
		r.fail(off, field, fmt.Errorf("unsupported value tag %d", tag))
		return value.Value{}
	}
}

// ReadValueOf reads a tagged value and requires it to be of kind k.
func (r *Reader) ReadValueOf(field string, k value.Kind) value.Value {
	off := r.off
	v := r.ReadValue(field)
	if r.err != nil {
		return value.Value{}
	}
	if v.Kind() != k {
		r.fail(off, field, fmt.Errorf("expected %s, got %s", k, v.Kind()))
		return value.Value{}
	}
	return v
}
