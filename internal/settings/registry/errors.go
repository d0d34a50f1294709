package registry

import (
	"errors"
	"fmt"

	"github.com/dshills/runtimeprefs/internal/settings/parcel"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Errors returned by registry operations.
var (
	// ErrInvalidArgument indicates a required collaborator was nil.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownPref indicates a name or position outside the schema.
	ErrUnknownPref = errors.New("unknown preference")

	// ErrTypeMismatch indicates the value kind doesn't match the slot kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMalformed indicates serialized registry data could not be decoded.
	// Decoding failures are *parcel.FormatError values that match it.
	ErrMalformed = parcel.ErrMalformed
)

// TypeError is returned when a value of the wrong kind is offered to a slot.
type TypeError struct {
	// Name is the preference name.
	Name string
	// Expected is the slot kind.
	Expected value.Kind
	// Actual is the offered kind.
	Actual value.Kind
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("type error for %s: expected %s, got %s", e.Name, e.Expected, e.Actual)
}

// Is implements error matching for TypeError.
func (e *TypeError) Is(target error) bool {
	return target == ErrTypeMismatch
}
