package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Extras is the free-form key-value bag handed to the runtime process.
type Extras map[string]value.Value

// Clone returns a copy of e. The clone of a nil bag is an empty bag.
func (e Extras) Clone() Extras {
	out := make(Extras, len(e))
	maps.Copy(out, e)
	return out
}

// Keys returns the keys in sorted order.
func (e Extras) Keys() []string {
	var keys []string
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// UseContentProcessHint reports whether the content process should be
// started ahead of first use.
func (r *Registry) UseContentProcessHint() bool {
	return r.useContentProcess
}

// SetUseContentProcessHint sets the content process hint.
func (r *Registry) SetUseContentProcessHint(use bool) {
	r.useContentProcess = use
}

// Arguments returns the runtime process arguments. The slice is shared.
func (r *Registry) Arguments() []string {
	return r.args
}

// SetArguments replaces the runtime process arguments.
func (r *Registry) SetArguments(args []string) error {
	if args == nil {
		return fmt.Errorf("%w: arguments must not be nil", ErrInvalidArgument)
	}
	r.args = args
	return nil
}

// Extras returns the extras bag. Entries may be added in place.
func (r *Registry) Extras() Extras {
	return r.extras
}

// SetExtras replaces the extras bag.
func (r *Registry) SetExtras(extras Extras) error {
	if extras == nil {
		return fmt.Errorf("%w: extras must not be nil", ErrInvalidArgument)
	}
	r.extras = extras
	return nil
}

// NativeCrashReportingEnabled reports whether native crashes are reported.
func (r *Registry) NativeCrashReportingEnabled() bool {
	return r.nativeCrashReporting
}

// SetNativeCrashReportingEnabled sets whether native crashes are reported.
// A crash reporting job id must be set as well when enabling it.
func (r *Registry) SetNativeCrashReportingEnabled(enabled bool) {
	r.nativeCrashReporting = enabled
}

// JavaCrashReportingEnabled reports whether managed-code crashes are reported.
func (r *Registry) JavaCrashReportingEnabled() bool {
	return r.javaCrashReporting
}

// SetJavaCrashReportingEnabled sets whether managed-code crashes are
// reported.
func (r *Registry) SetJavaCrashReportingEnabled(enabled bool) {
	r.javaCrashReporting = enabled
}

// CrashReportingJobID returns the id of the background crash reporting job.
func (r *Registry) CrashReportingJobID() int32 {
	return r.crashReportingJobID
}

// SetCrashReportingJobID sets the id of the background crash reporting job.
// It must be unique among the host's scheduled jobs.
func (r *Registry) SetCrashReportingJobID(id int32) {
	r.crashReportingJobID = id
}

// PauseForDebugger reports whether startup pauses for a debugger to attach.
func (r *Registry) PauseForDebugger() bool {
	return r.pauseForDebugger
}

// SetPauseForDebugger sets whether startup pauses for a debugger to attach.
func (r *Registry) SetPauseForDebugger(enabled bool) {
	r.pauseForDebugger = enabled
}

// DisplayDensityOverride returns the display density override. The second
// result is false when no positive override is set.
func (r *Registry) DisplayDensityOverride() (float32, bool) {
	if r.densityOverride > 0 {
		return r.densityOverride, true
	}
	return 0, false
}

// SetDisplayDensityOverride sets the display density override.
// A non-positive density clears it.
func (r *Registry) SetDisplayDensityOverride(density float32) {
	r.densityOverride = density
}

// DisplayDPIOverride returns the display DPI override. The second result is
// false when no positive override is set.
func (r *Registry) DisplayDPIOverride() (int32, bool) {
	if r.dpiOverride > 0 {
		return r.dpiOverride, true
	}
	return 0, false
}

// SetDisplayDPIOverride sets the display DPI override.
// A non-positive DPI clears it.
func (r *Registry) SetDisplayDPIOverride(dpi int32) {
	r.dpiOverride = dpi
}

// ScreenSizeOverride returns the screen size override. ok is false unless
// both dimensions are positive.
func (r *Registry) ScreenSizeOverride() (width, height int32, ok bool) {
	if r.screenWidthOverride > 0 && r.screenHeightOverride > 0 {
		return r.screenWidthOverride, r.screenHeightOverride, true
	}
	return 0, 0, false
}

// SetScreenSizeOverride sets the screen size override.
func (r *Registry) SetScreenSizeOverride(width, height int32) {
	r.screenWidthOverride = width
	r.screenHeightOverride = height
}
