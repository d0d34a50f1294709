package registry

import "github.com/dshills/runtimeprefs/internal/settings/category"

// Builder assembles a Registry with chained setters.
// The first invalid argument is remembered and reported by Build.
type Builder struct {
	r   *Registry
	err error
}

// NewBuilder starts from a fresh registry.
func NewBuilder() *Builder {
	return &Builder{r: New()}
}

// NewBuilderFrom starts from the explicit settings of base.
func NewBuilderFrom(base *Registry) (*Builder, error) {
	r, err := NewFrom(base)
	if err != nil {
		return nil, err
	}
	return &Builder{r: r}, nil
}

// Build returns a new registry with the accumulated settings.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewFrom(b.r)
}

func (b *Builder) keep(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// UseContentProcessHint sets the content process hint.
func (b *Builder) UseContentProcessHint(use bool) *Builder {
	b.r.SetUseContentProcessHint(use)
	return b
}

// Arguments sets the runtime process arguments.
func (b *Builder) Arguments(args []string) *Builder {
	return b.keep(b.r.SetArguments(args))
}

// Extras sets the extras bag.
func (b *Builder) Extras(extras Extras) *Builder {
	return b.keep(b.r.SetExtras(extras))
}

// JavaScriptEnabled sets whether JavaScript is enabled.
func (b *Builder) JavaScriptEnabled(enabled bool) *Builder {
	b.r.SetJavaScriptEnabled(enabled)
	return b
}

// RemoteDebuggingEnabled sets whether remote debugging is enabled.
func (b *Builder) RemoteDebuggingEnabled(enabled bool) *Builder {
	b.r.SetRemoteDebuggingEnabled(enabled)
	return b
}

// WebFontsEnabled sets whether pages may use web fonts.
func (b *Builder) WebFontsEnabled(enabled bool) *Builder {
	b.r.SetWebFontsEnabled(enabled)
	return b
}

// NativeCrashReportingEnabled sets whether native crashes are reported.
func (b *Builder) NativeCrashReportingEnabled(enabled bool) *Builder {
	b.r.SetNativeCrashReportingEnabled(enabled)
	return b
}

// JavaCrashReportingEnabled sets whether managed-code crashes are reported.
func (b *Builder) JavaCrashReportingEnabled(enabled bool) *Builder {
	b.r.SetJavaCrashReportingEnabled(enabled)
	return b
}

// CrashReportingJobID sets the crash reporting job id.
func (b *Builder) CrashReportingJobID(id int32) *Builder {
	b.r.SetCrashReportingJobID(id)
	return b
}

// PauseForDebugger sets whether startup pauses for a debugger.
func (b *Builder) PauseForDebugger(enabled bool) *Builder {
	b.r.SetPauseForDebugger(enabled)
	return b
}

// CookieBehavior sets the cookie storage behavior.
func (b *Builder) CookieBehavior(behavior CookieBehavior) *Builder {
	b.r.SetCookieBehavior(behavior)
	return b
}

// CookieLifetime sets the enforced cookie lifetime.
func (b *Builder) CookieLifetime(lifetime CookieLifetime) *Builder {
	b.r.SetCookieLifetime(lifetime)
	return b
}

// TrackingProtectionCategories sets the tracker categories to block.
func (b *Builder) TrackingProtectionCategories(c category.Category) *Builder {
	b.r.SetTrackingProtectionCategories(c)
	return b
}

// ConsoleOutput sets whether web console messages go to the system log.
func (b *Builder) ConsoleOutput(enabled bool) *Builder {
	b.r.SetConsoleOutputEnabled(enabled)
	return b
}

// DisplayDensityOverride sets the display density override.
func (b *Builder) DisplayDensityOverride(density float32) *Builder {
	b.r.SetDisplayDensityOverride(density)
	return b
}

// BlockMalware sets whether known malware sites are blocked.
func (b *Builder) BlockMalware(enabled bool) *Builder {
	b.r.SetBlockMalware(enabled)
	return b
}

// BlockPhishing sets whether known phishing sites are blocked.
func (b *Builder) BlockPhishing(enabled bool) *Builder {
	b.r.SetBlockPhishing(enabled)
	return b
}

// DisplayDPIOverride sets the display DPI override.
func (b *Builder) DisplayDPIOverride(dpi int32) *Builder {
	b.r.SetDisplayDPIOverride(dpi)
	return b
}

// ScreenSizeOverride sets the screen size override.
func (b *Builder) ScreenSizeOverride(width, height int32) *Builder {
	b.r.SetScreenSizeOverride(width, height)
	return b
}
