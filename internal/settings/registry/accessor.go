package registry

import (
	"github.com/dshills/runtimeprefs/internal/settings/category"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Typed accessors. Each delegates to its slot; setters forward to the
// attached sink. Enum-like integers are passed through unchecked.

// CookieBehavior returns the cookie storage behavior.
func (r *Registry) CookieBehavior() CookieBehavior {
	return CookieBehavior(r.Get(PrefCookieBehavior).Int())
}

// SetCookieBehavior sets the cookie storage behavior.
func (r *Registry) SetCookieBehavior(b CookieBehavior) {
	r.set(PrefCookieBehavior, value.Int(int32(b)))
}

// CookieLifetime returns the enforced cookie lifetime.
func (r *Registry) CookieLifetime() CookieLifetime {
	return CookieLifetime(r.Get(PrefCookieLifetime).Int())
}

// SetCookieLifetime sets the enforced cookie lifetime.
func (r *Registry) SetCookieLifetime(l CookieLifetime) {
	r.set(PrefCookieLifetime, value.Int(int32(l)))
}

// ConsoleOutputEnabled reports whether web console messages go to the
// system log.
func (r *Registry) ConsoleOutputEnabled() bool {
	return r.Get(PrefConsoleOutput).Bool()
}

// SetConsoleOutputEnabled sets whether web console messages go to the
// system log. Heavy console use by content slows the runtime down when
// this is on.
func (r *Registry) SetConsoleOutputEnabled(enabled bool) {
	r.set(PrefConsoleOutput, value.Bool(enabled))
}

// JavaScriptEnabled reports whether JavaScript is enabled.
func (r *Registry) JavaScriptEnabled() bool {
	return r.Get(PrefJavaScript).Bool()
}

// SetJavaScriptEnabled sets whether JavaScript is enabled.
func (r *Registry) SetJavaScriptEnabled(enabled bool) {
	r.set(PrefJavaScript, value.Bool(enabled))
}

// RemoteDebuggingEnabled reports whether remote debugging is enabled.
func (r *Registry) RemoteDebuggingEnabled() bool {
	return r.Get(PrefRemoteDebugging).Bool()
}

// SetRemoteDebuggingEnabled sets whether remote debugging is enabled.
func (r *Registry) SetRemoteDebuggingEnabled(enabled bool) {
	r.set(PrefRemoteDebugging, value.Bool(enabled))
}

// BlockMalware reports whether known malware sites are blocked.
func (r *Registry) BlockMalware() bool {
	return r.Get(PrefSafeBrowsingMalware).Bool()
}

// SetBlockMalware sets whether known malware sites are blocked.
func (r *Registry) SetBlockMalware(enabled bool) {
	r.set(PrefSafeBrowsingMalware, value.Bool(enabled))
}

// BlockPhishing reports whether known phishing sites are blocked.
func (r *Registry) BlockPhishing() bool {
	return r.Get(PrefSafeBrowsingPhishing).Bool()
}

// SetBlockPhishing sets whether known phishing sites are blocked.
func (r *Registry) SetBlockPhishing(enabled bool) {
	r.set(PrefSafeBrowsingPhishing, value.Bool(enabled))
}

// TrackingProtectionCategories returns the tracker categories being blocked.
func (r *Registry) TrackingProtectionCategories() category.Category {
	return category.Decode(r.Get(PrefTrackingProtection).Text())
}

// SetTrackingProtectionCategories sets the tracker categories to block.
func (r *Registry) SetTrackingProtectionCategories(c category.Category) {
	r.set(PrefTrackingProtection, value.String(category.Encode(c)))
}

// WebFontsEnabled reports whether pages may use web fonts.
func (r *Registry) WebFontsEnabled() bool {
	return r.Get(PrefWebFonts).Bool()
}

// SetWebFontsEnabled sets whether pages may use web fonts.
func (r *Registry) SetWebFontsEnabled(enabled bool) {
	r.set(PrefWebFonts, value.Bool(enabled))
}
