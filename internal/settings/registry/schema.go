package registry

import (
	"fmt"

	"github.com/dshills/runtimeprefs/internal/settings/category"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// Pref identifies a slot by its fixed position in the schema.
type Pref int

// Schema positions. The order is part of the wire format.
const (
	PrefCookieBehavior Pref = iota
	PrefCookieLifetime
	PrefConsoleOutput
	PrefJavaScript
	PrefRemoteDebugging
	PrefSafeBrowsingMalware
	PrefSafeBrowsingPhishing
	PrefTrackingProtection
	PrefWebFonts

	prefCount
)

// Definition declares one slot of the schema.
type Definition struct {
	// Name is the runtime preference name.
	Name string

	// Default is the value a fresh registry holds; its kind is the slot kind.
	Default value.Value

	// Description is human-readable documentation.
	Description string
}

// CookieBehavior selects which cookies and site data are stored.
type CookieBehavior int32

// Cookie behaviors, in sync with the runtime's cookie service.
const (
	// CookieAcceptAll accepts first- and third-party cookies.
	CookieAcceptAll CookieBehavior = 0
	// CookieAcceptFirstParty accepts only cookies of the visited site.
	CookieAcceptFirstParty CookieBehavior = 1
	// CookieAcceptNone stores no cookies at all.
	CookieAcceptNone CookieBehavior = 2
	// CookieAcceptVisited accepts third-party cookies only from sites
	// previously visited first-party.
	CookieAcceptVisited CookieBehavior = 3
)

// CookieLifetime selects how long cookies are kept.
type CookieLifetime int32

// Cookie lifetimes, in sync with the runtime's cookie service.
const (
	// CookieLifetimeNormal keeps the lifetime set by the site.
	CookieLifetimeNormal CookieLifetime = 0
	// CookieLifetimeRuntime downgrades cookies to the runtime's lifetime.
	CookieLifetimeRuntime CookieLifetime = 2
	// CookieLifetimeDays limits cookies to a number of days (90 by default).
	CookieLifetimeDays CookieLifetime = 3
)

// ExtraCrashReportingJobID is the extras key carrying the crash reporting job id.
const ExtraCrashReportingJobID = "crashReporterJobId"

// defaultTrackingCategories is blocked unless configured otherwise.
const defaultTrackingCategories = category.Test | category.Analytic | category.Social | category.Ad

var schema = [prefCount]Definition{
	PrefCookieBehavior: {
		Name:        "network.cookie.cookieBehavior",
		Default:     value.Int(int32(CookieAcceptAll)),
		Description: "Cookie storage behavior",
	},
	PrefCookieLifetime: {
		Name:        "network.cookie.lifetimePolicy",
		Default:     value.Int(int32(CookieLifetimeNormal)),
		Description: "Enforced cookie lifetime",
	},
	PrefConsoleOutput: {
		Name:        "geckoview.console.enabled",
		Default:     value.Bool(false),
		Description: "Forward web console messages to the system log",
	},
	PrefJavaScript: {
		Name:        "javascript.enabled",
		Default:     value.Bool(true),
		Description: "Enable JavaScript",
	},
	PrefRemoteDebugging: {
		Name:        "devtools.debugger.remote-enabled",
		Default:     value.Bool(false),
		Description: "Enable remote debugging",
	},
	PrefSafeBrowsingMalware: {
		Name:        "browser.safebrowsing.malware.enabled",
		Default:     value.Bool(true),
		Description: "Block known malware sites",
	},
	PrefSafeBrowsingPhishing: {
		Name:        "browser.safebrowsing.phishing.enabled",
		Default:     value.Bool(true),
		Description: "Block known phishing sites",
	},
	PrefTrackingProtection: {
		Name:        "urlclassifier.trackingTable",
		Default:     value.String(category.Encode(defaultTrackingCategories)),
		Description: "Tracking protection tables to block",
	},
	PrefWebFonts: {
		Name:        "browser.display.use_document_fonts",
		Default:     value.Bool(true),
		Description: "Allow pages to use web fonts",
	},
}

var byName = func() map[string]Pref {
	m := make(map[string]Pref, len(schema))
	for i, def := range schema {
		m[def.Name] = Pref(i)
	}
	return m
}()

// Schema returns a copy of the slot definitions in position order.
func Schema() []Definition {
	defs := make([]Definition, len(schema))
	copy(defs, schema[:])
	return defs
}

// Lookup returns the position of the named preference.
func Lookup(name string) (Pref, bool) {
	p, ok := byName[name]
	return p, ok
}

// Valid reports whether p is a schema position.
func (p Pref) Valid() bool {
	return p >= 0 && p < prefCount
}

// String returns the preference name.
func (p Pref) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Pref(%d)", int(p))
	}
	return schema[p].Name
}

// Kind returns the kind of the slot at p.
func (p Pref) Kind() value.Kind {
	if !p.Valid() {
		return value.KindInvalid
	}
	return schema[p].Default.Kind()
}

// validateSchema panics when the declared schema is inconsistent. These are
// programming errors.
func validateSchema() {
	if err := checkDefinitions(schema[:]); err != nil {
		panic("registry: " + err.Error())
	}
	if len(byName) != int(prefCount) {
		panic(fmt.Sprintf("registry: %d preferences declared, %d registered", prefCount, len(byName)))
	}
}

// checkDefinitions reports the first position without a definition, empty or
// duplicate name, or invalid default in defs.
func checkDefinitions(defs []Definition) error {
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("schema position %d has no definition", i)
		}
		if seen[def.Name] {
			return fmt.Errorf("preference %q declared twice", def.Name)
		}
		if !def.Default.IsValid() {
			return fmt.Errorf("preference %q has an invalid default", def.Name)
		}
		seen[def.Name] = true
	}
	return nil
}
