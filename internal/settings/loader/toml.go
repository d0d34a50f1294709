package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/runtimeprefs/internal/settings/category"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

// File is a parsed settings file. Absent sections and keys leave the
// registry untouched.
type File struct {
	Process  *ProcessSection  `toml:"process"`
	Prefs    map[string]any   `toml:"prefs"`
	Tracking *TrackingSection `toml:"tracking"`
	Extras   map[string]any   `toml:"extras"`
	Crash    *CrashSection    `toml:"crash"`
	Debug    *DebugSection    `toml:"debug"`
	Display  *DisplaySection  `toml:"display"`
}

// ProcessSection configures the content process.
type ProcessSection struct {
	UseContentProcess *bool    `toml:"use_content_process"`
	Args              []string `toml:"args"`
}

// TrackingSection selects tracking protection categories by name.
type TrackingSection struct {
	Categories []string `toml:"categories"`
}

// CrashSection configures crash reporting.
type CrashSection struct {
	Native *bool  `toml:"native"`
	Java   *bool  `toml:"java"`
	JobID  *int32 `toml:"job_id"`
}

// DebugSection configures debugging.
type DebugSection struct {
	Pause *bool `toml:"pause"`
}

// DisplaySection configures display overrides.
type DisplaySection struct {
	Density *float32 `toml:"density"`
	DPI     *int32   `toml:"dpi"`
	Width   *int32   `toml:"width"`
	Height  *int32   `toml:"height"`
}

// Parse parses settings TOML. source names the data in errors. Unknown
// sections and keys are rejected.
func Parse(source string, data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, newParseError(source, err)
	}
	f.Prefs = flatten("", f.Prefs, nil)
	return &f, nil
}

// ParseReader parses settings TOML from r.
func ParseReader(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return Parse("<reader>", data)
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{
		Path:    source,
		Message: err.Error(),
		Err:     err,
	}

	var decErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case errors.As(err, &decErr):
		pe.Line, pe.Column = decErr.Position()
	case errors.As(err, &strictErr) && len(strictErr.Errors) > 0:
		pe.Line, pe.Column = strictErr.Errors[0].Position()
	}
	return pe
}

// flatten turns unquoted dotted keys, which TOML parses as nested tables,
// back into dotted preference names.
func flatten(prefix string, in map[string]any, out map[string]any) map[string]any {
	if in == nil {
		return out
	}
	if out == nil {
		out = make(map[string]any, len(in))
	}
	for k, v := range in {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = v
	}
	return out
}

// Apply applies the file to r. Preferences are applied in name order so
// errors are deterministic; [tracking] is applied after [prefs].
func (f *File) Apply(r *registry.Registry) error {
	if p := f.Process; p != nil {
		if p.UseContentProcess != nil {
			r.SetUseContentProcessHint(*p.UseContentProcess)
		}
		if p.Args != nil {
			if err := r.SetArguments(p.Args); err != nil {
				return err
			}
		}
	}

	names := make([]string, 0, len(f.Prefs))
	for name := range f.Prefs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := applyPref(r, name, f.Prefs[name]); err != nil {
			return &ValueError{Source: "file", Key: "prefs." + name, Err: err}
		}
	}

	if t := f.Tracking; t != nil && t.Categories != nil {
		c, err := category.Parse(t.Categories)
		if err != nil {
			return &ValueError{Source: "file", Key: "tracking.categories", Err: err}
		}
		r.SetTrackingProtectionCategories(c)
	}

	if f.Extras != nil {
		extras, err := toExtras(f.Extras)
		if err != nil {
			return &ValueError{Source: "file", Key: "extras", Err: err}
		}
		merged := r.Extras().Clone()
		for k, v := range extras {
			merged[k] = v
		}
		if err := r.SetExtras(merged); err != nil {
			return err
		}
	}

	if c := f.Crash; c != nil {
		if c.Native != nil {
			r.SetNativeCrashReportingEnabled(*c.Native)
		}
		if c.Java != nil {
			r.SetJavaCrashReportingEnabled(*c.Java)
		}
		if c.JobID != nil {
			r.SetCrashReportingJobID(*c.JobID)
		}
	}

	if d := f.Debug; d != nil && d.Pause != nil {
		r.SetPauseForDebugger(*d.Pause)
	}

	if d := f.Display; d != nil {
		if d.Density != nil {
			r.SetDisplayDensityOverride(*d.Density)
		}
		if d.DPI != nil {
			r.SetDisplayDPIOverride(*d.DPI)
		}
		if (d.Width == nil) != (d.Height == nil) {
			return &ValueError{Source: "file", Key: "display", Err: errors.New("width and height must be set together")}
		}
		if d.Width != nil {
			r.SetScreenSizeOverride(*d.Width, *d.Height)
		}
	}

	return nil
}

func applyPref(r *registry.Registry, name string, raw any) error {
	p, ok := registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrUnknownPref, name)
	}
	v, err := coerce(p.Kind(), raw)
	if err != nil {
		return err
	}
	return r.Set(p, v)
}
