package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dshills/runtimeprefs/internal/settings/jsoncodec"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

// prefDump is one slot in decode output.
type prefDump struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Value    any    `json:"value"`
	Default  any    `json:"default"`
	Explicit bool   `json:"explicit"`
}

// processDump is the non-slot state in decode output.
type processDump struct {
	UseContentProcess    bool           `json:"use_content_process"`
	Args                 []string       `json:"args"`
	Extras               map[string]any `json:"extras"`
	NativeCrashReporting bool           `json:"native_crash_reporting"`
	JavaCrashReporting   bool           `json:"java_crash_reporting"`
	CrashReportingJobID  int32          `json:"crash_reporting_job_id"`
	PauseForDebugger     bool           `json:"pause_for_debugger"`
	DisplayDensity       *float32       `json:"display_density,omitempty"`
	DisplayDPI           *int32         `json:"display_dpi,omitempty"`
	ScreenWidth          *int32         `json:"screen_width,omitempty"`
	ScreenHeight         *int32         `json:"screen_height,omitempty"`
	TrackingCategories   []string       `json:"tracking_categories"`
}

type dump struct {
	Prefs   []prefDump  `json:"prefs"`
	Process processDump `json:"process"`
}

func runDecode(e *env, args []string) error {
	fs := newFlagSet(e, "decode")
	inPath := fs.String("in", "", "Input file (default stdin)")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var in io.Reader = e.stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	reg, err := registry.ReadFrom(in)
	if err != nil {
		return fmt.Errorf("decoding preferences: %w", err)
	}

	d := newDump(reg)
	if *asJSON {
		out, err := jsoncodec.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(e.stdout, "%s\n", out)
		return err
	}
	return printTable(e.stdout, d)
}

func newDump(reg *registry.Registry) dump {
	var d dump
	for _, s := range reg.Slots() {
		d.Prefs = append(d.Prefs, prefDump{
			Name:     s.Name,
			Kind:     s.Value.Kind().String(),
			Value:    s.Value.Interface(),
			Default:  s.Default.Interface(),
			Explicit: s.Explicit,
		})
	}

	p := &d.Process
	p.UseContentProcess = reg.UseContentProcessHint()
	p.Args = reg.Arguments()
	p.Extras = make(map[string]any, len(reg.Extras()))
	for k, v := range reg.Extras() {
		p.Extras[k] = v.Interface()
	}
	p.NativeCrashReporting = reg.NativeCrashReportingEnabled()
	p.JavaCrashReporting = reg.JavaCrashReportingEnabled()
	p.CrashReportingJobID = reg.CrashReportingJobID()
	p.PauseForDebugger = reg.PauseForDebugger()
	if v, ok := reg.DisplayDensityOverride(); ok {
		p.DisplayDensity = &v
	}
	if v, ok := reg.DisplayDPIOverride(); ok {
		p.DisplayDPI = &v
	}
	if w, h, ok := reg.ScreenSizeOverride(); ok {
		p.ScreenWidth, p.ScreenHeight = &w, &h
	}
	p.TrackingCategories = reg.TrackingProtectionCategories().Names()
	if p.TrackingCategories == nil {
		p.TrackingCategories = []string{}
	}
	return d
}

func printTable(w io.Writer, d dump) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tVALUE\tEXPLICIT")
	for _, p := range d.Prefs {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", p.Name, p.Kind, p.Value, p.Explicit)
	}
	fmt.Fprintln(tw)

	proc := d.Process
	fmt.Fprintf(tw, "use_content_process\t%v\n", proc.UseContentProcess)
	fmt.Fprintf(tw, "args\t%q\n", proc.Args)
	fmt.Fprintf(tw, "extras\t%v\n", proc.Extras)
	fmt.Fprintf(tw, "crash_reporting\tnative=%v java=%v job=%d\n", proc.NativeCrashReporting, proc.JavaCrashReporting, proc.CrashReportingJobID)
	fmt.Fprintf(tw, "pause_for_debugger\t%v\n", proc.PauseForDebugger)
	if proc.DisplayDensity != nil {
		fmt.Fprintf(tw, "display_density\t%v\n", *proc.DisplayDensity)
	}
	if proc.DisplayDPI != nil {
		fmt.Fprintf(tw, "display_dpi\t%d\n", *proc.DisplayDPI)
	}
	if proc.ScreenWidth != nil {
		fmt.Fprintf(tw, "screen_size\t%dx%d\n", *proc.ScreenWidth, *proc.ScreenHeight)
	}
	fmt.Fprintf(tw, "tracking_categories\t%v\n", proc.TrackingCategories)
	return tw.Flush()
}
