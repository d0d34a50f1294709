package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/runtimeprefs/internal/logging"
	"github.com/dshills/runtimeprefs/internal/settings/jsoncodec"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

func runCmd(t *testing.T, stdin []byte, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, bytes.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCmd(t, nil, "-version")
	if code != 0 || !strings.Contains(out, "prefctl dev") {
		t.Errorf("code = %d, out = %q", code, out)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"frobnicate"}},
		{"bad log level", []string{"-log-level", "loud", "decode"}},
		{"bad flag", []string{"decode", "-nope"}},
		{"extra args", []string{"decode", "extra"}},
		{"watch without config", []string{"watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCmd(t, nil, tt.args...)
			if code != 2 {
				t.Errorf("exit code = %d, want 2", code)
			}
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "prefs.toml", `
[prefs]
"network.cookie.cookieBehavior" = 2

[extras]
k = "v"

[display]
width = 800
height = 600
`)
	lua := writeFile(t, dir, "prefs.lua", `prefs.set("javascript.enabled", false)`)
	out := filepath.Join(dir, "prefs.bin")

	code, _, stderr := runCmd(t, nil, "encode", "-config", config, "-script", lua, "-out", out, "-no-env")
	if code != 0 {
		t.Fatalf("encode exit code = %d, stderr = %s", code, stderr)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := registry.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if reg.CookieBehavior() != 2 || reg.JavaScriptEnabled() {
		t.Error("encoded preferences lost")
	}

	code, stdout, stderr := runCmd(t, nil, "decode", "-in", out, "-json")
	if code != 0 {
		t.Fatalf("decode exit code = %d, stderr = %s", code, stderr)
	}

	var d dump
	if err := jsoncodec.Unmarshal([]byte(stdout), &d); err != nil {
		t.Fatalf("decode output is not JSON: %v\n%s", err, stdout)
	}
	if len(d.Prefs) != reg.Len() {
		t.Fatalf("dump has %d prefs, want %d", len(d.Prefs), reg.Len())
	}
	if d.Prefs[0].Name != "network.cookie.cookieBehavior" || d.Prefs[0].Value != float64(2) {
		t.Errorf("first pref = %+v", d.Prefs[0])
	}
	for _, p := range d.Prefs {
		if !p.Explicit {
			t.Errorf("%s should be explicit after decode", p.Name)
		}
	}
	if d.Process.Extras["k"] != "v" {
		t.Errorf("extras = %v", d.Process.Extras)
	}
	if d.Process.ScreenWidth == nil || *d.Process.ScreenWidth != 800 {
		t.Errorf("screen width = %v", d.Process.ScreenWidth)
	}
	if d.Process.DisplayDensity != nil {
		t.Error("unset density should be omitted")
	}
}

func TestEncode_Stdout_DecodeStdin(t *testing.T) {
	code, encoded, stderr := runCmd(t, nil, "encode", "-no-env")
	if code != 0 {
		t.Fatalf("encode exit code = %d, stderr = %s", code, stderr)
	}

	code, table, stderr := runCmd(t, []byte(encoded), "decode")
	if code != 0 {
		t.Fatalf("decode exit code = %d, stderr = %s", code, stderr)
	}
	for _, want := range []string{"NAME", "javascript.enabled", "urlclassifier.trackingTable", "tracking_categories"} {
		if !strings.Contains(table, want) {
			t.Errorf("table missing %q:\n%s", want, table)
		}
	}
}

func TestEncode_EnvironmentApplied(t *testing.T) {
	t.Setenv("PREFS_GECKOVIEW_CONSOLE_ENABLED", "true")

	code, encoded, stderr := runCmd(t, nil, "encode")
	if code != 0 {
		t.Fatalf("encode exit code = %d, stderr = %s", code, stderr)
	}
	reg, err := registry.Decode([]byte(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if !reg.ConsoleOutputEnabled() {
		t.Error("environment override not encoded")
	}
}

func TestEncode_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.toml", "[prefs\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing config", []string{"encode", "-no-env", "-config", filepath.Join(dir, "missing.toml")}, "not found"},
		{"parse error", []string{"encode", "-no-env", "-config", bad}, "parse error"},
		{"missing script", []string{"encode", "-no-env", "-script", filepath.Join(dir, "missing.lua")}, "script"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCmd(t, nil, tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr %q does not mention %q", stderr, tt.want)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	code, _, stderr := runCmd(t, []byte{1, 2, 3}, "decode")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "decoding preferences") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestWatch_InitialLoadAndCancel(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "prefs.toml", "[prefs]\n\"javascript.enabled\" = false\n")

	var logs bytes.Buffer
	e := &env{
		stdout: &bytes.Buffer{},
		stderr: &logs,
		logger: logging.New("debug", "text", &logs),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := watch(ctx, e, config, "127.0.0.1:0", 10*time.Millisecond); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	out := logs.String()
	for _, want := range []string{"settings reloaded", "preference changed", "name=javascript.enabled", "serving metrics"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}

func TestWatch_MissingFileFlushesDefaults(t *testing.T) {
	t.Setenv("PREFS_JAVASCRIPT_ENABLED", "false")
	config := filepath.Join(t.TempDir(), "prefs.toml")

	var logs bytes.Buffer
	e := &env{
		stdout: &bytes.Buffer{},
		stderr: &logs,
		logger: logging.New("info", "text", &logs),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := watch(ctx, e, config, "", 10*time.Millisecond); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	out := logs.String()
	if got := strings.Count(out, "preference changed"); got != registry.New().Len() {
		t.Errorf("logged %d flushed preferences, want %d:\n%s", got, registry.New().Len(), out)
	}
	for _, want := range []string{
		"settings file missing",
		"name=javascript.enabled value=false",
		"name=browser.display.use_document_fonts value=true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}

func TestWatch_InitialParseError(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "prefs.toml", "[prefs\n")

	e := &env{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, logger: logging.Discard()}
	if err := watch(context.Background(), e, config, "", 0); err == nil {
		t.Error("expected initial parse error")
	}
}
