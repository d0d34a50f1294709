package registry

import (
	"errors"
	"testing"

	"github.com/dshills/runtimeprefs/internal/settings/value"
)

type notification struct {
	name     string
	v        value.Value
	explicit bool
}

// recordingSink collects notifications in arrival order.
type recordingSink struct {
	got []notification
}

func (s *recordingSink) Notify(name string, v value.Value, explicit bool) {
	s.got = append(s.got, notification{name, v, explicit})
}

func TestNew_Defaults(t *testing.T) {
	r := New()

	if r.Len() != len(Schema()) {
		t.Fatalf("Len() = %d, want %d", r.Len(), len(Schema()))
	}

	for i, def := range Schema() {
		s := r.Slot(Pref(i))
		if s.Name != def.Name {
			t.Errorf("slot %d name = %q, want %q", i, s.Name, def.Name)
		}
		if !s.Value.Equal(def.Default) {
			t.Errorf("%s = %v, want default %v", def.Name, s.Value, def.Default)
		}
		if s.Explicit {
			t.Errorf("%s should not be explicit on a fresh registry", def.Name)
		}
	}

	if r.Sink() != nil {
		t.Error("fresh registry should have no sink")
	}
	if args := r.Arguments(); args == nil || len(args) != 0 {
		t.Errorf("Arguments() = %#v, want empty non-nil", args)
	}
	if len(r.Extras()) != 0 {
		t.Errorf("Extras() = %v, want empty", r.Extras())
	}
}

func TestSet_MarksExplicitEvenWhenEqualToDefault(t *testing.T) {
	r := New()
	r.SetJavaScriptEnabled(true)

	if !r.IsSet(PrefJavaScript) {
		t.Error("SetJavaScriptEnabled(default) should mark the slot explicit")
	}
	if !r.JavaScriptEnabled() {
		t.Error("JavaScriptEnabled() = false")
	}
}

func TestNewFrom_CopiesOnlyExplicitSlots(t *testing.T) {
	a := New()
	a.SetJavaScriptEnabled(false)

	b, err := NewFrom(a)
	if err != nil {
		t.Fatalf("NewFrom failed: %v", err)
	}

	if b.JavaScriptEnabled() {
		t.Error("JavaScriptEnabled() = true, want false")
	}
	if !b.IsSet(PrefJavaScript) {
		t.Error("javascript.enabled should be explicit in the copy")
	}

	for i, def := range Schema() {
		if Pref(i) == PrefJavaScript {
			continue
		}
		s := b.Slot(Pref(i))
		if s.Explicit {
			t.Errorf("%s should not be explicit in the copy", def.Name)
		}
		if !s.Value.Equal(def.Default) {
			t.Errorf("%s = %v, want default %v", def.Name, s.Value, def.Default)
		}
	}
}

func TestNewFrom_DefaultedSlotsDoNotCarryValues(t *testing.T) {
	a := New()
	a.SetCookieBehavior(CookieAcceptNone)

	b, err := NewFrom(a)
	if err != nil {
		t.Fatalf("NewFrom failed: %v", err)
	}
	if b.CookieBehavior() != CookieAcceptNone {
		t.Errorf("CookieBehavior() = %d", b.CookieBehavior())
	}
	if b.IsSet(PrefCookieLifetime) {
		t.Error("cookie lifetime was never set and should stay defaulted")
	}
}

func TestNewFrom_CopiesProcessSettingsUnconditionally(t *testing.T) {
	a := New()
	a.SetUseContentProcessHint(true)
	if err := a.SetArguments([]string{"-profile", "/tmp/p"}); err != nil {
		t.Fatal(err)
	}
	a.Extras()["k"] = value.String("v")
	a.SetNativeCrashReportingEnabled(true)
	a.SetJavaCrashReportingEnabled(true)
	a.SetCrashReportingJobID(77)
	a.SetPauseForDebugger(true)
	a.SetDisplayDensityOverride(1.5)
	a.SetDisplayDPIOverride(240)
	a.SetScreenSizeOverride(1024, 768)

	b, err := NewFrom(a)
	if err != nil {
		t.Fatalf("NewFrom failed: %v", err)
	}

	if !b.UseContentProcessHint() {
		t.Error("content process hint not copied")
	}
	if got := b.Arguments(); len(got) != 2 || got[1] != "/tmp/p" {
		t.Errorf("Arguments() = %v", got)
	}
	if !b.NativeCrashReportingEnabled() || !b.JavaCrashReportingEnabled() {
		t.Error("crash reporting flags not copied")
	}
	if b.CrashReportingJobID() != 77 {
		t.Errorf("CrashReportingJobID() = %d", b.CrashReportingJobID())
	}
	if !b.PauseForDebugger() {
		t.Error("pause for debugger not copied")
	}
	if d, ok := b.DisplayDensityOverride(); !ok || d != 1.5 {
		t.Errorf("DisplayDensityOverride() = %v, %v", d, ok)
	}
	if dpi, ok := b.DisplayDPIOverride(); !ok || dpi != 240 {
		t.Errorf("DisplayDPIOverride() = %v, %v", dpi, ok)
	}
	if w, h, ok := b.ScreenSizeOverride(); !ok || w != 1024 || h != 768 {
		t.Errorf("ScreenSizeOverride() = %d, %d, %v", w, h, ok)
	}

	// Copies must not share storage.
	a.Arguments()[0] = "changed"
	a.Extras()["k"] = value.String("changed")
	if b.Arguments()[0] != "-profile" {
		t.Error("arguments slice is shared between copies")
	}
	if b.Extras()["k"].Text() != "v" {
		t.Error("extras bag is shared between copies")
	}
}

func TestNewFrom_NilSource(t *testing.T) {
	_, err := NewFrom(nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("NewFrom(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestAttach_FlushesAllSlotsInOrder(t *testing.T) {
	r := New()
	r.SetCookieBehavior(CookieAcceptFirstParty)

	sink := &recordingSink{}
	if err := r.Attach(sink); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	defs := Schema()
	if len(sink.got) != len(defs) {
		t.Fatalf("sink received %d notifications, want %d", len(sink.got), len(defs))
	}
	for i, n := range sink.got {
		s := r.Slot(Pref(i))
		if n.name != defs[i].Name {
			t.Errorf("notification %d name = %q, want %q", i, n.name, defs[i].Name)
		}
		if !n.v.Equal(s.Value) || n.explicit != s.Explicit {
			t.Errorf("notification %d = %+v, want value %v explicit %v", i, n, s.Value, s.Explicit)
		}
	}

	if !sink.got[PrefCookieBehavior].explicit {
		t.Error("cookie behavior should be flushed as explicit")
	}
	if sink.got[PrefJavaScript].explicit {
		t.Error("javascript should be flushed as not explicit")
	}
}

func TestAttach_NilSink(t *testing.T) {
	r := New()
	if err := r.Attach(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Attach(nil) error = %v, want ErrInvalidArgument", err)
	}
}

func TestAttach_ReplacingSinkResendsEverything(t *testing.T) {
	r := New()
	first := &recordingSink{}
	second := &recordingSink{}

	if err := r.Attach(first); err != nil {
		t.Fatal(err)
	}
	r.SetWebFontsEnabled(false)
	if err := r.Attach(second); err != nil {
		t.Fatal(err)
	}

	if len(first.got) != r.Len()+1 {
		t.Errorf("first sink got %d notifications, want %d", len(first.got), r.Len()+1)
	}
	if len(second.got) != r.Len() {
		t.Errorf("second sink got %d notifications, want %d", len(second.got), r.Len())
	}
}

func TestSet_ForwardsToAttachedSinkOnly(t *testing.T) {
	r := New()
	r.SetRemoteDebuggingEnabled(true)

	sink := &recordingSink{}
	if err := r.Attach(sink); err != nil {
		t.Fatal(err)
	}
	sink.got = nil

	r.SetRemoteDebuggingEnabled(false)
	if len(sink.got) != 1 {
		t.Fatalf("sink received %d notifications, want 1", len(sink.got))
	}
	n := sink.got[0]
	if n.name != "devtools.debugger.remote-enabled" || n.v.Bool() || !n.explicit {
		t.Errorf("unexpected notification %+v", n)
	}

	r.Detach()
	r.SetRemoteDebuggingEnabled(true)
	if len(sink.got) != 1 {
		t.Error("detached sink should not be notified")
	}
	if !r.RemoteDebuggingEnabled() {
		t.Error("value should still change while detached")
	}
}

func TestFlush_WithoutSinkIsNoop(t *testing.T) {
	r := New()
	// Must not panic.
	r.Flush()
}

func TestSetByName(t *testing.T) {
	r := New()

	if err := r.SetByName("network.cookie.lifetimePolicy", value.Int(2)); err != nil {
		t.Fatalf("SetByName failed: %v", err)
	}
	if r.CookieLifetime() != CookieLifetimeRuntime {
		t.Errorf("CookieLifetime() = %d", r.CookieLifetime())
	}

	err := r.SetByName("no.such.pref", value.Bool(true))
	if !errors.Is(err, ErrUnknownPref) {
		t.Errorf("unknown name error = %v, want ErrUnknownPref", err)
	}

	err = r.SetByName("javascript.enabled", value.String("yes"))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("kind mismatch error = %v, want ErrTypeMismatch", err)
	}
	var te *TypeError
	if !errors.As(err, &te) || te.Expected != value.KindBool || te.Actual != value.KindString {
		t.Errorf("TypeError = %+v", te)
	}
	if r.IsSet(PrefJavaScript) {
		t.Error("rejected value must not mark the slot explicit")
	}
}

func TestSet_InvalidPosition(t *testing.T) {
	r := New()
	if err := r.Set(Pref(99), value.Bool(true)); !errors.Is(err, ErrUnknownPref) {
		t.Errorf("Set(99) error = %v, want ErrUnknownPref", err)
	}
	if err := r.Set(Pref(-1), value.Bool(true)); !errors.Is(err, ErrUnknownPref) {
		t.Errorf("Set(-1) error = %v, want ErrUnknownPref", err)
	}
}

func TestSet_OutOfRangeEnumPassesThrough(t *testing.T) {
	r := New()
	sink := &recordingSink{}
	if err := r.Attach(sink); err != nil {
		t.Fatal(err)
	}
	sink.got = nil

	r.SetCookieBehavior(CookieBehavior(42))
	if r.CookieBehavior() != 42 {
		t.Errorf("CookieBehavior() = %d, want 42", r.CookieBehavior())
	}
	if len(sink.got) != 1 || sink.got[0].v.Int() != 42 {
		t.Errorf("sink got %+v", sink.got)
	}
}

func TestSlots(t *testing.T) {
	r := New()
	r.SetBlockPhishing(false)

	states := r.Slots()
	if len(states) != r.Len() {
		t.Fatalf("Slots() returned %d entries", len(states))
	}
	s := states[PrefSafeBrowsingPhishing]
	if s.Pref != PrefSafeBrowsingPhishing || !s.Explicit || s.Value.Bool() {
		t.Errorf("phishing slot = %+v", s)
	}
	if !s.Default.Bool() {
		t.Error("phishing default should be true")
	}
}

func TestProcessSettings_NilRejected(t *testing.T) {
	r := New()
	if err := r.SetArguments(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetArguments(nil) error = %v", err)
	}
	if err := r.SetExtras(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetExtras(nil) error = %v", err)
	}
}

func TestSentinelOverrides(t *testing.T) {
	r := New()

	if d, ok := r.DisplayDensityOverride(); ok {
		t.Errorf("density override reported %v on a fresh registry", d)
	}
	r.SetDisplayDensityOverride(2.5)
	if d, ok := r.DisplayDensityOverride(); !ok || d != 2.5 {
		t.Errorf("DisplayDensityOverride() = %v, %v; want 2.5, true", d, ok)
	}
	r.SetDisplayDensityOverride(0)
	if _, ok := r.DisplayDensityOverride(); ok {
		t.Error("zero density should read as absent")
	}

	if _, ok := r.DisplayDPIOverride(); ok {
		t.Error("DPI override should be absent by default")
	}
	r.SetDisplayDPIOverride(-3)
	if _, ok := r.DisplayDPIOverride(); ok {
		t.Error("negative DPI should read as absent")
	}

	r.SetScreenSizeOverride(800, 0)
	if _, _, ok := r.ScreenSizeOverride(); ok {
		t.Error("screen size with zero height should read as absent")
	}
	r.SetScreenSizeOverride(800, 600)
	if w, h, ok := r.ScreenSizeOverride(); !ok || w != 800 || h != 600 {
		t.Errorf("ScreenSizeOverride() = %d, %d, %v", w, h, ok)
	}
}
