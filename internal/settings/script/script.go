// Package script configures a preference registry from Lua.
//
// Scripts see a global "prefs" table:
//
//	prefs.set("javascript.enabled", false)
//	prefs.set_args({"-profile", "/data/profile"})
//	if not prefs.is_set("network.cookie.cookieBehavior") then
//	    prefs.set("network.cookie.cookieBehavior", 1)
//	end
//
// Only the base, table, string and math libraries are opened.
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/runtimeprefs/internal/logging"
	"github.com/dshills/runtimeprefs/internal/settings/category"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// DefaultTimeout bounds a single script run.
const DefaultTimeout = 5 * time.Second

// ModuleName is the global the preference API is installed under.
const ModuleName = "prefs"

// Error reports a failed script.
type Error struct {
	// Name is the script file name or "<string>".
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Runner executes configuration scripts.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the execution timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d >= 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger that receives print output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes src against reg. Changes made before a failure are kept.
func (r *Runner) Run(ctx context.Context, reg *registry.Registry, src string) error {
	return r.run(ctx, reg, "<string>", func(L *lua.LState) error {
		return L.DoString(src)
	})
}

// RunFile executes the script at path against reg.
func (r *Runner) RunFile(ctx context.Context, reg *registry.Registry, path string) error {
	if _, err := os.Stat(path); err != nil {
		return &Error{Name: path, Err: err}
	}
	return r.run(ctx, reg, path, func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

func (r *Runner) run(ctx context.Context, reg *registry.Registry, name string, exec func(*lua.LState) error) (err error) {
	if reg == nil {
		return &Error{Name: name, Err: registry.ErrInvalidArgument}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)
	L.SetContext(ctx)

	m := &module{reg: reg, logger: r.logger.With(slog.String("script", name))}
	m.register(L)

	defer func() {
		if p := recover(); p != nil {
			err = &Error{Name: name, Err: fmt.Errorf("lua panic: %v", p)}
		}
	}()

	if execErr := exec(L); execErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &Error{Name: name, Err: ctxErr}
		}
		return &Error{Name: name, Err: execErr}
	}
	return nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	// Open base library (print, type, pairs, ipairs, etc.)
	lua.OpenBase(L)

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Loading code from disk is not allowed.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
}

// module implements the prefs Lua table.
type module struct {
	reg    *registry.Registry
	logger *slog.Logger
}

func (m *module) register(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "set", L.NewFunction(m.set))
	L.SetField(mod, "is_set", L.NewFunction(m.isSet))
	L.SetField(mod, "names", L.NewFunction(m.names))
	L.SetField(mod, "args", L.NewFunction(m.args))
	L.SetField(mod, "set_args", L.NewFunction(m.setArgs))
	L.SetField(mod, "set_screen", L.NewFunction(m.setScreen))
	L.SetField(mod, "set_density", L.NewFunction(m.setDensity))
	L.SetField(mod, "set_tracking", L.NewFunction(m.setTracking))
	L.SetField(mod, "tracking", L.NewFunction(m.tracking))
	L.SetField(mod, "set_extra", L.NewFunction(m.setExtra))
	L.SetField(mod, "extra", L.NewFunction(m.extra))

	L.SetGlobal(ModuleName, mod)
	L.SetGlobal("print", L.NewFunction(m.print))
}

func (m *module) lookup(L *lua.LState) registry.Pref {
	name := L.CheckString(1)
	if name == "" {
		L.ArgError(1, "name cannot be empty")
		return 0
	}
	p, ok := registry.Lookup(name)
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown preference %q", name))
	}
	return p
}

// get(name) -> value
func (m *module) get(L *lua.LState) int {
	p := m.lookup(L)
	L.Push(toLValue(m.reg.Get(p)))
	return 1
}

// set(name, value)
func (m *module) set(L *lua.LState) int {
	p := m.lookup(L)
	v, err := fromLValue(p.Kind(), L.CheckAny(2))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	if err := m.reg.Set(p, v); err != nil {
		L.RaiseError("prefs.set: %v", err)
	}
	return 0
}

// is_set(name) -> bool
func (m *module) isSet(L *lua.LState) int {
	p := m.lookup(L)
	L.Push(lua.LBool(m.reg.IsSet(p)))
	return 1
}

// names() -> {name, ...}
func (m *module) names(L *lua.LState) int {
	tbl := L.NewTable()
	for _, def := range registry.Schema() {
		tbl.Append(lua.LString(def.Name))
	}
	L.Push(tbl)
	return 1
}

// args() -> {arg, ...}
func (m *module) args(L *lua.LState) int {
	L.Push(stringsToTable(L, m.reg.Arguments()))
	return 1
}

// set_args({arg, ...})
func (m *module) setArgs(L *lua.LState) int {
	args, err := tableToStrings(L.CheckTable(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	if err := m.reg.SetArguments(args); err != nil {
		L.RaiseError("prefs.set_args: %v", err)
	}
	return 0
}

// set_screen(width, height)
func (m *module) setScreen(L *lua.LState) int {
	w, err := toInt32(float64(L.CheckNumber(1)))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	h, err := toInt32(float64(L.CheckNumber(2)))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	m.reg.SetScreenSizeOverride(w, h)
	return 0
}

// set_density(density)
func (m *module) setDensity(L *lua.LState) int {
	m.reg.SetDisplayDensityOverride(float32(L.CheckNumber(1)))
	return 0
}

// set_tracking({"ad", "social", ...})
func (m *module) setTracking(L *lua.LState) int {
	names, err := tableToStrings(L.CheckTable(1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	c, err := category.Parse(names)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	m.reg.SetTrackingProtectionCategories(c)
	return 0
}

// tracking() -> {"ad", ...}
func (m *module) tracking(L *lua.LState) int {
	L.Push(stringsToTable(L, m.reg.TrackingProtectionCategories().Names()))
	return 1
}

// set_extra(key, value)
func (m *module) setExtra(L *lua.LState) int {
	key := L.CheckString(1)
	if key == "" {
		L.ArgError(1, "key cannot be empty")
		return 0
	}
	v, err := inferLValue(L.CheckAny(2))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	m.reg.Extras()[key] = v
	return 0
}

// extra(key) -> value or nil
func (m *module) extra(L *lua.LState) int {
	v, ok := m.reg.Extras()[L.CheckString(1)]
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(toLValue(v))
	return 1
}

// print(...) logs its arguments.
func (m *module) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	m.logger.Info(strings.Join(parts, "\t"))
	return 0
}

func toLValue(v value.Value) lua.LValue {
	switch v.Kind() {
	case value.KindBool:
		return lua.LBool(v.Bool())
	case value.KindInt:
		return lua.LNumber(v.Int())
	case value.KindFloat:
		return lua.LNumber(v.Float())
	case value.KindString:
		return lua.LString(v.Text())
	default:
		return lua.LNil
	}
}

var errNotInteger = errors.New("number is not an integer")

func fromLValue(k value.Kind, lv lua.LValue) (value.Value, error) {
	switch k {
	case value.KindBool:
		if b, ok := lv.(lua.LBool); ok {
			return value.Bool(bool(b)), nil
		}
	case value.KindInt:
		if n, ok := lv.(lua.LNumber); ok {
			i, err := toInt32(float64(n))
			if err != nil {
				return value.Value{}, err
			}
			return value.Int(i), nil
		}
	case value.KindFloat:
		if n, ok := lv.(lua.LNumber); ok {
			return value.Float(float64(n)), nil
		}
	case value.KindString:
		if s, ok := lv.(lua.LString); ok {
			return value.String(string(s)), nil
		}
	}
	return value.Value{}, fmt.Errorf("expected %s, got %s", k, lv.Type())
}

// inferLValue converts a Lua scalar; integral numbers in int32 range become
// integers.
func inferLValue(lv lua.LValue) (value.Value, error) {
	switch v := lv.(type) {
	case lua.LBool:
		return value.Bool(bool(v)), nil
	case lua.LNumber:
		if i, err := toInt32(float64(v)); err == nil {
			return value.Int(i), nil
		}
		return value.Float(float64(v)), nil
	case lua.LString:
		return value.String(string(v)), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value type %s", lv.Type())
	}
}

func toInt32(n float64) (int32, error) {
	if n != math.Trunc(n) {
		return 0, errNotInteger
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("integer %v out of range", n)
	}
	return int32(n), nil
}

func stringsToTable(L *lua.LState, list []string) *lua.LTable {
	tbl := L.CreateTable(len(list), 0)
	for _, s := range list {
		tbl.Append(lua.LString(s))
	}
	return tbl
}

func tableToStrings(tbl *lua.LTable) ([]string, error) {
	n := tbl.Len()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		s, ok := tbl.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("element %d is not a string", i)
		}
		out = append(out, string(s))
	}
	return out, nil
}
