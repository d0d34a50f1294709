package loader

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dshills/runtimeprefs/internal/settings/category"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
)

// Environment variables for state that is not a preference slot, without
// the prefix.
const (
	EnvArgs               = "ARGS"
	EnvExtras             = "EXTRAS"
	EnvTrackingCategories = "TRACKING_CATEGORIES"
)

// EnvName returns the environment variable suffix for a preference:
// "javascript.enabled" becomes "JAVASCRIPT_ENABLED".
func EnvName(p registry.Pref) string {
	return envKey(p.String())
}

func envKey(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return strings.ToUpper(r.Replace(name))
}

// envMapping maps environment suffixes to preferences.
func envMapping() map[string]registry.Pref {
	m := make(map[string]registry.Pref)
	for i := range registry.Schema() {
		p := registry.Pref(i)
		m[EnvName(p)] = p
	}
	return m
}

// ApplyEnv applies prefixed environment overrides to r and returns how many
// were applied. Empty string values are treated as values, not as unset.
// Unrecognized prefixed variables are logged and ignored.
func (l *Loader) ApplyEnv(r *registry.Registry) (int, error) {
	if l.environ == nil || l.envPrefix == "" {
		return 0, nil
	}

	vars := make(map[string]string)
	for _, env := range l.environ() {
		if !strings.HasPrefix(env, l.envPrefix) {
			continue
		}
		name, val, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		vars[strings.TrimPrefix(name, l.envPrefix)] = val
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mapping := envMapping()
	applied := 0
	for _, key := range keys {
		val := vars[key]
		envVar := l.envPrefix + key

		if p, ok := mapping[key]; ok {
			v, err := parseText(p.Kind(), val)
			if err != nil {
				return applied, &ValueError{Source: "env", Key: envVar, Err: err}
			}
			if err := r.Set(p, v); err != nil {
				return applied, &ValueError{Source: "env", Key: envVar, Err: err}
			}
			applied++
			continue
		}

		var err error
		switch key {
		case EnvArgs:
			var args []string
			if args, err = parseStringList(val); err == nil {
				err = r.SetArguments(args)
			}
		case EnvExtras:
			var extras registry.Extras
			if extras, err = parseExtras(val); err == nil {
				merged := r.Extras().Clone()
				for k, v := range extras {
					merged[k] = v
				}
				err = r.SetExtras(merged)
			}
		case EnvTrackingCategories:
			var names []string
			if names, err = parseStringList(val); err == nil {
				var c category.Category
				if c, err = category.Parse(names); err == nil {
					r.SetTrackingProtectionCategories(c)
				}
			}
		default:
			l.logger.Warn("ignoring unknown environment override", slog.String("var", envVar))
			continue
		}
		if err != nil {
			return applied, &ValueError{Source: "env", Key: envVar, Err: err}
		}
		applied++
	}

	return applied, nil
}
