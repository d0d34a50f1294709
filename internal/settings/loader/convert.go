package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dshills/runtimeprefs/internal/settings/jsoncodec"
	"github.com/dshills/runtimeprefs/internal/settings/registry"
	"github.com/dshills/runtimeprefs/internal/settings/value"
)

// coerce converts a decoded TOML value to a value of kind k.
func coerce(k value.Kind, raw any) (value.Value, error) {
	switch k {
	case value.KindBool:
		if b, ok := raw.(bool); ok {
			return value.Bool(b), nil
		}
	case value.KindInt:
		if i, ok := raw.(int64); ok {
			return toInt(i)
		}
	case value.KindFloat:
		switch n := raw.(type) {
		case float64:
			return value.Float(n), nil
		case int64:
			return value.Float(float64(n)), nil
		}
	case value.KindString:
		if s, ok := raw.(string); ok {
			return value.String(s), nil
		}
	}
	return value.Value{}, fmt.Errorf("%w: expected %s, got %T", registry.ErrTypeMismatch, k, raw)
}

// infer converts a decoded TOML value without a schema kind.
func infer(raw any) (value.Value, error) {
	switch n := raw.(type) {
	case bool:
		return value.Bool(n), nil
	case int64:
		return toInt(n)
	case float64:
		return value.Float(n), nil
	case string:
		return value.String(n), nil
	default:
		return value.Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

func toInt(i int64) (value.Value, error) {
	if i < math.MinInt32 || i > math.MaxInt32 {
		return value.Value{}, fmt.Errorf("integer %d out of range", i)
	}
	return value.Int(int32(i)), nil
}

func toExtras(raw map[string]any) (registry.Extras, error) {
	extras := make(registry.Extras, len(raw))
	for k, v := range raw {
		val, err := infer(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		extras[k] = val
	}
	return extras, nil
}

// parseText parses an environment string as a value of kind k.
func parseText(k value.Kind, s string) (value.Value, error) {
	switch k {
	case value.KindBool:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "on", "1":
			return value.Bool(true), nil
		case "false", "no", "off", "0":
			return value.Bool(false), nil
		}
		return value.Value{}, fmt.Errorf("invalid boolean %q", s)
	case value.KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid integer %q", s)
		}
		return value.Int(int32(i)), nil
	case value.KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("invalid number %q", s)
		}
		return value.Float(f), nil
	case value.KindString:
		return value.String(s), nil
	}
	return value.Value{}, fmt.Errorf("unsupported kind %s", k)
}

// parseStringList parses a JSON array of strings, or a comma-separated list.
func parseStringList(s string) ([]string, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := jsoncodec.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, fmt.Errorf("invalid JSON list: %w", err)
		}
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	if trimmed == "" {
		return []string{}, nil
	}
	parts := strings.Split(trimmed, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// parseExtras parses a JSON object into extras. JSON has a single number
// type, so integral numbers in int32 range become integers.
func parseExtras(s string) (registry.Extras, error) {
	var raw map[string]any
	if err := jsoncodec.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	for k, v := range raw {
		if n, ok := v.(float64); ok && n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
			raw[k] = int64(n)
		}
	}
	return toExtras(raw)
}
