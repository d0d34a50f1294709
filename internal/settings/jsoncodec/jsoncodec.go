// Package jsoncodec is the JSON codec used for preference dumps and for
// JSON literals in environment overrides. It uses sonic with the standard
// library's behaviour (sorted map keys, HTML escaping, exact float output).
package jsoncodec

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

// MarshalIndent encodes v with each element on its own line, starting with
// prefix and indented by indent.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes data into v. Numbers decoded into an interface value
// become float64.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
