//go:build prefsdebug

package registry

// debugAssertions enables schema validation on every New.
const debugAssertions = true
