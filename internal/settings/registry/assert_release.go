//go:build !prefsdebug

package registry

const debugAssertions = false
