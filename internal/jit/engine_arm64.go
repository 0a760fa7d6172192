//go:build arm64

package jit

import "github.com/lcox74/bfjit/internal/jit/arm64"

func init() {
	newBackend = func() (Backend, error) { return arm64.New(), nil }
}
