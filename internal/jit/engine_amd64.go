//go:build amd64

package jit

import "github.com/lcox74/bfjit/internal/jit/amd64"

func init() {
	newBackend = func() (Backend, error) { return amd64.New(), nil }
}
