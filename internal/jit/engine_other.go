//go:build !amd64 && !arm64

package jit

import "runtime"

func init() {
	newBackend = func() (Backend, error) { return nil, &UnsupportedHostError{Arch: runtime.GOARCH} }
}
