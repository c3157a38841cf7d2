//go:build !cgo || !libnspire

package nspire

import "github.com/ardnew/nspire/engine"

// defaultEngine returns nil when the native engine is not compiled in.
func defaultEngine() engine.Engine {
	return nil
}
