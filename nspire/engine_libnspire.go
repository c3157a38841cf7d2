//go:build cgo && libnspire

package nspire

import (
	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/engine/libnspire"
)

func defaultEngine() engine.Engine {
	return libnspire.New()
}
