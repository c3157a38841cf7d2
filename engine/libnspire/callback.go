//go:build cgo && libnspire

package libnspire

/*
#include <stddef.h>
#include <stdint.h>
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/ardnew/nspire/engine"
)

// progressCall is the Go side of one transfer's callback context.
type progressCall struct {
	cb  engine.Callback
	ctx unsafe.Pointer
}

// withCallback runs fn with a cgo handle identifying cb and ctx, or with a
// zero handle when cb is nil. The handle is deleted when fn returns.
func withCallback(cb engine.Callback, ctx unsafe.Pointer, fn func(C.uintptr_t) C.int) C.int {
	if cb == nil {
		return fn(0)
	}
	h := cgo.NewHandle(&progressCall{cb: cb, ctx: ctx})
	defer h.Delete()
	return fn(C.uintptr_t(h))
}

//export nspireProgress
func nspireProgress(n C.size_t, data unsafe.Pointer) {
	p := cgo.Handle(uintptr(data)).Value().(*progressCall)
	p.cb(uint64(n), p.ctx)
}
