package nspire

import (
	"runtime"
	"unsafe"

	"github.com/ardnew/nspire/engine"
)

// Progress receives the byte counts reported by the engine during a
// transfer. It runs synchronously on the calling goroutine, zero or more
// times, and never after the transfer returns.
type Progress func(n uint64)

// callbackData is the per-call context passed to the engine. It lives on the
// stack of the operation that created it and borrows the caller's closure.
type callbackData struct {
	fn Progress
}

// progressTrampoline is the fixed entry point handed to the engine for every
// transfer. It forwards each report to the borrowed closure.
func progressTrampoline(n uint64, ctx unsafe.Pointer) {
	if d := (*callbackData)(ctx); d != nil && d.fn != nil {
		d.fn(n)
	}
}

// withProgress invokes call with the trampoline and a context bound to fn.
// The context is valid only for the duration of call.
func withProgress(fn Progress, call func(cb engine.Callback, ctx unsafe.Pointer) engine.Status) engine.Status {
	data := callbackData{fn: fn}
	st := call(progressTrampoline, unsafe.Pointer(&data))
	runtime.KeepAlive(&data)
	return st
}
