// Package engine defines the seam between the nspire device handle and a
// native device-protocol engine.
//
// An engine performs the actual USB framing, packetization, retransmission
// and command encoding for TI-Nspire calculators. The nspire package treats
// it as a black box reached through the [Engine] and [Instance] interfaces,
// which model the native C API closely:
//
//   - every call returns a [Status] pairing a protocol code with a
//     transport code
//   - strings cross the boundary as NUL-terminated [CString] values
//   - listings and framebuffers are allocated by the engine and released by
//     the caller through their Free methods
//   - long transfers report progress through a fixed [Callback] convention
//     carrying an opaque context pointer
//
// # Implementations
//
//   - [github.com/ardnew/nspire/engine/libnspire]: cgo binding to libnspire
//     (build with -tags libnspire)
//   - [github.com/ardnew/nspire/engine/sim]: in-memory simulated calculator
//     for tests and demonstrations
package engine
