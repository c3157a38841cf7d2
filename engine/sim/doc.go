// Package sim provides a simulated TI-Nspire calculator implementing the
// [engine.Engine] interface.
//
// The simulation keeps an in-memory filesystem, a device information record
// and a framebuffer. It is intended for tests and demonstrations that must
// run without hardware or the native libnspire library.
//
// # Usage
//
//	calc := sim.New(
//	    sim.WithFile("/documents/hello.tns", data),
//	    sim.WithChunkSize(512),
//	)
//	h, err := nspire.Open(transport, nspire.WithEngine(calc))
//
// # Semantics
//
// Paths are absolute and slash-separated. The simulation follows the
// device's observable behavior:
//
//   - creating an entry that exists fails with [engine.CodeExists]
//   - operating on a missing entry fails with [engine.CodeNonexistent]
//   - deleting a non-empty directory, or using a file operation on a
//     directory, fails with [engine.CodeInvalid]
//   - transfers report cumulative byte counts every chunk
//
// # Inspection
//
// [Calculator.Fail] injects a status for any operation. [Calculator.Calls],
// [Calculator.Live] and [Calculator.Outstanding] expose call counts and
// allocation accounting so tests can verify that instances, listings and
// framebuffers are released exactly once. Double releases panic.
package sim
