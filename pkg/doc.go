// Package pkg provides shared utilities for the nspire calculator stack.
//
// This package contains common functionality used by the device handle,
// the protocol engines and the USB transports, including:
//
//   - Structured logging via [log/slog], rendered by charmbracelet/log
//   - The error taxonomy shared by every layer
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentHandle, "handle opened", "cx2", true)
//
// Text, JSON and logfmt output are available through [SetLogFormat] or the
// NewLogger constructors.
//
// # Errors
//
// Every device operation fails with an [*Error] whose [Kind] belongs to a
// closed set. Each kind has a sentinel value:
//
//	if errors.Is(err, pkg.ErrNotExist) {
//	    // Handle missing file
//	}
package pkg
