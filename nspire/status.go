package nspire

import (
	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg"
)

// protocolKind translates a device-protocol code. The second result is false
// for codes outside the protocol vocabulary, including the marker used when
// only the transport reported a failure.
func protocolKind(c engine.Code) (pkg.Kind, bool) {
	switch c {
	case engine.CodeTimeout:
		return pkg.KindTimeout, true
	case engine.CodeNoMem:
		return pkg.KindOutOfMemory, true
	case engine.CodeLibUSB:
		return pkg.KindTransport, true
	case engine.CodeNoDevice:
		return pkg.KindNoDevice, true
	case engine.CodeInvalidPacket:
		return pkg.KindInvalidPacket, true
	case engine.CodeNACK:
		return pkg.KindNAK, true
	case engine.CodeBusy:
		return pkg.KindBusy, true
	case engine.CodeInvalid:
		return pkg.KindInvalidInput, true
	case engine.CodeExists:
		return pkg.KindExists, true
	case engine.CodeNonexistent:
		return pkg.KindNotExist, true
	}
	return pkg.KindUnknown, false
}

// transportKind translates a USB transport code.
func transportKind(c engine.USBCode) (pkg.Kind, bool) {
	switch c {
	case engine.USBErrIO:
		return pkg.KindIO, true
	case engine.USBErrInvalidParam:
		return pkg.KindInvalidInput, true
	case engine.USBErrAccess:
		return pkg.KindAccess, true
	case engine.USBErrNoDevice, engine.USBErrNotFound:
		return pkg.KindNoDevice, true
	case engine.USBErrBusy:
		return pkg.KindBusy, true
	case engine.USBErrTimeout:
		return pkg.KindTimeout, true
	case engine.USBErrOverflow, engine.USBErrPipe, engine.USBErrInterrupted:
		return pkg.KindTransport, true
	case engine.USBErrNoMem:
		return pkg.KindOutOfMemory, true
	case engine.USBErrNotSupported:
		return pkg.KindUnsupported, true
	}
	return pkg.KindUnknown, false
}

// statusKind collapses both vocabularies into one kind. The protocol code
// takes precedence; the transport code is consulted only when the protocol
// code is not recognized. ok is true only for protocol success.
func statusKind(st engine.Status) (kind pkg.Kind, ok bool) {
	if st.Code == engine.CodeSuccess {
		return pkg.KindUnknown, true
	}
	if k, known := protocolKind(st.Code); known {
		return k, false
	}
	if k, known := transportKind(st.USB); known {
		return k, false
	}
	return pkg.KindUnknown, false
}

// statusError converts an engine status into an error, or nil on success.
// Raw codes are logged but never exposed in the returned error.
func statusError(op, path string, st engine.Status) error {
	kind, ok := statusKind(st)
	if ok {
		return nil
	}
	pkg.LogDebug(pkg.ComponentEngine, "engine call failed",
		"op", op,
		"status", st.String(),
		"kind", kind.String())
	return &pkg.Error{Kind: kind, Op: op, Path: path}
}
