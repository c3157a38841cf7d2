package pkg

import (
	"errors"
	"strconv"
	"strings"
)

// Device and transport errors.
var (
	// ErrTimeout indicates the device or transport timed out.
	ErrTimeout = errors.New("timeout")

	// ErrOutOfMemory indicates an allocation failed.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrTransport indicates a failure in the USB transport layer.
	ErrTransport = errors.New("USB transport failure")

	// ErrNoDevice indicates the device is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrInvalidPacket indicates a malformed packet was received.
	ErrInvalidPacket = errors.New("invalid packet received")

	// ErrNAK indicates the device rejected a request.
	ErrNAK = errors.New("NAK received")

	// ErrBusy indicates the resource is busy.
	ErrBusy = errors.New("resource busy")

	// ErrInvalidInput indicates an invalid argument or request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExists indicates the target already exists.
	ErrExists = errors.New("already exists")

	// ErrNotExist indicates the target does not exist.
	ErrNotExist = errors.New("does not exist")

	// ErrIO indicates an input/output error.
	ErrIO = errors.New("input/output error")

	// ErrAccess indicates insufficient permissions.
	ErrAccess = errors.New("access denied")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrUnknown indicates a status code outside every known vocabulary.
	ErrUnknown = errors.New("unknown error")

	// ErrNulByte indicates a string argument contains an embedded NUL byte.
	ErrNulByte = errors.New("NUL byte in string")

	// ErrPixelDepth indicates an unsupported bits-per-pixel value.
	ErrPixelDepth = errors.New("unsupported pixel depth")

	// ErrClosed indicates the handle has already been closed.
	ErrClosed = errors.New("handle closed")
)

// Kind classifies every error surfaced by the nspire stack.
type Kind uint8

// Error kinds.
const (
	KindUnknown       Kind = iota // Unrecognized status
	KindTimeout                   // Device or transport timeout
	KindOutOfMemory               // Allocation failure
	KindTransport                 // USB transport failure
	KindNoDevice                  // Device not present
	KindInvalidPacket             // Malformed packet
	KindNAK                       // Request rejected
	KindBusy                      // Resource busy
	KindInvalidInput              // Invalid argument
	KindExists                    // Target already exists
	KindNotExist                  // Target does not exist
	KindIO                        // Input/output error
	KindAccess                    // Permission denied
	KindUnsupported               // Unsupported operation
	KindNulByte                   // Embedded NUL in string argument
	KindPixelDepth                // Unsupported bits-per-pixel
	KindClosed                    // Handle already closed
)

var kindErrors = [...]error{
	KindUnknown:       ErrUnknown,
	KindTimeout:       ErrTimeout,
	KindOutOfMemory:   ErrOutOfMemory,
	KindTransport:     ErrTransport,
	KindNoDevice:      ErrNoDevice,
	KindInvalidPacket: ErrInvalidPacket,
	KindNAK:           ErrNAK,
	KindBusy:          ErrBusy,
	KindInvalidInput:  ErrInvalidInput,
	KindExists:        ErrExists,
	KindNotExist:      ErrNotExist,
	KindIO:            ErrIO,
	KindAccess:        ErrAccess,
	KindUnsupported:   ErrNotSupported,
	KindNulByte:       ErrNulByte,
	KindPixelDepth:    ErrPixelDepth,
	KindClosed:        ErrClosed,
}

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindTimeout:       "timeout",
	KindOutOfMemory:   "out-of-memory",
	KindTransport:     "transport",
	KindNoDevice:      "no-device",
	KindInvalidPacket: "invalid-packet",
	KindNAK:           "nak",
	KindBusy:          "busy",
	KindInvalidInput:  "invalid-input",
	KindExists:        "exists",
	KindNotExist:      "not-exist",
	KindIO:            "io",
	KindAccess:        "access",
	KindUnsupported:   "unsupported",
	KindNulByte:       "nul-byte",
	KindPixelDepth:    "pixel-depth",
	KindClosed:        "closed",
}

// String returns a short identifier for the kind, suitable for metric labels.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Err returns the sentinel error for the kind.
func (k Kind) Err() error {
	if int(k) < len(kindErrors) {
		return kindErrors[k]
	}
	return ErrUnknown
}

// Error is the error value returned by every device operation.
//
// It matches its kind's sentinel with [errors.Is], and exposes the
// underlying cause (if any) through [errors.As]:
//
//	var nul *pkg.NulError
//	if errors.As(err, &nul) {
//	    fmt.Println("NUL at", nul.Index)
//	}
type Error struct {
	Kind Kind   // Classification
	Op   string // Operation that failed, e.g. "list_dir"
	Path string // Path argument, if any
	Err  error  // Underlying cause, may be nil
}

// Error returns "op path: cause" using the kind sentinel when no cause is set.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Quote(e.Path))
	}
	if b.Len() > 0 {
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.Err().Error())
	}
	return b.String()
}

// Unwrap returns the kind sentinel followed by the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.Err()}
	}
	return []error{e.Kind.Err(), e.Err}
}

// NewError returns an *Error of the given kind.
func NewError(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of err, or KindUnknown if err does not wrap an *Error.
// A nil error has no kind; KindOf(nil) also returns KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// NulError reports the position of an embedded NUL byte in a string argument.
type NulError struct {
	Index int // Byte offset of the first NUL
}

func (e *NulError) Error() string {
	return "NUL byte in string at index " + strconv.Itoa(e.Index)
}

// Is reports whether target is ErrNulByte.
func (e *NulError) Is(target error) bool {
	return target == ErrNulByte
}

// DepthError carries a bits-per-pixel value that cannot be decoded.
type DepthError uint8

func (e DepthError) Error() string {
	return "unsupported pixel depth: " + strconv.Itoa(int(e)) + " bits per pixel"
}

// Is reports whether target is ErrPixelDepth.
func (e DepthError) Is(target error) bool {
	return target == ErrPixelDepth
}
