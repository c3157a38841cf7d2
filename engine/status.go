package engine

import (
	"strconv"
)

// Code is a status code in the device-protocol vocabulary.
type Code int

// Protocol status codes.
const (
	CodeSuccess       Code = iota // Operation succeeded
	CodeTimeout                   // Device did not answer in time
	CodeNoMem                     // Engine allocation failed
	CodeLibUSB                    // Underlying USB library failed
	CodeNoDevice                  // No device attached
	CodeInvalidPacket             // Malformed packet received
	CodeNACK                      // Device rejected the request
	CodeBusy                      // Device busy
	CodeInvalid                   // Invalid request or argument
	CodeExists                    // Target already exists
	CodeNonexistent               // Target does not exist

	// CodeTransport marks a status whose only failure signal is the
	// transport-level code.
	CodeTransport Code = -1
)

var codeNames = [...]string{
	CodeSuccess:       "success",
	CodeTimeout:       "timeout",
	CodeNoMem:         "nomem",
	CodeLibUSB:        "libusb",
	CodeNoDevice:      "nodevice",
	CodeInvalidPacket: "invalpkt",
	CodeNACK:          "nack",
	CodeBusy:          "busy",
	CodeInvalid:       "invalid",
	CodeExists:        "exists",
	CodeNonexistent:   "nonexist",
}

// String returns the short protocol name of the code.
func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	if c == CodeTransport {
		return "transport"
	}
	return "code(" + strconv.Itoa(int(c)) + ")"
}

// USBCode is a status code in the USB-transport vocabulary (libusb values).
type USBCode int

// Transport status codes.
const (
	USBSuccess         USBCode = 0
	USBErrIO           USBCode = -1
	USBErrInvalidParam USBCode = -2
	USBErrAccess       USBCode = -3
	USBErrNoDevice     USBCode = -4
	USBErrNotFound     USBCode = -5
	USBErrBusy         USBCode = -6
	USBErrTimeout      USBCode = -7
	USBErrOverflow     USBCode = -8
	USBErrPipe         USBCode = -9
	USBErrInterrupted  USBCode = -10
	USBErrNoMem        USBCode = -11
	USBErrNotSupported USBCode = -12
	USBErrOther        USBCode = -99
)

// String returns the libusb name of the code.
func (c USBCode) String() string {
	switch c {
	case USBSuccess:
		return "LIBUSB_SUCCESS"
	case USBErrIO:
		return "LIBUSB_ERROR_IO"
	case USBErrInvalidParam:
		return "LIBUSB_ERROR_INVALID_PARAM"
	case USBErrAccess:
		return "LIBUSB_ERROR_ACCESS"
	case USBErrNoDevice:
		return "LIBUSB_ERROR_NO_DEVICE"
	case USBErrNotFound:
		return "LIBUSB_ERROR_NOT_FOUND"
	case USBErrBusy:
		return "LIBUSB_ERROR_BUSY"
	case USBErrTimeout:
		return "LIBUSB_ERROR_TIMEOUT"
	case USBErrOverflow:
		return "LIBUSB_ERROR_OVERFLOW"
	case USBErrPipe:
		return "LIBUSB_ERROR_PIPE"
	case USBErrInterrupted:
		return "LIBUSB_ERROR_INTERRUPTED"
	case USBErrNoMem:
		return "LIBUSB_ERROR_NO_MEM"
	case USBErrNotSupported:
		return "LIBUSB_ERROR_NOT_SUPPORTED"
	case USBErrOther:
		return "LIBUSB_ERROR_OTHER"
	default:
		return "LIBUSB_ERROR(" + strconv.Itoa(int(c)) + ")"
	}
}

// Status is the result of one engine call: a protocol-level code and,
// orthogonally, the transport-level code observed during the call.
type Status struct {
	Code Code
	USB  USBCode
}

// OK is the status of a successful call.
var OK = Status{}

// Fail returns a protocol-level failure status.
func Fail(c Code) Status {
	return Status{Code: c}
}

// USBFail returns a status whose only failure signal is the transport code.
func USBFail(c USBCode) Status {
	return Status{Code: CodeTransport, USB: c}
}

// FromReturn converts a native return value into a Status.
//
// The native engine returns zero on success and its negated protocol code on
// failure; any other negative value is a transport code passed through from
// the USB library.
func FromReturn(ret int) Status {
	switch {
	case ret == 0:
		return OK
	case ret < 0 && -ret < len(codeNames):
		return Fail(Code(-ret))
	default:
		return USBFail(USBCode(ret))
	}
}

// String formats the status for logging.
func (s Status) String() string {
	if s.USB == USBSuccess {
		return s.Code.String()
	}
	return s.Code.String() + "/" + s.USB.String()
}
