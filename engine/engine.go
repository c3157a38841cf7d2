package engine

import (
	"unsafe"
)

// Callback is the progress calling convention of the native engine.
//
// The engine invokes it zero or more times, strictly within the dynamic
// extent of the operation it was passed to, with the byte count reported by
// the transfer and the opaque context supplied by the caller. It is never
// retained after the operation returns.
type Callback func(n uint64, ctx unsafe.Pointer)

// Engine initializes native protocol engine instances.
type Engine interface {
	// Init creates an engine instance bound to an already-open transport.
	// The transport argument is the raw native handle of the USB connection
	// and cx2 selects the CX II protocol framing.
	// A failed Init may return a nil Instance with a success status; callers
	// must treat a nil Instance as "no device".
	Init(transport uintptr, cx2 bool) (Instance, Status)
}

// Instance is one initialized native engine.
//
// Instances are not safe for concurrent use. All methods block until the
// device responds or the engine's own timeout expires.
type Instance interface {
	// Free releases the instance. It must be called exactly once and the
	// instance must not be used afterwards.
	Free()

	// Device Queries

	// DeviceInfo fills info with a snapshot of the device state.
	DeviceInfo(info *DeviceInfo) Status

	// Screenshot captures the framebuffer. On success the caller owns the
	// returned image and must call its Free method.
	Screenshot() (*Image, Status)

	// Directories

	// DirList lists the directory at path. On success the caller owns the
	// returned list and must call its Free method.
	DirList(path CString) (DirList, Status)

	// DirCreate creates the directory at path.
	DirCreate(path CString) Status

	// DirDelete deletes the (empty) directory at path.
	DirDelete(path CString) Status

	// Attr fills item with the attributes of the entry at path.
	Attr(path CString, item *DirItem) Status

	// Files

	// FileCopy copies the file at src to dst.
	FileCopy(src, dst CString) Status

	// FileMove moves or renames the file at src to dst.
	FileMove(src, dst CString) Status

	// FileDelete deletes the file at path.
	FileDelete(path CString) Status

	// FileRead reads the file at path into buf and stores the number of
	// bytes read in n. Files longer than buf are truncated.
	FileRead(path CString, buf []byte, n *uint64, cb Callback, ctx unsafe.Pointer) Status

	// FileWrite writes buf to the file at path.
	FileWrite(path CString, buf []byte, cb Callback, ctx unsafe.Pointer) Status

	// OSSend installs buf as an operating system upgrade.
	OSSend(buf []byte, cb Callback, ctx unsafe.Pointer) Status
}

// DirList is a directory listing allocated by the native engine.
type DirList interface {
	// Len returns the number of entries.
	Len() int

	// Item returns a pointer to entry i, valid until Free is called.
	Item(i int) *DirItem

	// Free releases the native listing.
	Free()
}

// Image is a framebuffer capture allocated by the native engine.
type Image struct {
	Width  uint16
	Height uint16
	BPP    uint8  // Bits per pixel: 8 (grayscale) or 16 (color)
	Data   []byte // Width*Height*BPP/8 bytes, valid until Free is called

	free func()
}

// NewImage wraps a native framebuffer. free releases the native memory
// backing data and may be nil when data is owned by the Go heap.
func NewImage(width, height uint16, bpp uint8, data []byte, free func()) *Image {
	return &Image{Width: width, Height: height, BPP: bpp, Data: data, free: free}
}

// Len returns the framebuffer size implied by the image dimensions.
func (i *Image) Len() int {
	return int(i.Width) * int(i.Height) * int(i.BPP) / 8
}

// Free releases the native framebuffer. Subsequent calls do nothing.
func (i *Image) Free() {
	if i.free != nil {
		i.free()
		i.free = nil
	}
	i.Data = nil
}
