// Package libnspire binds the native libnspire protocol engine.
//
// The binding requires cgo, pkg-config entries for libnspire and
// libusb-1.0, and the libnspire build tag:
//
//	go build -tags libnspire ./...
//
// The transport handle passed to [Engine.Init] is a usbfs file descriptor,
// such as the one returned by transport/usbfs. It is wrapped with
// libusb_wrap_sys_device, so libusb does not enumerate or open devices
// itself. The wrapped libusb handle is closed when the instance is freed;
// the file descriptor stays owned by the transport.
//
// Directory listings and framebuffers are exposed in place over the memory
// allocated by libnspire and released by their Free methods.
package libnspire
