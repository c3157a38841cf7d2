//go:build linux

package usbfs

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/ardnew/nspire/pkg"
)

var errNotFound = errors.New("no matching USB device")

// Device is an open usbfs device node. It implements nspire.Transport.
type Device struct {
	info DeviceInfo

	mu sync.Mutex
	fd int // -1 once closed
}

// Open opens the usbfs node of a discovered device for read/write access.
func Open(info DeviceInfo) (*Device, error) {
	fd, err := unix.Open(info.DevfsPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, pathError("open", info.DevfsPath, err)
	}

	pkg.LogDebug(pkg.ComponentTransport, "device opened",
		"path", info.DevfsPath,
		"vid", info.VendorID,
		"pid", info.ProductID)
	return &Device{info: info, fd: fd}, nil
}

// OpenFirst opens the first device of vendor vid whose product is one of
// pids.
func OpenFirst(vid uint16, pids ...uint16) (*Device, error) {
	return Scanner{}.OpenFirst(vid, pids...)
}

// OpenFirst opens the first matching device found by the scanner.
func (s Scanner) OpenFirst(vid uint16, pids ...uint16) (*Device, error) {
	found, err := s.Find(vid, pids...)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &pkg.Error{Kind: pkg.KindNoDevice, Op: "usbfs find", Err: errNotFound}
	}
	return Open(found[0])
}

// Info returns the sysfs description of the device.
func (d *Device) Info() DeviceInfo {
	return d.info
}

// ProductID returns the USB product identifier.
func (d *Device) ProductID() (uint16, error) {
	return d.info.ProductID, nil
}

// Handle returns the file descriptor, or ^uintptr(0) once closed.
func (d *Device) Handle() uintptr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uintptr(d.fd)
}

// Close closes the device node. Subsequent calls do nothing.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fd < 0 {
		return nil
	}
	fd := d.fd
	d.fd = -1
	if err := unix.Close(fd); err != nil {
		return pathError("close", d.info.DevfsPath, err)
	}
	pkg.LogDebug(pkg.ComponentTransport, "device closed", "path", d.info.DevfsPath)
	return nil
}
