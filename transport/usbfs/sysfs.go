//go:build linux

package usbfs

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/nspire/pkg"
)

// =============================================================================
// Device Information
// =============================================================================

// DeviceInfo describes a USB device discovered via sysfs.
type DeviceInfo struct {
	SysfsPath    string // Path in /sys/bus/usb/devices
	DevfsPath    string // Path in /dev/bus/usb
	Bus          uint8  // Bus number
	Address      uint8  // Device number on the bus
	VendorID     uint16 // idVendor
	ProductID    uint16 // idProduct
	Speed        Speed
	Manufacturer string
	Product      string
	Serial       string
}

// Scanner discovers USB devices. The zero value scans the system paths;
// tests point the roots at a fake tree.
type Scanner struct {
	SysfsRoot string   // Defaults to SysfsUSBPath
	DevfsRoot string   // Defaults to DevfsUSBPath
	IDPaths   []string // usb.ids locations; nil uses IDPaths
}

func (s Scanner) sysfsRoot() string {
	if s.SysfsRoot == "" {
		return SysfsUSBPath
	}
	return s.SysfsRoot
}

func (s Scanner) devfsRoot() string {
	if s.DevfsRoot == "" {
		return DevfsUSBPath
	}
	return s.DevfsRoot
}

// Find returns the devices of vendor vid whose product is one of pids, in
// sysfs order. With no pids every product of the vendor matches.
func Find(vid uint16, pids ...uint16) ([]DeviceInfo, error) {
	return Scanner{}.Find(vid, pids...)
}

// Find returns the devices of vendor vid whose product is one of pids.
func (s Scanner) Find(vid uint16, pids ...uint16) ([]DeviceInfo, error) {
	devices, err := s.Scan()
	if err != nil {
		return nil, err
	}

	var found []DeviceInfo
	for _, d := range devices {
		if d.VendorID != vid {
			continue
		}
		if len(pids) > 0 && !slices.Contains(pids, d.ProductID) {
			continue
		}
		found = append(found, d)
	}

	pkg.LogDebug(pkg.ComponentTransport, "device scan complete",
		"vid", vid,
		"scanned", len(devices),
		"matched", len(found))
	return found, nil
}

// =============================================================================
// Sysfs Parsing
// =============================================================================

// Scan returns every USB device listed in sysfs.
func (s Scanner) Scan() ([]DeviceInfo, error) {
	root := s.sysfsRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, pathError("scan", root, err)
	}

	var devices []DeviceInfo

	for _, entry := range entries {
		name := entry.Name()

		// USB devices have names like "1-1", "1-1.2", etc.
		// Skip root hubs (usb1, usb2) and interfaces (1-1:1.0).
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}

		info, err := s.parseDevice(filepath.Join(root, name))
		if err != nil {
			continue // Skip devices we can't parse
		}

		devices = append(devices, info)
	}

	s.fillNames(devices)
	return devices, nil
}

// parseDevice parses USB device information from sysfs.
func (s Scanner) parseDevice(sysfsPath string) (DeviceInfo, error) {
	info := DeviceInfo{SysfsPath: sysfsPath}

	busNum, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		return info, err
	}
	info.Bus = busNum

	devNum, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		return info, err
	}
	info.Address = devNum

	info.DevfsPath = formatDevfsPath(s.devfsRoot(), info.Bus, info.Address)

	vendorID, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idVendor"))
	if err != nil {
		return info, err
	}
	info.VendorID = vendorID

	productID, err := readSysfsHexUint16(filepath.Join(sysfsPath, "idProduct"))
	if err != nil {
		return info, err
	}
	info.ProductID = productID

	if speed, err := readSysfsString(filepath.Join(sysfsPath, "speed")); err == nil {
		info.Speed = parseSpeed(speed)
	}

	// String descriptors are optional.
	info.Manufacturer, _ = readSysfsString(filepath.Join(sysfsPath, "manufacturer"))
	info.Product, _ = readSysfsString(filepath.Join(sysfsPath, "product"))
	info.Serial, _ = readSysfsString(filepath.Join(sysfsPath, "serial"))

	return info, nil
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// readSysfsHexUint16 reads a hexadecimal uint16 from a sysfs attribute file.
func readSysfsHexUint16(path string) (uint16, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// =============================================================================
// Path Helpers
// =============================================================================

// formatDevfsPath constructs a usbfs node path from bus and device numbers.
func formatDevfsPath(root string, busNum, devNum uint8) string {
	// Path format: <root>/BBB/DDD where BBB and DDD are zero-padded
	buf := make([]byte, len(root)+8)
	n := copy(buf, root)
	buf[n] = '/'
	n++
	n += formatPadded(buf[n:], busNum, 3)
	buf[n] = '/'
	n++
	n += formatPadded(buf[n:], devNum, 3)
	return string(buf[:n])
}

// formatPadded formats a number with zero-padding to a fixed width.
func formatPadded(buf []byte, val uint8, width int) int {
	s := strconv.FormatUint(uint64(val), 10)
	padding := width - len(s)
	for i := 0; i < padding && i < len(buf); i++ {
		buf[i] = '0'
	}
	copy(buf[padding:], s)
	return width
}

// parseSpeed converts a sysfs speed string to a Speed value.
func parseSpeed(s string) Speed {
	switch s {
	case "1.5":
		return SpeedLow
	case "12":
		return SpeedFull
	case "480":
		return SpeedHigh
	case "5000", "10000", "20000":
		return SpeedSuper
	default:
		return SpeedUnknown
	}
}
