//go:build linux

package usbfs

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
)

// IDPaths lists the standard locations of the usb.ids name database.
var IDPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// idNames holds the names the usb.ids database registers for one vendor.
type idNames struct {
	vendor   string
	products map[uint16]string
}

// parseIDLine splits "xxxx  name" into its identifier and name.
func parseIDLine(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimSpace(line[5:]), true
}

// readIDNames scans a usb.ids database for the names of vendor vid.
func readIDNames(r io.Reader, vid uint16) idNames {
	names := idNames{products: make(map[uint16]string)}
	scanner := bufio.NewScanner(r)
	inVendor := false

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		switch {
		case strings.HasPrefix(line, "\t\t"):
			// Interface entries.
		case line[0] == '\t':
			if !inVendor {
				continue
			}
			if pid, name, ok := parseIDLine(line[1:]); ok {
				names.products[pid] = name
			}
		default:
			id, name, ok := parseIDLine(line)
			if inVendor && (!ok || id != vid) {
				return names // Vendors are listed once, in order.
			}
			if ok && id == vid {
				inVendor = true
				names.vendor = name
			}
		}
	}
	return names
}

// loadIDNames reads vendor vid's names from the first database found.
func loadIDNames(paths []string, vid uint16) (idNames, bool) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		defer f.Close()
		return readIDNames(f, vid), true
	}
	return idNames{}, false
}

// fillNames supplies missing manufacturer and product strings from the
// usb.ids database.
func (s Scanner) fillNames(devices []DeviceInfo) {
	paths := s.IDPaths
	if paths == nil {
		paths = IDPaths
	}

	cache := make(map[uint16]idNames)
	for i := range devices {
		d := &devices[i]
		if d.Manufacturer != "" && d.Product != "" {
			continue
		}
		names, ok := cache[d.VendorID]
		if !ok {
			names, _ = loadIDNames(paths, d.VendorID)
			cache[d.VendorID] = names
		}
		if d.Manufacturer == "" {
			d.Manufacturer = names.vendor
		}
		if d.Product == "" {
			d.Product = names.products[d.ProductID]
		}
	}
}
