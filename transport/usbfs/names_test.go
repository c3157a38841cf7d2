//go:build linux

package usbfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const usbIDs = `# usb.ids excerpt
#
0450  DFI, Inc.
	0001  Unknown
0451  Texas Instruments, Inc.
	e012  TI-Nspire Calculator
	e022  Nspire CX-II
		00  Interface
0452  Mitsubishi Electric Corp.
	e022  Not a calculator
C 00  (Defined at Interface level)
`

func TestReadIDNames(t *testing.T) {
	names := readIDNames(strings.NewReader(usbIDs), 0x0451)
	if names.vendor != "Texas Instruments, Inc." {
		t.Errorf("vendor = %q", names.vendor)
	}
	if len(names.products) != 2 {
		t.Fatalf("products = %v", names.products)
	}
	if got := names.products[0xe022]; got != "Nspire CX-II" {
		t.Errorf("products[e022] = %q", got)
	}

	missing := readIDNames(strings.NewReader(usbIDs), 0x1234)
	if missing.vendor != "" || len(missing.products) != 0 {
		t.Errorf("unknown vendor = %+v", missing)
	}
}

func TestParseIDLine(t *testing.T) {
	tests := []struct {
		line string
		id   uint16
		name string
		ok   bool
	}{
		{"0451  Texas Instruments, Inc.", 0x0451, "Texas Instruments, Inc.", true},
		{"e012  TI-Nspire Calculator ", 0xe012, "TI-Nspire Calculator", true},
		{"C 00  (Defined at Interface level)", 0, "", false},
		{"045", 0, "", false},
		{"zzzz  bad", 0, "", false},
	}
	for _, tt := range tests {
		id, name, ok := parseIDLine(tt.line)
		if id != tt.id || name != tt.name || ok != tt.ok {
			t.Errorf("parseIDLine(%q) = %#x, %q, %v", tt.line, id, name, ok)
		}
	}
}

func TestScan_FillsNames(t *testing.T) {
	s := writeTree(t, fakeDevice{name: "1-4", attrs: map[string]string{
		"busnum": "1", "devnum": "9", "idVendor": "0451", "idProduct": "e022",
	}})
	db := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(db, []byte(usbIDs), 0o644); err != nil {
		t.Fatal(err)
	}
	s.IDPaths = []string{filepath.Join(t.TempDir(), "absent.ids"), db}

	devices, err := s.Scan()
	if err != nil || len(devices) != 1 {
		t.Fatalf("Scan() = %v, %v", devices, err)
	}
	if devices[0].Manufacturer != "Texas Instruments, Inc." || devices[0].Product != "Nspire CX-II" {
		t.Errorf("names = %q, %q", devices[0].Manufacturer, devices[0].Product)
	}
}
