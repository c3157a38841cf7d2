package engine

import (
	"bytes"
	"strings"

	"github.com/ardnew/nspire/pkg"
)

// =============================================================================
// Strings
// =============================================================================

// CString is a NUL-terminated byte string passed to the native engine.
type CString []byte

// NewCString copies s into a NUL-terminated buffer. It fails with a
// *pkg.NulError if s contains an embedded NUL byte.
func NewCString(s string) (CString, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return nil, &pkg.NulError{Index: i}
	}
	b := make(CString, len(s)+1)
	copy(b, s)
	return b, nil
}

// Ptr returns a pointer to the first byte, suitable for passing to C.
func (c CString) Ptr() *byte {
	if len(c) == 0 {
		return nil
	}
	return &c[0]
}

// String returns the string without its terminator.
func (c CString) String() string {
	return GoString(c)
}

// GoString returns the bytes of b up to the first NUL (or all of b).
func GoString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// setCString copies s into a fixed native char array, truncating so that a
// terminator always fits.
func setCString(dst []byte, s string) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	copy(dst[:len(dst)-1], s)
}

// =============================================================================
// Directory Entries
// =============================================================================

// NameMax is the size of the native entry name field, terminator included.
const NameMax = 240

// DirType is the native entry type.
type DirType uint32

// Entry types.
const (
	DirTypeFile DirType = 0
	DirTypeDir  DirType = 1
)

// DirItem mirrors the native directory entry record.
type DirItem struct {
	Name [NameMax]byte
	Size uint64
	Date uint64
	Type DirType
}

// NameString returns the entry name up to its terminator.
func (d *DirItem) NameString() string {
	return GoString(d.Name[:])
}

// SetName stores name in the native name field.
func (d *DirItem) SetName(name string) {
	setCString(d.Name[:], name)
}

// =============================================================================
// Device Information
// =============================================================================

// Hardware types.
const (
	HWCAS      uint8 = 0x0E
	HWNonCAS   uint8 = 0x0F
	HWCASCX    uint8 = 0x10
	HWNonCASCX uint8 = 0x11
)

// Battery states.
const (
	BatteryPowered uint8 = 0x00
	BatteryOK      uint8 = 0x7F
	BatteryLow     uint8 = 0xF1
)

// Run levels.
const (
	RunLevelRecovery uint8 = 1
	RunLevelOS       uint8 = 2
)

// Memory is a free/total byte count pair.
type Memory struct {
	Free  uint64
	Total uint64
}

// VersionRecord is the native two-field version: Minor combines the minor
// and patch numbers as minor*10+patch.
type VersionRecord struct {
	Major uint8
	Minor uint8
	Build uint16
}

// LCDRecord describes the device display.
type LCDRecord struct {
	Width      uint16
	Height     uint16
	BPP        uint8
	SampleMode uint8
}

// Sizes of the fixed native string fields.
const (
	ExtensionMax    = 8
	DeviceNameMax   = 32
	ElectronicIDMax = 28
)

// DeviceInfo mirrors the native device information record.
type DeviceInfo struct {
	Storage      Memory
	RAM          Memory
	Versions     [3]VersionRecord // OS, boot1, boot2
	HWType       uint8
	ClockSpeed   uint8
	LCD          LCDRecord
	FileExt      [ExtensionMax]byte
	OSExt        [ExtensionMax]byte
	DeviceName   [DeviceNameMax]byte
	ElectronicID [ElectronicIDMax]byte
	RunLevel     uint8
	Battery      uint8
	Charging     uint8
}

// SetStrings stores the string fields in their native arrays.
func (d *DeviceInfo) SetStrings(fileExt, osExt, name, id string) {
	setCString(d.FileExt[:], fileExt)
	setCString(d.OSExt[:], osExt)
	setCString(d.DeviceName[:], name)
	setCString(d.ElectronicID[:], id)
}
