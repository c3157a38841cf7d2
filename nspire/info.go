package nspire

import (
	"fmt"
	"strconv"

	"github.com/ardnew/nspire/engine"
)

// Info is a snapshot of the device state. It holds no references to engine
// memory.
type Info struct {
	FreeStorage   uint64       `json:"free_storage"`
	TotalStorage  uint64       `json:"total_storage"`
	FreeRAM       uint64       `json:"free_ram"`
	TotalRAM      uint64       `json:"total_ram"`
	OSVersion     Version      `json:"os_version"`
	Boot1Version  Version      `json:"boot1_version"`
	Boot2Version  Version      `json:"boot2_version"`
	Hardware      HardwareType `json:"hw_type"`
	ClockSpeed    uint8        `json:"clock_speed"`
	LCD           LCD          `json:"lcd"`
	OSExtension   string       `json:"os_extension"`
	FileExtension string       `json:"file_extension"`
	Name          string       `json:"name"`
	ID            string       `json:"id"`
	RunLevel      RunLevel     `json:"run_level"`
	Battery       Battery      `json:"battery"`
	Charging      bool         `json:"is_charging"`
}

func newInfo(d *engine.DeviceInfo) Info {
	return Info{
		FreeStorage:   d.Storage.Free,
		TotalStorage:  d.Storage.Total,
		FreeRAM:       d.RAM.Free,
		TotalRAM:      d.RAM.Total,
		OSVersion:     newVersion(d.Versions[0]),
		Boot1Version:  newVersion(d.Versions[1]),
		Boot2Version:  newVersion(d.Versions[2]),
		Hardware:      HardwareType(d.HWType),
		ClockSpeed:    d.ClockSpeed,
		LCD:           LCD{Width: d.LCD.Width, Height: d.LCD.Height, BPP: d.LCD.BPP, SampleMode: d.LCD.SampleMode},
		OSExtension:   engine.GoString(d.OSExt[:]),
		FileExtension: engine.GoString(d.FileExt[:]),
		Name:          engine.GoString(d.DeviceName[:]),
		ID:            engine.GoString(d.ElectronicID[:]),
		RunLevel:      RunLevel(d.RunLevel),
		Battery:       Battery(d.Battery),
		Charging:      d.Charging != 0,
	}
}

// Version is a firmware version.
type Version struct {
	Major uint8  `json:"major"`
	Minor uint8  `json:"minor"`
	Patch uint8  `json:"patch"`
	Build uint16 `json:"build"`
}

// newVersion splits the device's combined minor field: the tens are the
// minor number and the units are the patch number.
func newVersion(v engine.VersionRecord) Version {
	return Version{
		Major: v.Major,
		Minor: v.Minor / 10,
		Patch: v.Minor % 10,
		Build: v.Build,
	}
}

// String returns "major.minor.patch.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}

// LCD describes the device display.
type LCD struct {
	Width      uint16 `json:"width"`
	Height     uint16 `json:"height"`
	BPP        uint8  `json:"bpp"`
	SampleMode uint8  `json:"sample_mode"`
}

func unknown(v uint8) string {
	return "unknown(" + strconv.Itoa(int(v)) + ")"
}

// HardwareType identifies the calculator model. Values outside the known set
// are preserved.
type HardwareType uint8

// Hardware types.
const (
	CAS      = HardwareType(engine.HWCAS)
	NonCAS   = HardwareType(engine.HWNonCAS)
	CASCX    = HardwareType(engine.HWCASCX)
	NonCASCX = HardwareType(engine.HWNonCASCX)
)

// IsCAS reports whether the model has a computer algebra system.
func (h HardwareType) IsCAS() bool { return h == CAS || h == CASCX }

// IsCX reports whether the model is a CX (color) model.
func (h HardwareType) IsCX() bool { return h == CASCX || h == NonCASCX }

func (h HardwareType) String() string {
	switch h {
	case CAS:
		return "cas"
	case NonCAS:
		return "non-cas"
	case CASCX:
		return "cas-cx"
	case NonCASCX:
		return "non-cas-cx"
	}
	return unknown(uint8(h))
}

// MarshalText implements encoding.TextMarshaler.
func (h HardwareType) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// Battery is the battery state. Values outside the known set are preserved.
type Battery uint8

// Battery states.
const (
	BatteryPowered = Battery(engine.BatteryPowered)
	BatteryOK      = Battery(engine.BatteryOK)
	BatteryLow     = Battery(engine.BatteryLow)
)

func (b Battery) String() string {
	switch b {
	case BatteryPowered:
		return "powered"
	case BatteryOK:
		return "ok"
	case BatteryLow:
		return "low"
	}
	return unknown(uint8(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b Battery) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// RunLevel is the software currently running on the device.
type RunLevel uint8

// Run levels.
const (
	RunLevelRecovery = RunLevel(engine.RunLevelRecovery)
	RunLevelOS       = RunLevel(engine.RunLevelOS)
)

func (r RunLevel) String() string {
	switch r {
	case RunLevelRecovery:
		return "recovery"
	case RunLevelOS:
		return "os"
	}
	return unknown(uint8(r))
}

// MarshalText implements encoding.TextMarshaler.
func (r RunLevel) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
