package usbfs

// =============================================================================
// System Paths
// =============================================================================

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// DevfsUSBPath is the base path for USB device nodes.
const DevfsUSBPath = "/dev/bus/usb"

// =============================================================================
// USB Speeds
// =============================================================================

// Speed is the negotiated bus speed of a device.
type Speed uint8

// USB device speeds as reported by sysfs.
const (
	SpeedUnknown Speed = iota // Unknown speed
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
	SpeedSuper                // SuperSpeed (5 Gbit/s and above)
)

var speedNames = [...]string{
	SpeedUnknown: "unknown",
	SpeedLow:     "low",
	SpeedFull:    "full",
	SpeedHigh:    "high",
	SpeedSuper:   "super",
}

func (s Speed) String() string {
	if int(s) < len(speedNames) {
		return speedNames[s]
	}
	return "unknown"
}
