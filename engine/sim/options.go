package sim

import (
	"time"

	"github.com/ardnew/nspire/engine"
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithDeviceInfo replaces the device information record. The framebuffer is
// regenerated to match the new display descriptor.
func WithDeviceInfo(info engine.DeviceInfo) Option {
	return func(c *Calculator) {
		c.info = info
		c.fb = gradient(info.LCD.Width, info.LCD.Height, info.LCD.BPP)
	}
}

// WithFramebuffer sets the raw framebuffer returned by screenshots.
func WithFramebuffer(width, height uint16, bpp uint8, data []byte) Option {
	return func(c *Calculator) {
		c.fb = framebuffer{width: width, height: height, bpp: bpp, data: append([]byte(nil), data...)}
	}
}

// WithChunkSize sets the number of bytes between progress reports.
// A size of zero disables progress reports.
func WithChunkSize(n int) Option {
	return func(c *Calculator) {
		c.chunk = n
	}
}

// WithClock sets the time source used for entry dates.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.clock = now
		c.root.date = c.now()
	}
}

// WithFile adds a file, creating missing parent directories.
func WithFile(path string, data []byte) Option {
	return func(c *Calculator) {
		c.addFile(path, data, false)
	}
}

// WithDir adds a directory, creating missing parent directories.
func WithDir(path string) Option {
	return func(c *Calculator) {
		c.addFile(path, nil, true)
	}
}
