// Package usbfs provides a Linux USB transport for TI-Nspire handles.
//
// Devices are discovered by scanning sysfs for matching vendor and product
// identifiers and opened through their usbfs device nodes:
//
//	dev, err := usbfs.OpenFirst(nspire.VID, nspire.Products...)
//	if err != nil {
//	    return err
//	}
//	h, err := nspire.Open(dev)
//
// A [Device] exposes its file descriptor as the raw transport handle. The
// descriptor stays open until Close; the protocol engine wraps it without
// taking ownership.
//
// # Permissions
//
// Opening /dev/bus/usb/BBB/DDD requires write access to the node, typically
// granted by a udev rule:
//
//	SUBSYSTEM=="usb", ATTR{idVendor}=="0451", ATTR{idProduct}=="e012", MODE="0666"
//	SUBSYSTEM=="usb", ATTR{idVendor}=="0451", ATTR{idProduct}=="e022", MODE="0666"
package usbfs
