// Package nspire communicates with TI-Nspire graphing calculators over USB.
//
// A [Handle] owns one protocol engine instance and the USB transport it was
// opened on. It exposes every device operation: device information,
// screenshots, directory management, file transfer and operating system
// upgrades.
//
// # Opening a Device
//
// The transport is opened by the caller and handed to [Open], which takes
// ownership of it:
//
//	dev, err := usbfs.OpenFirst(nspire.VID, nspire.Products...)
//	if err != nil {
//	    return err
//	}
//	h, err := nspire.Open(dev)
//	if err != nil {
//	    return err // dev is already closed
//	}
//	defer h.Close()
//
// The native libnspire engine is used when the package is built with cgo
// and the libnspire build tag. Any other [engine.Engine], such as the
// simulator in engine/sim, can be selected with [WithEngine].
//
// # Directory Listings
//
// [Handle.ListDir] returns a [DirList] that reads entries in place from the
// engine's allocation. The listing must be closed, and its items must not be
// used afterwards. [DirList.Entries] returns a detached copy.
//
// # Screenshots
//
// [Handle.Screenshot] returns the raw framebuffer. [DecodeFramebuffer]
// converts it to 8-bit channels and works without a device:
//
//	img, _ := h.Screenshot()
//	px, err := img.Decode()
//	png.Encode(w, px.Image())
//
// # Errors
//
// Every failure is a *[pkg.Error] whose kind matches one of the sentinels in
// package pkg:
//
//	if errors.Is(err, pkg.ErrNotExist) {
//	    // ...
//	}
//
// # Concurrency
//
// Calls on a handle are serialized. Progress callbacks run on the calling
// goroutine while the handle is held and must not call the same handle.
package nspire
