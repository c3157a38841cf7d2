//go:build cgo && libnspire

package libnspire

/*
#cgo pkg-config: libnspire libusb-1.0
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>
#include <libusb.h>
#include <nspire.h>

extern void nspireProgress(size_t, void *);

static nspire_callback nsp_cb(uintptr_t h) {
	return h ? (nspire_callback)nspireProgress : NULL;
}

static int nsp_file_read(nspire_handle_t *h, const char *path, void *buf, size_t size, size_t *n, uintptr_t cb) {
	return nspire_file_read(h, path, buf, size, n, nsp_cb(cb), (void *)cb);
}

static int nsp_file_write(nspire_handle_t *h, const char *path, void *buf, size_t size, uintptr_t cb) {
	return nspire_file_write(h, path, buf, size, nsp_cb(cb), (void *)cb);
}

static int nsp_os_send(nspire_handle_t *h, void *buf, size_t size, uintptr_t cb) {
	return nspire_os_send(h, buf, size, nsp_cb(cb), (void *)cb);
}

static struct nspire_dir_item *nsp_dir_items(struct nspire_dir_info *d) {
	return d->items;
}

static unsigned char *nsp_image_data(struct nspire_image *img) {
	return img->data;
}

static int nsp_context(libusb_context **ctx) {
	libusb_set_option(NULL, LIBUSB_OPTION_NO_DEVICE_DISCOVERY);
	return libusb_init(ctx);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg"
)

// The Go mirror of a directory entry must match the native layout, since
// listings are viewed in place.
var (
	_ [unsafe.Sizeof(engine.DirItem{}) - C.sizeof_struct_nspire_dir_item]struct{}
	_ [C.sizeof_struct_nspire_dir_item - unsafe.Sizeof(engine.DirItem{})]struct{}
)

// Engine is the libnspire protocol engine. Its libusb context is created on
// first use and shared by every instance.
type Engine struct {
	once sync.Once
	ctx  *C.libusb_context
	rc   C.int
}

// New returns a libnspire engine.
func New() *Engine {
	return &Engine{}
}

func (e *Engine) context() engine.Status {
	e.once.Do(func() {
		e.rc = C.nsp_context(&e.ctx)
		if e.rc != 0 {
			pkg.LogError(pkg.ComponentEngine, "libusb init failed", "status", engine.USBCode(e.rc).String())
		}
	})
	if e.rc != 0 {
		return engine.USBFail(engine.USBCode(e.rc))
	}
	return engine.OK
}

// Init implements [engine.Engine]. transport is a usbfs file descriptor.
func (e *Engine) Init(transport uintptr, cx2 bool) (engine.Instance, engine.Status) {
	if st := e.context(); st != engine.OK {
		return nil, st
	}

	var dev *C.libusb_device_handle
	if rc := C.libusb_wrap_sys_device(e.ctx, C.intptr_t(transport), &dev); rc != 0 {
		return nil, engine.USBFail(engine.USBCode(rc))
	}

	var h *C.nspire_handle_t
	st := engine.FromReturn(int(C.nspire_init(&h, dev, C.bool(cx2))))
	if st != engine.OK || h == nil {
		if h != nil {
			C.nspire_free(h)
		}
		C.libusb_close(dev)
		return nil, st
	}

	pkg.LogDebug(pkg.ComponentEngine, "libnspire instance created", "cx2", cx2)
	return &instance{h: h, dev: dev}, engine.OK
}

// Close releases the libusb context. Instances must be freed first.
func (e *Engine) Close() {
	if e.ctx != nil {
		C.libusb_exit(e.ctx)
		e.ctx = nil
	}
}

// instance implements [engine.Instance] over a native handle.
type instance struct {
	h   *C.nspire_handle_t
	dev *C.libusb_device_handle
}

func status(rc C.int) engine.Status {
	return engine.FromReturn(int(rc))
}

func cpath(p engine.CString) *C.char {
	return (*C.char)(unsafe.Pointer(p.Ptr()))
}

func cbuf(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func (i *instance) Free() {
	C.nspire_free(i.h)
	C.libusb_close(i.dev)
	i.h, i.dev = nil, nil
}

func (i *instance) DeviceInfo(info *engine.DeviceInfo) engine.Status {
	var raw C.struct_nspire_devinfo
	if st := status(C.nspire_device_info(i.h, &raw)); st != engine.OK {
		return st
	}

	*info = engine.DeviceInfo{
		Storage:    engine.Memory{Free: uint64(raw.storage.free), Total: uint64(raw.storage.total)},
		RAM:        engine.Memory{Free: uint64(raw.ram.free), Total: uint64(raw.ram.total)},
		HWType:     uint8(raw.hw_type),
		ClockSpeed: uint8(raw.clock_speed),
		LCD: engine.LCDRecord{
			Width:      uint16(raw.lcd.width),
			Height:     uint16(raw.lcd.height),
			BPP:        uint8(raw.lcd.bbp),
			SampleMode: uint8(raw.lcd.sample_mode),
		},
		RunLevel: uint8(raw.runlevel),
		Battery:  uint8(raw.batt.status),
		Charging: uint8(raw.batt.is_charging),
	}
	for j := range info.Versions {
		v := raw.versions[j]
		info.Versions[j] = engine.VersionRecord{
			Major: uint8(v.major),
			Minor: uint8(v.minor),
			Build: uint16(v.build),
		}
	}
	copyChars(info.FileExt[:], raw.extensions.file[:])
	copyChars(info.OSExt[:], raw.extensions.os[:])
	copyChars(info.DeviceName[:], raw.device_name[:])
	copyChars(info.ElectronicID[:], raw.electronic_id[:])
	return engine.OK
}

// copyChars copies a native char array, always leaving dst terminated.
func copyChars(dst []byte, src []C.char) {
	clear(dst)
	for j := 0; j < len(dst)-1 && j < len(src) && src[j] != 0; j++ {
		dst[j] = byte(src[j])
	}
}

func (i *instance) Screenshot() (*engine.Image, engine.Status) {
	var img *C.struct_nspire_image
	if st := status(C.nspire_screenshot(i.h, &img)); st != engine.OK {
		if img != nil {
			C.free(unsafe.Pointer(img))
		}
		return nil, st
	}
	if img == nil {
		return nil, engine.Fail(engine.CodeNoMem)
	}

	w, h, bpp := uint16(img.width), uint16(img.height), uint8(img.bpp)
	n := int(w) * int(h) * int(bpp) / 8
	data := unsafe.Slice((*byte)(unsafe.Pointer(C.nsp_image_data(img))), n)
	return engine.NewImage(w, h, bpp, data, func() { C.free(unsafe.Pointer(img)) }), engine.OK
}

// dirList views a native nspire_dir_info in place.
type dirList struct {
	info  *C.struct_nspire_dir_info
	items []engine.DirItem
}

func (l *dirList) Len() int                   { return len(l.items) }
func (l *dirList) Item(i int) *engine.DirItem { return &l.items[i] }

func (l *dirList) Free() {
	C.nspire_dirlist_free(l.info)
	l.info, l.items = nil, nil
}

func (i *instance) DirList(p engine.CString) (engine.DirList, engine.Status) {
	var info *C.struct_nspire_dir_info
	if st := status(C.nspire_dirlist(i.h, cpath(p), &info)); st != engine.OK {
		if info != nil {
			C.nspire_dirlist_free(info)
		}
		return nil, st
	}
	if info == nil {
		return nil, engine.Fail(engine.CodeNoMem)
	}
	items := unsafe.Slice((*engine.DirItem)(unsafe.Pointer(C.nsp_dir_items(info))), int(info.num))
	return &dirList{info: info, items: items}, engine.OK
}

func (i *instance) DirCreate(p engine.CString) engine.Status {
	return status(C.nspire_dir_create(i.h, cpath(p)))
}

func (i *instance) DirDelete(p engine.CString) engine.Status {
	return status(C.nspire_dir_delete(i.h, cpath(p)))
}

func (i *instance) Attr(p engine.CString, item *engine.DirItem) engine.Status {
	return status(C.nspire_attr(i.h, cpath(p), (*C.struct_nspire_dir_item)(unsafe.Pointer(item))))
}

func (i *instance) FileCopy(src, dst engine.CString) engine.Status {
	return status(C.nspire_file_copy(i.h, cpath(src), cpath(dst)))
}

func (i *instance) FileMove(src, dst engine.CString) engine.Status {
	return status(C.nspire_file_move(i.h, cpath(src), cpath(dst)))
}

func (i *instance) FileDelete(p engine.CString) engine.Status {
	return status(C.nspire_file_delete(i.h, cpath(p)))
}

func (i *instance) FileRead(p engine.CString, buf []byte, n *uint64, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	var read C.size_t
	rc := withCallback(cb, ctx, func(h C.uintptr_t) C.int {
		return C.nsp_file_read(i.h, cpath(p), cbuf(buf), C.size_t(len(buf)), &read, h)
	})
	*n = uint64(read)
	return status(rc)
}

func (i *instance) FileWrite(p engine.CString, buf []byte, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	return status(withCallback(cb, ctx, func(h C.uintptr_t) C.int {
		return C.nsp_file_write(i.h, cpath(p), cbuf(buf), C.size_t(len(buf)), h)
	}))
}

func (i *instance) OSSend(buf []byte, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	return status(withCallback(cb, ctx, func(h C.uintptr_t) C.int {
		return C.nsp_os_send(i.h, cbuf(buf), C.size_t(len(buf)), h)
	}))
}
