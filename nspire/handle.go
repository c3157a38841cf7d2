package nspire

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg"
	"github.com/ardnew/nspire/pkg/metrics"
)

// Transport is an open USB connection to a calculator.
//
// A Handle takes ownership of its transport: the transport is closed when
// the handle is closed or when Open fails.
type Transport interface {
	// ProductID returns the USB product identifier of the connected device.
	ProductID() (uint16, error)

	// Handle returns the raw native handle passed to the engine.
	Handle() uintptr

	// Close releases the connection.
	Close() error
}

var (
	errNoEngine      = errors.New("no protocol engine available")
	errNilTransport  = errors.New("nil transport")
	errNoFramebuffer = errors.New("engine returned no framebuffer")
	errShortFrame    = errors.New("engine returned a short framebuffer")
	errNoListing     = errors.New("engine returned no listing")
)

// Handle is an open connection to a calculator.
//
// Every method blocks until the device completes the request. Calls on one
// handle are serialized, so a Handle may be shared between goroutines; a
// Progress callback runs while the handle is held and must not call back
// into the same handle.
type Handle struct {
	mu   sync.Mutex
	inst engine.Instance // nil once closed
	t    Transport
	cx2  bool

	logger  *slog.Logger
	metrics *metrics.Collector
}

// Open initializes the protocol engine on t and returns a handle owning it.
//
// The CX II variant is selected from the transport's product identifier
// before the engine is initialized. If Open fails, t is closed and no
// engine state is left behind.
func Open(t Transport, opts ...Option) (*Handle, error) {
	cfg := newConfig(opts)
	start := time.Now()

	h, err := open(t, cfg)
	cfg.metrics.ObserveOperation(opOpen, time.Since(start), err)
	if err != nil {
		logTo(cfg.logger, slog.LevelWarn, "open failed", "error", err)
		return nil, err
	}

	cfg.metrics.HandleOpened()
	h.log(slog.LevelInfo, "device opened", "cx2", h.cx2, "duration", time.Since(start))
	return h, nil
}

func open(t Transport, cfg config) (*Handle, error) {
	if t == nil {
		return nil, &pkg.Error{Kind: pkg.KindInvalidInput, Op: opOpen, Err: errNilTransport}
	}

	fail := func(err error) (*Handle, error) {
		if cerr := t.Close(); cerr != nil {
			logTo(cfg.logger, slog.LevelWarn, "transport close failed", "error", cerr)
		}
		return nil, err
	}

	if cfg.engine == nil {
		return fail(&pkg.Error{Kind: pkg.KindUnsupported, Op: opOpen, Err: errNoEngine})
	}

	pid, err := t.ProductID()
	if err != nil {
		return fail(transportError(opOpen, err))
	}
	cx2 := pid == PIDCX2

	inst, st := cfg.engine.Init(t.Handle(), cx2)
	if err := statusError(opOpen, "", st); err != nil {
		if inst != nil {
			inst.Free()
		}
		return fail(err)
	}
	if inst == nil {
		return fail(&pkg.Error{Kind: pkg.KindNoDevice, Op: opOpen})
	}

	return &Handle{
		inst:    inst,
		t:       t,
		cx2:     cx2,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}, nil
}

// transportError wraps a transport failure, keeping its kind when it has one.
func transportError(op string, err error) error {
	kind := pkg.KindOf(err)
	if kind == pkg.KindUnknown {
		kind = pkg.KindTransport
	}
	return &pkg.Error{Kind: kind, Op: op, Err: err}
}

// IsCXII reports whether the device is a TI-Nspire CX II.
func (h *Handle) IsCXII() bool {
	return h.cx2
}

// Close releases the engine instance and then the transport. Closing an
// already closed handle does nothing. Any later operation fails with
// [pkg.ErrClosed].
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.inst == nil {
		return nil
	}
	start := time.Now()

	h.inst.Free()
	h.inst = nil

	var err error
	if cerr := h.t.Close(); cerr != nil {
		err = transportError(opClose, cerr)
	}

	h.metrics.HandleClosed()
	return h.finish(opClose, "", start, err)
}

// =============================================================================
// Device Queries
// =============================================================================

// Info returns a snapshot of the device state.
func (h *Handle) Info() (Info, error) {
	var info Info
	err := h.run(opInfo, "", time.Now(), func(inst engine.Instance) error {
		var raw engine.DeviceInfo
		if err := statusError(opInfo, "", inst.DeviceInfo(&raw)); err != nil {
			return err
		}
		info = newInfo(&raw)
		return nil
	})
	return info, err
}

// Screenshot captures the device display. The returned image owns a copy of
// the framebuffer; the engine's buffer is always released before returning.
func (h *Handle) Screenshot() (*Image, error) {
	var img *Image
	err := h.run(opScreenshot, "", time.Now(), func(inst engine.Instance) error {
		raw, st := inst.Screenshot()
		if raw != nil {
			defer raw.Free()
		}
		if err := statusError(opScreenshot, "", st); err != nil {
			return err
		}
		if raw == nil {
			return &pkg.Error{Kind: pkg.KindUnknown, Op: opScreenshot, Err: errNoFramebuffer}
		}
		n := raw.Len()
		if len(raw.Data) < n {
			return &pkg.Error{Kind: pkg.KindInvalidPacket, Op: opScreenshot, Err: errShortFrame}
		}
		img = &Image{
			Width:  raw.Width,
			Height: raw.Height,
			BPP:    raw.BPP,
			Data:   append([]byte(nil), raw.Data[:n]...),
		}
		return nil
	})
	return img, err
}

// =============================================================================
// Directories
// =============================================================================

// ListDir lists the directory at path. The caller must Close the listing.
func (h *Handle) ListDir(path string) (*DirList, error) {
	start := time.Now()
	p, err := cString(opListDir, path)
	if err != nil {
		return nil, h.finish(opListDir, path, start, err)
	}

	var list *DirList
	err = h.run(opListDir, path, start, func(inst engine.Instance) error {
		raw, st := inst.DirList(p)
		if err := statusError(opListDir, path, st); err != nil {
			if raw != nil {
				raw.Free()
			}
			return err
		}
		if raw == nil {
			return &pkg.Error{Kind: pkg.KindUnknown, Op: opListDir, Path: path, Err: errNoListing}
		}
		list = newDirList(raw, path)
		return nil
	})
	return list, err
}

// CreateDir creates the directory at path.
func (h *Handle) CreateDir(path string) error {
	return h.pathOp(opCreateDir, path, engine.Instance.DirCreate)
}

// DeleteDir deletes the empty directory at path.
func (h *Handle) DeleteDir(path string) error {
	return h.pathOp(opDeleteDir, path, engine.Instance.DirDelete)
}

// FileAttr returns the attributes of the file or directory at path.
func (h *Handle) FileAttr(path string) (DirEntry, error) {
	var entry DirEntry
	err := h.pathOp(opFileAttr, path, func(inst engine.Instance, p engine.CString) engine.Status {
		var item engine.DirItem
		st := inst.Attr(p, &item)
		if st.Code == engine.CodeSuccess {
			entry = newDirEntry(&item)
		}
		return st
	})
	return entry, err
}

// =============================================================================
// Files
// =============================================================================

// CopyFile copies the file at src to dst.
func (h *Handle) CopyFile(src, dst string) error {
	return h.pairOp(opCopyFile, src, dst, engine.Instance.FileCopy)
}

// MoveFile moves or renames the file at src to dst.
func (h *Handle) MoveFile(src, dst string) error {
	return h.pairOp(opMoveFile, src, dst, engine.Instance.FileMove)
}

// DeleteFile deletes the file at path.
func (h *Handle) DeleteFile(path string) error {
	return h.pathOp(opDeleteFile, path, engine.Instance.FileDelete)
}

// ReadFile reads the file at path into buf and returns the number of bytes
// read. A file longer than buf is truncated. progress, which may be nil,
// receives the byte counts reported by the engine.
func (h *Handle) ReadFile(path string, buf []byte, progress Progress) (int, error) {
	var n uint64
	err := h.pathOp(opReadFile, path, func(inst engine.Instance, p engine.CString) engine.Status {
		return withProgress(progress, func(cb engine.Callback, ctx unsafe.Pointer) engine.Status {
			return inst.FileRead(p, buf, &n, cb, ctx)
		})
	})
	if err != nil {
		return 0, err
	}
	h.metrics.AddTransferBytes(metrics.DirectionRead, int(n))
	return int(n), nil
}

// WriteFile writes buf to the file at path. progress, which may be nil,
// receives the byte counts reported by the engine.
func (h *Handle) WriteFile(path string, buf []byte, progress Progress) error {
	err := h.pathOp(opWriteFile, path, func(inst engine.Instance, p engine.CString) engine.Status {
		return withProgress(progress, func(cb engine.Callback, ctx unsafe.Pointer) engine.Status {
			return inst.FileWrite(p, buf, cb, ctx)
		})
	})
	if err == nil {
		h.metrics.AddTransferBytes(metrics.DirectionWrite, len(buf))
	}
	return err
}

// SendOS installs buf as an operating system upgrade. progress, which may be
// nil, receives the byte counts reported by the engine.
func (h *Handle) SendOS(buf []byte, progress Progress) error {
	err := h.run(opSendOS, "", time.Now(), func(inst engine.Instance) error {
		st := withProgress(progress, func(cb engine.Callback, ctx unsafe.Pointer) engine.Status {
			return inst.OSSend(buf, cb, ctx)
		})
		return statusError(opSendOS, "", st)
	})
	if err == nil {
		h.metrics.AddTransferBytes(metrics.DirectionOS, len(buf))
	}
	return err
}

// =============================================================================
// Call Plumbing
// =============================================================================

// cString validates a path argument before any engine call.
func cString(op, path string) (engine.CString, error) {
	p, err := engine.NewCString(path)
	if err != nil {
		return nil, &pkg.Error{Kind: pkg.KindNulByte, Op: op, Path: path, Err: err}
	}
	return p, nil
}

// pathOp validates path and runs a single-path engine call.
func (h *Handle) pathOp(op, path string, fn func(engine.Instance, engine.CString) engine.Status) error {
	start := time.Now()
	p, err := cString(op, path)
	if err != nil {
		return h.finish(op, path, start, err)
	}
	return h.run(op, path, start, func(inst engine.Instance) error {
		return statusError(op, path, fn(inst, p))
	})
}

// pairOp validates src and dst independently and runs a two-path engine call.
func (h *Handle) pairOp(op, src, dst string, fn func(engine.Instance, engine.CString, engine.CString) engine.Status) error {
	start := time.Now()
	s, err := cString(op, src)
	if err != nil {
		return h.finish(op, src, start, err)
	}
	d, err := cString(op, dst)
	if err != nil {
		return h.finish(op, dst, start, err)
	}
	return h.run(op, src, start, func(inst engine.Instance) error {
		return statusError(op, src, fn(inst, s, d))
	})
}

// run calls fn with the engine instance while holding the handle.
func (h *Handle) run(op, path string, start time.Time, fn func(engine.Instance) error) error {
	err := func() error {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.inst == nil {
			return &pkg.Error{Kind: pkg.KindClosed, Op: op, Path: path}
		}
		return fn(h.inst)
	}()
	return h.finish(op, path, start, err)
}

// finish logs and records the outcome of an operation and returns err.
func (h *Handle) finish(op, path string, start time.Time, err error) error {
	d := time.Since(start)
	h.metrics.ObserveOperation(op, d, err)
	if err != nil {
		h.log(slog.LevelWarn, "operation failed", "op", op, "path", path, "duration", d, "error", err)
		return err
	}
	h.log(slog.LevelDebug, "operation complete", "op", op, "path", path, "duration", d)
	return nil
}

func (h *Handle) log(level slog.Level, msg string, args ...any) {
	logTo(h.logger, level, msg, args...)
}

// logTo writes to l, or to the package logger when l is nil.
func logTo(l *slog.Logger, level slog.Level, msg string, args ...any) {
	if l == nil {
		switch level {
		case slog.LevelDebug:
			pkg.LogDebug(pkg.ComponentHandle, msg, args...)
		case slog.LevelInfo:
			pkg.LogInfo(pkg.ComponentHandle, msg, args...)
		case slog.LevelWarn:
			pkg.LogWarn(pkg.ComponentHandle, msg, args...)
		default:
			pkg.LogError(pkg.ComponentHandle, msg, args...)
		}
		return
	}
	l.Log(context.Background(), level, msg, append([]any{"component", pkg.ComponentHandle}, args...)...)
}
