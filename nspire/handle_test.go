package nspire

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/engine/sim"
	"github.com/ardnew/nspire/pkg"
	"github.com/ardnew/nspire/pkg/metrics"
)

// =============================================================================
// Mock Transport for Testing
// =============================================================================

// mockTransport implements Transport for testing.
type mockTransport struct {
	pid      uint16
	pidErr   error
	handle   uintptr
	closeErr error

	mu     sync.Mutex
	closes int
}

func newMockTransport(pid uint16) *mockTransport {
	return &mockTransport{pid: pid, handle: 0xbeef}
}

func (m *mockTransport) ProductID() (uint16, error) { return m.pid, m.pidErr }
func (m *mockTransport) Handle() uintptr            { return m.handle }

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return m.closeErr
}

func (m *mockTransport) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// engineFunc adapts a function to engine.Engine.
type engineFunc func(uintptr, bool) (engine.Instance, engine.Status)

func (f engineFunc) Init(t uintptr, cx2 bool) (engine.Instance, engine.Status) { return f(t, cx2) }

func openSim(t *testing.T, opts ...sim.Option) (*Handle, *sim.Calculator, *mockTransport) {
	t.Helper()
	calc := sim.New(opts...)
	tr := newMockTransport(PIDCX2)
	h, err := Open(tr, WithEngine(calc))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h, calc, tr
}

// =============================================================================
// Open and Close
// =============================================================================

func TestOpen_Variant(t *testing.T) {
	tests := []struct {
		pid uint16
		cx2 bool
	}{
		{PID, false},
		{PIDCX2, true},
		{0x1234, false},
	}
	for _, tt := range tests {
		calc := sim.New()
		tr := newMockTransport(tt.pid)
		h, err := Open(tr, WithEngine(calc))
		if err != nil {
			t.Fatalf("Open(pid %#x) error = %v", tt.pid, err)
		}
		if h.IsCXII() != tt.cx2 || calc.CX2() != tt.cx2 {
			t.Errorf("pid %#x: IsCXII=%v engine cx2=%v, want %v", tt.pid, h.IsCXII(), calc.CX2(), tt.cx2)
		}
		if calc.Transport() != tr.handle {
			t.Errorf("engine got transport %#x, want %#x", calc.Transport(), tr.handle)
		}
		h.Close()
	}
}

func TestOpen_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*sim.Calculator, *mockTransport) engine.Engine
		kind  pkg.Kind
		inits int
	}{
		{
			name: "no engine",
			setup: func(*sim.Calculator, *mockTransport) engine.Engine {
				return nil
			},
			kind: pkg.KindUnsupported,
		},
		{
			name: "product id",
			setup: func(c *sim.Calculator, tr *mockTransport) engine.Engine {
				tr.pidErr = errors.New("descriptor read failed")
				return c
			},
			kind: pkg.KindTransport,
		},
		{
			name: "product id with kind",
			setup: func(c *sim.Calculator, tr *mockTransport) engine.Engine {
				tr.pidErr = pkg.NewError(pkg.KindAccess, "sysfs", nil)
				return c
			},
			kind: pkg.KindAccess,
		},
		{
			name: "init status",
			setup: func(c *sim.Calculator, _ *mockTransport) engine.Engine {
				c.Fail(sim.OpInit, engine.USBFail(engine.USBErrAccess))
				return c
			},
			kind:  pkg.KindAccess,
			inits: 1,
		},
		{
			name: "nil instance",
			setup: func(c *sim.Calculator, _ *mockTransport) engine.Engine {
				c.ReturnNilInstance(true)
				return c
			},
			kind:  pkg.KindNoDevice,
			inits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := sim.New()
			tr := newMockTransport(PID)
			e := tt.setup(calc, tr)

			h, err := Open(tr, WithEngine(e))
			if h != nil {
				t.Fatal("Open() returned a handle on failure")
			}
			if pkg.KindOf(err) != tt.kind {
				t.Errorf("Open() error = %v, want kind %v", err, tt.kind)
			}
			if tr.closeCount() != 1 {
				t.Errorf("transport closed %d times, want 1", tr.closeCount())
			}
			if calc.Calls(sim.OpInit) != tt.inits {
				t.Errorf("Init called %d times, want %d", calc.Calls(sim.OpInit), tt.inits)
			}
			if calc.Live() != 0 {
				t.Errorf("%d engine instances leaked", calc.Live())
			}
		})
	}
}

func TestOpen_FreesInstanceOnFailedStatus(t *testing.T) {
	calc := sim.New()
	e := engineFunc(func(tr uintptr, cx2 bool) (engine.Instance, engine.Status) {
		inst, _ := calc.Init(tr, cx2)
		return inst, engine.Fail(engine.CodeBusy)
	})
	tr := newMockTransport(PID)

	_, err := Open(tr, WithEngine(e))
	if !errors.Is(err, pkg.ErrBusy) {
		t.Errorf("Open() error = %v, want ErrBusy", err)
	}
	if calc.Live() != 0 || calc.Calls(sim.OpFree) != 1 {
		t.Errorf("instance not freed: live=%d frees=%d", calc.Live(), calc.Calls(sim.OpFree))
	}
}

func TestOpen_NilTransport(t *testing.T) {
	_, err := Open(nil, WithEngine(sim.New()))
	if pkg.KindOf(err) != pkg.KindInvalidInput {
		t.Errorf("Open(nil) error = %v", err)
	}
}

func TestClose(t *testing.T) {
	calc := sim.New()
	tr := newMockTransport(PID)
	h, err := Open(tr, WithEngine(calc))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for range 3 {
		if err := h.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if calc.Calls(sim.OpFree) != 1 || calc.Live() != 0 {
		t.Errorf("instance freed %d times, live %d", calc.Calls(sim.OpFree), calc.Live())
	}
	if tr.closeCount() != 1 {
		t.Errorf("transport closed %d times, want 1", tr.closeCount())
	}

	before := calc.TotalCalls()
	ops := map[string]func() error{
		"Info":       func() error { _, err := h.Info(); return err },
		"Screenshot": func() error { _, err := h.Screenshot(); return err },
		"ListDir":    func() error { _, err := h.ListDir("/"); return err },
		"CreateDir":  func() error { return h.CreateDir("/a") },
		"DeleteDir":  func() error { return h.DeleteDir("/a") },
		"FileAttr":   func() error { _, err := h.FileAttr("/a"); return err },
		"CopyFile":   func() error { return h.CopyFile("/a", "/b") },
		"MoveFile":   func() error { return h.MoveFile("/a", "/b") },
		"DeleteFile": func() error { return h.DeleteFile("/a") },
		"ReadFile":   func() error { _, err := h.ReadFile("/a", nil, nil); return err },
		"WriteFile":  func() error { return h.WriteFile("/a", nil, nil) },
		"SendOS":     func() error { return h.SendOS([]byte{1}, nil) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, pkg.ErrClosed) {
			t.Errorf("%s after Close: error = %v, want ErrClosed", name, err)
		}
	}
	if calc.TotalCalls() != before {
		t.Error("engine called after Close")
	}
}

func TestClose_TransportError(t *testing.T) {
	calc := sim.New()
	tr := newMockTransport(PID)
	tr.closeErr = errors.New("EIO")
	h, err := Open(tr, WithEngine(calc))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := h.Close(); pkg.KindOf(err) != pkg.KindTransport {
		t.Errorf("Close() error = %v, want transport", err)
	}
	if calc.Live() != 0 {
		t.Error("instance not freed when transport close fails")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// =============================================================================
// Path Validation
// =============================================================================

func TestNulPaths(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithFile("/ok.tns", []byte("x")))
	bad := "/docs/a\x00b"
	before := calc.TotalCalls()

	ops := []struct {
		name string
		fn   func() error
	}{
		{"ListDir", func() error { _, err := h.ListDir(bad); return err }},
		{"CreateDir", func() error { return h.CreateDir(bad) }},
		{"DeleteDir", func() error { return h.DeleteDir(bad) }},
		{"FileAttr", func() error { _, err := h.FileAttr(bad); return err }},
		{"CopyFile src", func() error { return h.CopyFile(bad, "/ok2.tns") }},
		{"CopyFile dst", func() error { return h.CopyFile("/ok.tns", bad) }},
		{"MoveFile src", func() error { return h.MoveFile(bad, "/ok2.tns") }},
		{"MoveFile dst", func() error { return h.MoveFile("/ok.tns", bad) }},
		{"DeleteFile", func() error { return h.DeleteFile(bad) }},
		{"ReadFile", func() error { _, err := h.ReadFile(bad, make([]byte, 4), nil); return err }},
		{"WriteFile", func() error { return h.WriteFile(bad, []byte("x"), nil) }},
	}
	for _, tt := range ops {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, pkg.ErrNulByte) {
				t.Fatalf("error = %v, want ErrNulByte", err)
			}
			var nul *pkg.NulError
			if !errors.As(err, &nul) || nul.Index != 7 {
				t.Errorf("NulError = %v", nul)
			}
		})
	}

	if calc.TotalCalls() != before {
		t.Errorf("engine called %d times for invalid paths", calc.TotalCalls()-before)
	}
	if !calc.Exists("/ok.tns") {
		t.Error("source changed by rejected move")
	}
}

func TestValidPathsReachEngine(t *testing.T) {
	h, calc, _ := openSim(t)
	paths := []string{"/", "/a", "/with space", "/ünïcødé", "/docs/../docs", strings.Repeat("/x", 50)}

	for _, p := range paths {
		before := calc.Calls(sim.OpAttr)
		_, err := h.FileAttr(p)
		if errors.Is(err, pkg.ErrNulByte) {
			t.Errorf("FileAttr(%q) rejected by validation", p)
		}
		if calc.Calls(sim.OpAttr) != before+1 {
			t.Errorf("FileAttr(%q) did not reach the engine", p)
		}
	}
}

// =============================================================================
// Operations
// =============================================================================

func TestInfo(t *testing.T) {
	h, calc, _ := openSim(t)

	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.Name != "Nspire CX II" || info.Hardware != NonCASCX || info.LCD.BPP != 16 {
		t.Errorf("Info() = %+v", info)
	}
	if info.OSVersion != (Version{Major: 6, Minor: 2, Patch: 0, Build: 333}) {
		t.Errorf("OSVersion = %v", info.OSVersion)
	}

	calc.Fail(sim.OpDeviceInfo, engine.Fail(engine.CodeTimeout))
	if _, err := h.Info(); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("Info() error = %v, want ErrTimeout", err)
	}
}

func TestScreenshot(t *testing.T) {
	fb := []byte{0x1F, 0x00, 0x00, 0xF8}
	h, calc, _ := openSim(t, sim.WithFramebuffer(2, 1, 16, fb))

	img, err := h.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}
	if calc.Outstanding() != 0 {
		t.Error("engine framebuffer not released")
	}
	if img.Width != 2 || img.Height != 1 || img.BPP != 16 || !bytes.Equal(img.Data, fb) {
		t.Errorf("Screenshot() = %+v", img)
	}

	px, err := img.Decode()
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !bytes.Equal(px.Pix, []byte{255, 0, 0, 0, 0, 255}) {
		t.Errorf("Pix = %v", px.Pix)
	}
}

func TestScreenshot_UnsupportedDepthStillCaptures(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithFramebuffer(1, 1, 32, []byte{1, 2, 3, 4}))

	img, err := h.Screenshot()
	if err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}
	if calc.Outstanding() != 0 {
		t.Error("engine framebuffer not released")
	}
	if _, err := img.Decode(); !errors.Is(err, pkg.ErrPixelDepth) {
		t.Errorf("Decode() error = %v", err)
	}
}

func TestScreenshot_Failure(t *testing.T) {
	h, calc, _ := openSim(t)
	calc.Fail(sim.OpScreenshot, engine.Fail(engine.CodeNACK))

	if _, err := h.Screenshot(); !errors.Is(err, pkg.ErrNAK) {
		t.Errorf("Screenshot() error = %v, want ErrNAK", err)
	}
	if calc.Outstanding() != 0 {
		t.Error("engine framebuffer leaked")
	}
}

func TestDirectories(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithFile("/docs/b.tns", []byte("bb")), sim.WithFile("/docs/a.tns", []byte("a")))

	if err := h.CreateDir("/docs/sub"); err != nil {
		t.Fatalf("CreateDir() error = %v", err)
	}
	if err := h.CreateDir("/docs/sub"); !errors.Is(err, pkg.ErrExists) {
		t.Errorf("CreateDir(existing) error = %v, want ErrExists", err)
	}

	list, err := h.ListDir("/docs")
	if err != nil {
		t.Fatalf("ListDir() error = %v", err)
	}
	if calc.Outstanding() != 1 {
		t.Errorf("Outstanding() = %d, want 1 while listing is open", calc.Outstanding())
	}
	var names []string
	for _, item := range list.All() {
		names = append(names, item.Name())
	}
	if got := strings.Join(names, ","); got != "a.tns,b.tns,sub" {
		t.Errorf("ListDir() names = %s", got)
	}
	if e := list.At(2).Entry(); e.Type != Directory {
		t.Errorf("sub entry = %+v", e)
	}
	list.Close()
	if calc.Outstanding() != 0 {
		t.Error("listing not released on Close")
	}

	if _, err := h.ListDir("/missing"); !errors.Is(err, pkg.ErrNotExist) {
		t.Errorf("ListDir(missing) error = %v", err)
	}
	if err := h.DeleteDir("/docs"); !errors.Is(err, pkg.ErrInvalidInput) {
		t.Errorf("DeleteDir(non-empty) error = %v", err)
	}
	if err := h.DeleteDir("/docs/sub"); err != nil {
		t.Errorf("DeleteDir() error = %v", err)
	}
	if calc.Exists("/docs/sub") {
		t.Error("directory not deleted")
	}
}

func TestFiles(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithFile("/a.tns", []byte("hello")))

	entry, err := h.FileAttr("/a.tns")
	if err != nil {
		t.Fatalf("FileAttr() error = %v", err)
	}
	if entry.Name != "a.tns" || entry.Size != 5 || entry.Type != File {
		t.Errorf("FileAttr() = %+v", entry)
	}
	if _, err := h.FileAttr("/nope"); !errors.Is(err, pkg.ErrNotExist) {
		t.Errorf("FileAttr(missing) error = %v", err)
	}

	if err := h.CopyFile("/a.tns", "/b.tns"); err != nil {
		t.Fatalf("CopyFile() error = %v", err)
	}
	if err := h.MoveFile("/b.tns", "/c.tns"); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}
	if err := h.DeleteFile("/c.tns"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if calc.Exists("/b.tns") || calc.Exists("/c.tns") {
		t.Error("files left behind")
	}

	var e *pkg.Error
	err = h.DeleteFile("/c.tns")
	if !errors.As(err, &e) || e.Op != "delete_file" || e.Path != "/c.tns" || e.Kind != pkg.KindNotExist {
		t.Errorf("DeleteFile(missing) error = %#v", err)
	}
}

func TestTransfers(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithChunkSize(3))
	data := []byte("0123456789")

	var reports []uint64
	record := func(n uint64) { reports = append(reports, n) }

	if err := h.WriteFile("/f.bin", data, record); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := joinCounts(reports); got != "3,6,9,10" {
		t.Errorf("write progress = %s", got)
	}

	reports = nil
	buf := make([]byte, 32)
	n, err := h.ReadFile("/f.bin", buf, record)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if n != len(data) || !bytes.Equal(buf[:n], data) {
		t.Errorf("ReadFile() = %d %q", n, buf[:n])
	}
	if got := joinCounts(reports); got != "3,6,9,10" {
		t.Errorf("read progress = %s", got)
	}

	short := make([]byte, 4)
	n, err = h.ReadFile("/f.bin", short, nil)
	if err != nil || n != 4 || string(short) != "0123" {
		t.Errorf("truncated ReadFile() = %d %q %v", n, short, err)
	}

	reports = nil
	if err := h.SendOS(data, record); err != nil {
		t.Fatalf("SendOS() error = %v", err)
	}
	if !bytes.Equal(calc.OS(), data) || len(reports) != 4 {
		t.Errorf("SendOS() installed %q with %d reports", calc.OS(), len(reports))
	}

	calc.Fail(sim.OpFileWrite, engine.USBFail(engine.USBErrTimeout))
	if err := h.WriteFile("/g.bin", data, record); !errors.Is(err, pkg.ErrTimeout) {
		t.Errorf("WriteFile() error = %v, want ErrTimeout", err)
	}
}

func joinCounts(v []uint64) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(s, ",")
}

func TestConcurrentUse(t *testing.T) {
	h, calc, _ := openSim(t, sim.WithFile("/f.bin", make([]byte, 64)), sim.WithChunkSize(1))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				switch i % 3 {
				case 0:
					h.Info()
				case 1:
					h.ReadFile("/f.bin", make([]byte, 64), func(uint64) {})
				default:
					if l, err := h.ListDir("/"); err == nil {
						l.Close()
					}
				}
			}
		}()
	}
	wg.Wait()

	if calc.Overlapped() {
		t.Error("engine calls overlapped")
	}
}

// =============================================================================
// Logging and Metrics
// =============================================================================

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := pkg.NewLogfmtLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	h, err := Open(newMockTransport(PID), WithEngine(sim.New()), WithLogger(logger))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	h.Info()
	h.DeleteFile("/missing")

	out := buf.String()
	for _, want := range []string{"op=info", "op=delete_file", "operation failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}

	h, err := Open(newMockTransport(PID), WithEngine(sim.New()), WithMetrics(m))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	h.WriteFile("/f.bin", []byte("abc"), nil)
	h.DeleteFile("/missing")
	h.Close()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = len(f.GetMetric()) > 0
	}
	for _, name := range []string{
		"nspire_operations_total",
		"nspire_operation_duration_seconds",
		"nspire_transfer_bytes_total",
		"nspire_open_handles",
	} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}
