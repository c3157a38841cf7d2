package sim

import (
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg"
)

// Op names a simulated engine operation for fault injection and call counting.
type Op string

// Engine operations.
const (
	OpInit       Op = "init"
	OpFree       Op = "free"
	OpDeviceInfo Op = "device_info"
	OpScreenshot Op = "screenshot"
	OpDirList    Op = "dir_list"
	OpDirCreate  Op = "dir_create"
	OpDirDelete  Op = "dir_delete"
	OpAttr       Op = "attr"
	OpFileCopy   Op = "file_copy"
	OpFileMove   Op = "file_move"
	OpFileDelete Op = "file_delete"
	OpFileRead   Op = "file_read"
	OpFileWrite  Op = "file_write"
	OpOSSend     Op = "os_send"
)

// DefaultChunkSize is the number of bytes between progress reports.
const DefaultChunkSize = 4096

// node is one entry of the simulated filesystem.
type node struct {
	name     string
	dir      bool
	data     []byte
	date     uint64
	children map[string]*node
}

func newDir(name string, date uint64) *node {
	return &node{name: name, dir: true, date: date, children: make(map[string]*node)}
}

// Calculator is a simulated TI-Nspire implementing [engine.Engine].
//
// It keeps an in-memory filesystem, a device information record and a
// framebuffer, and records every call so tests can verify how the engine
// was driven. A Calculator is safe for concurrent use.
type Calculator struct {
	mu sync.Mutex

	info  engine.DeviceInfo
	fb    framebuffer
	root  *node
	os    []byte
	chunk int
	clock func() time.Time

	faults      map[Op]engine.Status
	calls       map[Op]int
	nilInstance bool

	live        int  // instances not yet freed
	outstanding int  // lists and images not yet freed
	lastCX2     bool // variant flag of the last Init
	lastHandle  uintptr

	active     atomic.Int32
	overlapped atomic.Bool
}

type framebuffer struct {
	width, height uint16
	bpp           uint8
	data          []byte
}

// New creates a simulated calculator with an empty filesystem, a CX II
// device information record and a 320x240 color framebuffer.
func New(opts ...Option) *Calculator {
	c := &Calculator{
		chunk:  DefaultChunkSize,
		clock:  time.Now,
		faults: make(map[Op]engine.Status),
		calls:  make(map[Op]int),
		info:   DefaultDeviceInfo(),
	}
	c.root = newDir("", c.now())
	c.fb = gradient(c.info.LCD.Width, c.info.LCD.Height, c.info.LCD.BPP)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultDeviceInfo returns the device information reported by default.
func DefaultDeviceInfo() engine.DeviceInfo {
	info := engine.DeviceInfo{
		Storage: engine.Memory{Free: 96 << 20, Total: 100 << 20},
		RAM:     engine.Memory{Free: 40 << 20, Total: 64 << 20},
		Versions: [3]engine.VersionRecord{
			{Major: 6, Minor: 20, Build: 333},
			{Major: 4, Minor: 0, Build: 1},
			{Major: 6, Minor: 20, Build: 123},
		},
		HWType:     engine.HWNonCASCX,
		ClockSpeed: 132,
		LCD:        engine.LCDRecord{Width: 320, Height: 240, BPP: 16, SampleMode: 0},
		RunLevel:   engine.RunLevelOS,
		Battery:    engine.BatteryOK,
		Charging:   0,
	}
	info.SetStrings("tns", "tco2", "Nspire CX II", "1010AB0123456789")
	return info
}

// gradient builds a deterministic framebuffer.
func gradient(width, height uint16, bpp uint8) framebuffer {
	w, h := int(width), int(height)
	data := make([]byte, w*h*int(bpp)/8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			switch bpp {
			case 8:
				data[i] = byte(x + y)
			case 16:
				v := uint16(x%32) | uint16(y%64)<<5 | uint16((x+y)%32)<<11
				data[2*i] = byte(v)
				data[2*i+1] = byte(v >> 8)
			}
		}
	}
	return framebuffer{width: width, height: height, bpp: bpp, data: data}
}

func (c *Calculator) now() uint64 {
	return uint64(c.clock().Unix())
}

// =============================================================================
// Inspection and Fault Injection
// =============================================================================

// Fail makes every subsequent call of op return st without side effects.
func (c *Calculator) Fail(op Op, st engine.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults[op] = st
}

// ClearFaults removes all injected failures.
func (c *Calculator) ClearFaults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.faults)
}

// ReturnNilInstance makes Init succeed without producing an instance.
func (c *Calculator) ReturnNilInstance(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nilInstance = v
}

// Calls returns how many times op has been invoked.
func (c *Calculator) Calls(op Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// TotalCalls returns the number of invocations of every operation.
func (c *Calculator) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

// Live returns the number of instances not yet freed.
func (c *Calculator) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Outstanding returns the number of listings and framebuffers not yet freed.
func (c *Calculator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outstanding
}

// CX2 reports the variant flag passed to the most recent Init.
func (c *Calculator) CX2() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCX2
}

// Transport returns the raw transport handle passed to the most recent Init.
func (c *Calculator) Transport() uintptr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHandle
}

// Overlapped reports whether two engine calls were ever in flight at once.
func (c *Calculator) Overlapped() bool {
	return c.overlapped.Load()
}

// File returns a copy of the file contents at p.
func (c *Calculator) File(p string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.lookup(p)
	if n == nil || n.dir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Exists reports whether an entry exists at p.
func (c *Calculator) Exists(p string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.lookup(p)
	return n != nil
}

// OS returns the most recently installed OS image.
func (c *Calculator) OS() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.os...)
}

// =============================================================================
// Engine
// =============================================================================

// Init implements [engine.Engine].
func (c *Calculator) Init(transport uintptr, cx2 bool) (engine.Instance, engine.Status) {
	if st, ok := c.begin(OpInit); !ok {
		return nil, st
	}
	defer c.end()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCX2 = cx2
	c.lastHandle = transport
	if c.nilInstance {
		return nil, engine.OK
	}
	c.live++
	pkg.LogDebug(pkg.ComponentEngine, "simulated instance created", "cx2", cx2)
	return &instance{c: c}, engine.OK
}

// begin counts a call and reports an injected fault.
func (c *Calculator) begin(op Op) (engine.Status, bool) {
	if c.active.Add(1) > 1 {
		c.overlapped.Store(true)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	if st, ok := c.faults[op]; ok {
		c.active.Add(-1)
		return st, false
	}
	return engine.OK, true
}

func (c *Calculator) end() {
	c.active.Add(-1)
}

// =============================================================================
// Filesystem Helpers
// =============================================================================

// split cleans an absolute path into its components.
func split(p string) ([]string, bool) {
	if !strings.HasPrefix(p, "/") {
		return nil, false
	}
	p = path.Clean(p)
	if p == "/" {
		return nil, true
	}
	return strings.Split(p[1:], "/"), true
}

// lookup resolves p. The second result is the parent directory, which may be
// non-nil even when the entry itself does not exist.
func (c *Calculator) lookup(p string) (n, parent *node) {
	parts, ok := split(p)
	if !ok {
		return nil, nil
	}
	n = c.root
	for _, part := range parts {
		if n == nil || !n.dir {
			return nil, nil
		}
		parent = n
		n = n.children[part]
	}
	return n, parent
}

// create adds a new entry at p, reporting the protocol status.
func (c *Calculator) create(p string, entry *node) engine.Status {
	parts, ok := split(p)
	if !ok || len(parts) == 0 {
		return engine.Fail(engine.CodeInvalid)
	}
	n, parent := c.lookup(p)
	switch {
	case parent == nil || !parent.dir:
		return engine.Fail(engine.CodeNonexistent)
	case n != nil:
		return engine.Fail(engine.CodeExists)
	}
	entry.name = parts[len(parts)-1]
	parent.children[entry.name] = entry
	return engine.OK
}

// remove unlinks the entry at p.
func (c *Calculator) remove(p string) {
	if n, parent := c.lookup(p); n != nil && parent != nil {
		delete(parent.children, n.name)
	}
}

// addFile creates a file and any missing parent directories.
func (c *Calculator) addFile(p string, data []byte, dir bool) {
	parts, ok := split(p)
	if !ok {
		return
	}
	n := c.root
	for i, part := range parts {
		last := i == len(parts)-1
		child := n.children[part]
		if child == nil {
			if last && !dir {
				child = &node{name: part, data: append([]byte(nil), data...), date: c.now()}
			} else {
				child = newDir(part, c.now())
			}
			n.children[part] = child
		}
		n = child
	}
}

func fill(item *engine.DirItem, n *node) {
	*item = engine.DirItem{Size: uint64(len(n.data)), Date: n.date, Type: engine.DirTypeFile}
	item.SetName(n.name)
	if n.dir {
		item.Type = engine.DirTypeDir
		item.Size = 0
	}
}

// sortedChildren returns the children of a directory in name order.
func sortedChildren(n *node) []*node {
	out := make([]*node, 0, len(n.children))
	for _, child := range n.children {
		out = append(out, child)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// progress reports cumulative byte counts to cb in chunk-sized steps.
func progress(total, chunk int, cb engine.Callback, ctx unsafe.Pointer) {
	if cb == nil || chunk <= 0 {
		return
	}
	for done := 0; done < total; {
		done = min(done+chunk, total)
		cb(uint64(done), ctx)
	}
}
