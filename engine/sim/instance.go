package sim

import (
	"unsafe"

	"github.com/ardnew/nspire/engine"
)

// instance implements [engine.Instance] over a Calculator.
type instance struct {
	c     *Calculator
	freed bool
}

func (i *instance) check() {
	if i.freed {
		panic("sim: engine instance used after Free")
	}
}

// Free implements [engine.Instance]. Freeing twice panics.
func (i *instance) Free() {
	i.check()
	i.c.mu.Lock()
	i.c.calls[OpFree]++
	i.c.live--
	i.c.mu.Unlock()
	i.freed = true
}

func (i *instance) DeviceInfo(info *engine.DeviceInfo) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpDeviceInfo); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	*info = i.c.info
	return engine.OK
}

func (i *instance) Screenshot() (*engine.Image, engine.Status) {
	i.check()
	if st, ok := i.c.begin(OpScreenshot); !ok {
		return nil, st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	fb := i.c.fb
	data := append([]byte(nil), fb.data...)
	i.c.outstanding++
	return engine.NewImage(fb.width, fb.height, fb.bpp, data, i.c.release), engine.OK
}

// release accounts for a freed listing or framebuffer.
func (c *Calculator) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outstanding--
}

// dirList implements [engine.DirList].
type dirList struct {
	items []engine.DirItem
	c     *Calculator
}

func (l *dirList) Len() int { return len(l.items) }

func (l *dirList) Item(i int) *engine.DirItem {
	if l.items == nil {
		panic("sim: directory list used after Free")
	}
	return &l.items[i]
}

// Free implements [engine.DirList]. Freeing twice panics.
func (l *dirList) Free() {
	if l.items == nil {
		panic("sim: directory list freed twice")
	}
	// Poison released memory so stale views are detectable.
	for j := range l.items {
		l.items[j] = engine.DirItem{}
	}
	l.items = nil
	l.c.release()
}

func (i *instance) DirList(p engine.CString) (engine.DirList, engine.Status) {
	i.check()
	if st, ok := i.c.begin(OpDirList); !ok {
		return nil, st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, _ := i.c.lookup(p.String())
	switch {
	case n == nil:
		return nil, engine.Fail(engine.CodeNonexistent)
	case !n.dir:
		return nil, engine.Fail(engine.CodeInvalid)
	}
	children := sortedChildren(n)
	items := make([]engine.DirItem, len(children))
	for j, child := range children {
		fill(&items[j], child)
	}
	i.c.outstanding++
	return &dirList{items: items, c: i.c}, engine.OK
}

func (i *instance) DirCreate(p engine.CString) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpDirCreate); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	return i.c.create(p.String(), newDir("", i.c.now()))
}

func (i *instance) DirDelete(p engine.CString) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpDirDelete); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, parent := i.c.lookup(p.String())
	switch {
	case n == nil:
		return engine.Fail(engine.CodeNonexistent)
	case !n.dir || parent == nil || len(n.children) > 0:
		return engine.Fail(engine.CodeInvalid)
	}
	i.c.remove(p.String())
	return engine.OK
}

func (i *instance) Attr(p engine.CString, item *engine.DirItem) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpAttr); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, _ := i.c.lookup(p.String())
	if n == nil {
		return engine.Fail(engine.CodeNonexistent)
	}
	fill(item, n)
	return engine.OK
}

func (i *instance) FileCopy(src, dst engine.CString) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpFileCopy); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, _ := i.c.lookup(src.String())
	switch {
	case n == nil:
		return engine.Fail(engine.CodeNonexistent)
	case n.dir:
		return engine.Fail(engine.CodeInvalid)
	}
	dup := &node{data: append([]byte(nil), n.data...), date: i.c.now()}
	return i.c.create(dst.String(), dup)
}

func (i *instance) FileMove(src, dst engine.CString) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpFileMove); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, parent := i.c.lookup(src.String())
	switch {
	case n == nil:
		return engine.Fail(engine.CodeNonexistent)
	case parent == nil:
		return engine.Fail(engine.CodeInvalid)
	}
	moved := *n
	if st := i.c.create(dst.String(), &moved); st != engine.OK {
		return st
	}
	delete(parent.children, n.name)
	return engine.OK
}

func (i *instance) FileDelete(p engine.CString) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpFileDelete); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	n, _ := i.c.lookup(p.String())
	switch {
	case n == nil:
		return engine.Fail(engine.CodeNonexistent)
	case n.dir:
		return engine.Fail(engine.CodeInvalid)
	}
	i.c.remove(p.String())
	return engine.OK
}

// FileRead implements [engine.Instance]. Progress reports the cumulative
// number of bytes read.
func (i *instance) FileRead(p engine.CString, buf []byte, n *uint64, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpFileRead); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	f, _ := i.c.lookup(p.String())
	switch {
	case f == nil:
		i.c.mu.Unlock()
		return engine.Fail(engine.CodeNonexistent)
	case f.dir:
		i.c.mu.Unlock()
		return engine.Fail(engine.CodeInvalid)
	}
	read := copy(buf, f.data)
	chunk := i.c.chunk
	i.c.mu.Unlock()

	progress(read, chunk, cb, ctx)
	*n = uint64(read)
	return engine.OK
}

// FileWrite implements [engine.Instance]. Progress reports the cumulative
// number of bytes written.
func (i *instance) FileWrite(p engine.CString, buf []byte, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpFileWrite); !ok {
		return st
	}
	defer i.c.end()

	i.c.mu.Lock()
	f, parent := i.c.lookup(p.String())
	switch {
	case parent == nil:
		i.c.mu.Unlock()
		return engine.Fail(engine.CodeNonexistent)
	case f != nil && f.dir:
		i.c.mu.Unlock()
		return engine.Fail(engine.CodeInvalid)
	}
	chunk := i.c.chunk
	i.c.mu.Unlock()

	progress(len(buf), chunk, cb, ctx)

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	i.c.remove(p.String())
	return i.c.create(p.String(), &node{data: append([]byte(nil), buf...), date: i.c.now()})
}

// OSSend implements [engine.Instance]. Progress reports the cumulative
// number of bytes sent.
func (i *instance) OSSend(buf []byte, cb engine.Callback, ctx unsafe.Pointer) engine.Status {
	i.check()
	if st, ok := i.c.begin(OpOSSend); !ok {
		return st
	}
	defer i.c.end()

	if len(buf) == 0 {
		return engine.Fail(engine.CodeInvalid)
	}

	i.c.mu.Lock()
	chunk := i.c.chunk
	i.c.mu.Unlock()

	progress(len(buf), chunk, cb, ctx)

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	i.c.os = append([]byte(nil), buf...)
	return engine.OK
}
