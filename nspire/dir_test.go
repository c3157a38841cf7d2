package nspire

import (
	"strings"
	"testing"
	"time"

	"github.com/ardnew/nspire/engine"
)

// fakeList implements engine.DirList over a Go slice.
type fakeList struct {
	items []engine.DirItem
	frees int
}

func newFakeList(entries ...DirEntry) *fakeList {
	l := &fakeList{items: make([]engine.DirItem, len(entries))}
	for i, e := range entries {
		l.items[i].SetName(e.Name)
		l.items[i].Size = e.Size
		l.items[i].Date = e.Date
		if e.Type == Directory {
			l.items[i].Type = engine.DirTypeDir
		}
	}
	return l
}

func (l *fakeList) Len() int                   { return len(l.items) }
func (l *fakeList) Item(i int) *engine.DirItem { return &l.items[i] }
func (l *fakeList) Free()                      { l.frees++ }

var testEntries = []DirEntry{
	{Name: "zeta.tns", Size: 10, Date: 100, Type: File},
	{Name: "alpha", Size: 0, Date: 200, Type: Directory},
	{Name: "mid.tns", Size: 30, Date: 300, Type: File},
}

func TestDirList_Order(t *testing.T) {
	raw := newFakeList(testEntries...)
	list := newDirList(raw, "/docs")
	defer list.Close()

	if list.Len() != len(testEntries) {
		t.Fatalf("Len() = %d, want %d", list.Len(), len(testEntries))
	}

	count := 0
	for i, item := range list.All() {
		want := testEntries[i]
		if item.Name() != want.Name || item.Size() != want.Size ||
			item.Date() != want.Date || item.Type() != want.Type {
			t.Errorf("entry %d = {%s %d %d %v}, want %+v",
				i, item.Name(), item.Size(), item.Date(), item.Type(), want)
		}
		if item.IsDir() != want.IsDir() {
			t.Errorf("entry %d IsDir = %v", i, item.IsDir())
		}
		count++
	}
	if count != len(testEntries) {
		t.Errorf("All() yielded %d entries, want %d", count, len(testEntries))
	}
}

func TestDirList_AllBreak(t *testing.T) {
	list := newDirList(newFakeList(testEntries...), "/")
	defer list.Close()

	n := 0
	for range list.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("iterated %d entries after break", n)
	}
}

func TestDirList_View(t *testing.T) {
	raw := newFakeList(testEntries...)
	list := newDirList(raw, "/")
	defer list.Close()

	item := list.At(0)
	raw.items[0].Size = 99
	if item.Size() != 99 {
		t.Errorf("Size() = %d, want view of engine memory", item.Size())
	}
}

func TestDirList_Entries(t *testing.T) {
	raw := newFakeList(testEntries...)
	list := newDirList(raw, "/")
	entries := list.Entries()
	list.Close()

	if len(entries) != len(testEntries) {
		t.Fatalf("Entries() returned %d, want %d", len(entries), len(testEntries))
	}
	for i, e := range entries {
		if e != testEntries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, testEntries[i])
		}
	}
	if got := entries[1].ModTime(); !got.Equal(time.Unix(200, 0)) {
		t.Errorf("ModTime() = %v", got)
	}
}

func TestDirList_CloseOnce(t *testing.T) {
	raw := newFakeList(testEntries...)
	list := newDirList(raw, "/")

	for range 3 {
		if err := list.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if raw.frees != 1 {
		t.Errorf("native list freed %d times, want 1", raw.frees)
	}
}

func TestDirList_UseAfterClose(t *testing.T) {
	list := newDirList(newFakeList(testEntries...), "/docs")
	item := list.At(0)
	list.Close()

	tests := []struct {
		name string
		fn   func()
	}{
		{"Len", func() { list.Len() }},
		{"At", func() { list.At(0) }},
		{"Entries", func() { list.Entries() }},
		{"item Name", func() { item.Name() }},
		{"item Entry", func() { item.Entry() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatal("no panic")
				}
				if msg, _ := r.(string); !strings.Contains(msg, "after Close") {
					t.Errorf("panic = %v", r)
				}
			}()
			tt.fn()
		})
	}
}

func TestDirList_At_OutOfRange(t *testing.T) {
	list := newDirList(newFakeList(testEntries...), "/")
	defer list.Close()
	defer func() {
		if recover() == nil {
			t.Error("At(len) did not panic")
		}
	}()
	list.At(list.Len())
}

func TestDirList_String(t *testing.T) {
	list := newDirList(newFakeList(testEntries[:2]...), "/d")
	got := list.String()
	want := `DirList("/d")[{file "zeta.tns" 10}, {directory "alpha" 0}]`
	if got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
	list.Close()
	if got := list.String(); got != `DirList("/d", closed)` {
		t.Errorf("String() after Close = %s", got)
	}
}

func TestEntryType_Unknown(t *testing.T) {
	if got := entryType(engine.DirType(7)); got != File {
		t.Errorf("entryType(7) = %v, want file", got)
	}
}
