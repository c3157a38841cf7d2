package nspire

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/ardnew/nspire/engine"
	"github.com/ardnew/nspire/pkg"
)

// EntryType is the kind of a directory entry.
type EntryType uint8

// Entry types.
const (
	File EntryType = iota
	Directory
)

// String returns "file" or "directory".
func (t EntryType) String() string {
	if t == Directory {
		return "directory"
	}
	return "file"
}

// MarshalText implements encoding.TextMarshaler.
func (t EntryType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func entryType(t engine.DirType) EntryType {
	if t == engine.DirTypeDir {
		return Directory
	}
	return File
}

// DirEntry is an owned, immutable directory entry.
type DirEntry struct {
	Name string    `json:"name"`
	Size uint64    `json:"size"`
	Date uint64    `json:"date"` // Seconds since the Unix epoch
	Type EntryType `json:"type"`
}

// IsDir reports whether the entry is a directory.
func (e DirEntry) IsDir() bool { return e.Type == Directory }

// ModTime returns the modification date as a time.Time.
func (e DirEntry) ModTime() time.Time { return time.Unix(int64(e.Date), 0) }

func newDirEntry(item *engine.DirItem) DirEntry {
	return DirEntry{
		Name: item.NameString(),
		Size: item.Size,
		Date: item.Date,
		Type: entryType(item.Type),
	}
}

// =============================================================================
// Listing View
// =============================================================================

// DirList is a read-only view over a directory listing allocated by the
// engine. Entries are read in place; the listing must be released with
// Close, after which neither the list nor its items may be used.
//
// Use Entries to obtain a copy that outlives the listing.
type DirList struct {
	list   engine.DirList
	path   string
	closed bool
}

func newDirList(list engine.DirList, path string) *DirList {
	return &DirList{list: list, path: path}
}

func (l *DirList) check() {
	if l.closed {
		panic("nspire: directory listing " + l.path + " used after Close")
	}
}

// Path returns the listed directory.
func (l *DirList) Path() string { return l.path }

// Len returns the number of entries.
func (l *DirList) Len() int {
	l.check()
	return l.list.Len()
}

// At returns a view of entry i in device order.
func (l *DirList) At(i int) DirItem {
	l.check()
	if i < 0 || i >= l.list.Len() {
		panic(fmt.Sprintf("nspire: directory entry index %d out of range [0:%d]", i, l.list.Len()))
	}
	return DirItem{list: l, index: i}
}

// All iterates over the entries in device order.
func (l *DirList) All() iter.Seq2[int, DirItem] {
	return func(yield func(int, DirItem) bool) {
		for i := range l.Len() {
			if !yield(i, l.At(i)) {
				return
			}
		}
	}
}

// Entries returns an owned copy of every entry.
func (l *DirList) Entries() []DirEntry {
	out := make([]DirEntry, 0, l.Len())
	for _, item := range l.All() {
		out = append(out, item.Entry())
	}
	return out
}

// Close releases the native listing. Subsequent calls do nothing.
func (l *DirList) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.list.Free()
	l.list = nil
	pkg.LogDebug(pkg.ComponentDir, "listing released", "path", l.path)
	return nil
}

// String formats the listing for debugging.
func (l *DirList) String() string {
	if l.closed {
		return fmt.Sprintf("DirList(%q, closed)", l.path)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "DirList(%q)[", l.path)
	for i, item := range l.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(item.String())
	}
	b.WriteByte(']')
	return b.String()
}

// DirItem is a view of one entry of a DirList. It is valid only while the
// listing is open.
type DirItem struct {
	list  *DirList
	index int
}

func (d DirItem) item() *engine.DirItem {
	d.list.check()
	return d.list.list.Item(d.index)
}

// Name returns the entry name.
func (d DirItem) Name() string { return d.item().NameString() }

// Size returns the entry size in bytes.
func (d DirItem) Size() uint64 { return d.item().Size }

// Date returns the modification date in seconds since the Unix epoch.
func (d DirItem) Date() uint64 { return d.item().Date }

// ModTime returns the modification date as a time.Time.
func (d DirItem) ModTime() time.Time { return time.Unix(int64(d.Date()), 0) }

// Type returns the entry type.
func (d DirItem) Type() EntryType { return entryType(d.item().Type) }

// IsDir reports whether the entry is a directory.
func (d DirItem) IsDir() bool { return d.Type() == Directory }

// Entry returns an owned copy of the entry.
func (d DirItem) Entry() DirEntry { return newDirEntry(d.item()) }

// String formats the entry for debugging.
func (d DirItem) String() string {
	it := d.item()
	return fmt.Sprintf("{%s %q %d}", entryType(it.Type), it.NameString(), it.Size)
}
