package engine

import (
	"errors"
	"testing"

	"github.com/ardnew/nspire/pkg"
)

func TestNewCString(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		index   int
	}{
		{"", false, 0},
		{"/", false, 0},
		{"/documents/test.tns", false, 0},
		{"ünïcødé", false, 0},
		{"\x00", true, 0},
		{"abc\x00def", true, 3},
		{"abc\x00", true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cs, err := NewCString(tt.in)
			if tt.wantErr {
				var nul *pkg.NulError
				if !errors.As(err, &nul) {
					t.Fatalf("NewCString(%q) error = %v, want *pkg.NulError", tt.in, err)
				}
				if nul.Index != tt.index {
					t.Errorf("NulError.Index = %d, want %d", nul.Index, tt.index)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCString(%q) error = %v", tt.in, err)
			}
			if len(cs) != len(tt.in)+1 || cs[len(cs)-1] != 0 {
				t.Errorf("NewCString(%q) = %v, want NUL-terminated copy", tt.in, []byte(cs))
			}
			if got := cs.String(); got != tt.in {
				t.Errorf("String() = %q, want %q", got, tt.in)
			}
			if cs.Ptr() == nil {
				t.Error("Ptr() = nil")
			}
		})
	}
}

func TestGoString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{nil, ""},
		{[]byte{0, 'a'}, ""},
		{[]byte("tns\x00\x00\x00"), "tns"},
		{[]byte("full"), "full"},
	}

	for _, tt := range tests {
		if got := GoString(tt.in); got != tt.want {
			t.Errorf("GoString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDirItem_SetName(t *testing.T) {
	var item DirItem
	item.SetName("hello.tns")
	if got := item.NameString(); got != "hello.tns" {
		t.Errorf("NameString() = %q, want %q", got, "hello.tns")
	}

	long := make([]byte, NameMax+10)
	for i := range long {
		long[i] = 'x'
	}
	item.SetName(string(long))
	if got := len(item.NameString()); got != NameMax-1 {
		t.Errorf("truncated name length = %d, want %d", got, NameMax-1)
	}
	if item.Name[NameMax-1] != 0 {
		t.Error("name field not terminated")
	}
}

func TestFromReturn(t *testing.T) {
	tests := []struct {
		ret  int
		want Status
	}{
		{0, OK},
		{-int(CodeTimeout), Fail(CodeTimeout)},
		{-int(CodeNonexistent), Fail(CodeNonexistent)},
		{int(USBErrNotSupported), USBFail(USBErrNotSupported)},
		{int(USBErrOther), USBFail(USBErrOther)},
		{7, USBFail(7)},
	}

	for _, tt := range tests {
		if got := FromReturn(tt.ret); got != tt.want {
			t.Errorf("FromReturn(%d) = %v, want %v", tt.ret, got, tt.want)
		}
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{OK, "success"},
		{Fail(CodeNACK), "nack"},
		{USBFail(USBErrPipe), "transport/LIBUSB_ERROR_PIPE"},
		{Status{Code: CodeSuccess, USB: USBErrIO}, "success/LIBUSB_ERROR_IO"},
		{Status{Code: 42}, "code(42)"},
		{USBFail(-77), "transport/LIBUSB_ERROR(-77)"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestImage_Free(t *testing.T) {
	freed := 0
	img := NewImage(2, 2, 16, make([]byte, 8), func() { freed++ })
	if img.Len() != 8 {
		t.Errorf("Len() = %d, want 8", img.Len())
	}
	img.Free()
	img.Free()
	if freed != 1 {
		t.Errorf("free called %d times, want 1", freed)
	}
	if img.Data != nil {
		t.Error("Data not cleared after Free")
	}
}
