//go:build linux

package usbfs

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/ardnew/nspire/pkg"
)

// errnoKinds maps usbfs errno values onto error kinds.
var errnoKinds = map[unix.Errno]pkg.Kind{
	unix.EPERM:  pkg.KindAccess,
	unix.EACCES: pkg.KindAccess,
	unix.ENOENT: pkg.KindNoDevice,
	unix.ENODEV: pkg.KindNoDevice,
	unix.ENXIO:  pkg.KindNoDevice,
	unix.EIO:    pkg.KindIO,
	unix.EBUSY:  pkg.KindBusy,
	unix.EAGAIN: pkg.KindBusy,
	unix.ENOMEM: pkg.KindOutOfMemory,
	unix.EINVAL: pkg.KindInvalidInput,
	unix.EBADF:  pkg.KindInvalidInput,
	unix.ETIME:  pkg.KindTimeout,
	unix.EPIPE:  pkg.KindTransport,
	unix.EPROTO: pkg.KindTransport,
}

// errnoKind classifies err, falling back to a transport failure.
func errnoKind(err error) pkg.Kind {
	var errno unix.Errno
	if errors.As(err, &errno) {
		if kind, ok := errnoKinds[errno]; ok {
			return kind
		}
	}
	if errors.Is(err, unix.ENOENT) {
		return pkg.KindNoDevice
	}
	return pkg.KindTransport
}

func pathError(op, path string, err error) error {
	return &pkg.Error{Kind: errnoKind(err), Op: "usbfs " + op, Path: path, Err: err}
}
