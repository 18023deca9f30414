//go:build !linux
// +build !linux

package fuse

import (
	"errors"
	"io"
	"log/slog"
)

var ErrUnsupported = errors.New("FUSE mount is only supported on Linux")

// Entry is a read-only file exposed at the root of the mount.
type Entry struct {
	Name string
	R    io.ReaderAt
	Size uint64
}

func Mount(mountpoint string, entries []Entry, logger *slog.Logger) error {
	return ErrUnsupported
}
