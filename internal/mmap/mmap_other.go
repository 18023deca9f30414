//go:build !unix

package mmap

import (
	"errors"
	"os"
)

type MmapFile struct {
	Data         []byte
	File         *os.File
	FileSize     int
	MappedOffset int
	MappedLength int
}

var errUnsupported = errors.New("memory mapped flash images are only supported on unix systems")

func OpenFile(filePath string, size int, fill byte) (*MmapFile, error) {
	return nil, errUnsupported
}

func OpenFileRegion(filePath string, offset, length int, fill byte) (*MmapFile, error) {
	return nil, errUnsupported
}

func (mr *MmapFile) Sync() error  { return errUnsupported }
func (mr *MmapFile) Close() error { return nil }
