// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//go:build unix

package mmap

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile represents a writable memory-mapped file region.
type MmapFile struct {
	Data         []byte   // The memory-mapped byte slice
	File         *os.File // The underlying opened file
	FileSize     int      // Total size of the underlying file
	MappedOffset int      // The starting offset of the mapped region within the file
	MappedLength int      // The length of the mapped region
}

// OpenFile maps the first size bytes of filePath for reading and writing.
// The file is created if missing; if it is shorter than size it is extended
// and the new bytes are set to fill.
func OpenFile(filePath string, size int, fill byte) (*MmapFile, error) {
	return OpenFileRegion(filePath, 0, size, fill)
}

// OpenFileRegion maps length bytes of filePath starting at offset for
// reading and writing.
//
// offset: The starting byte offset within the file to map. Must be page-aligned.
// length: The number of bytes to map. The file is grown with fill bytes
// when offset+length extends past its end.
func OpenFileRegion(
	filePath string,
	offset int,
	length int,
	fill byte,
) (*MmapFile, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset cannot be negative: %d", offset)
	}
	if length <= 0 {
		return nil, fmt.Errorf("mapped length must be positive: %d", length)
	}

	pageSize := unix.Getpagesize()
	if offset%pageSize != 0 {
		return nil, fmt.Errorf("offset %d is not page-aligned (page size: %d)", offset, pageSize)
	}

	f, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	fileSize, err := growFile(f, offset+length, fill)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to grow file %q: %w", filePath, err)
	}

	// MAP_SHARED: writes through the mapping are carried to the file.
	data, err := unix.Mmap(
		int(f.Fd()),
		int64(offset),
		length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED,
	)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file %q at offset %d with length %d: %w", filePath, offset, length, err)
	}

	return &MmapFile{
		Data:         data,
		File:         f,
		FileSize:     fileSize,
		MappedOffset: offset,
		MappedLength: length,
	}, nil
}

func growFile(f *os.File, size int, fill byte) (int, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	curr := int(fi.Size())
	if curr >= size {
		return curr, nil
	}

	if _, err := f.WriteAt(bytes.Repeat([]byte{fill}, size-curr), int64(curr)); err != nil {
		return 0, err
	}
	return size, nil
}

// Sync flushes changes made through the mapping to the underlying file.
func (mr *MmapFile) Sync() error {
	if mr.Data == nil {
		return nil
	}
	return unix.Msync(mr.Data, unix.MS_SYNC)
}

// Close unmaps the memory region and closes the underlying file.
func (mr *MmapFile) Close() error {
	var err error
	if mr.Data != nil {
		err = unix.Munmap(mr.Data)
		if err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		mr.Data = nil // Clear the reference to the unmapped memory
	}

	if mr.File != nil {
		closeErr := mr.File.Close()
		if closeErr != nil {
			return fmt.Errorf("failed to close file: %w", closeErr)
		}
		mr.File = nil
	}
	return nil
}
