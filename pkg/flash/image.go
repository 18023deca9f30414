package flash

import (
	"fmt"

	"github.com/ostafen/flashpart/internal/mmap"
)

// Image is a flash chip backed by a memory-mapped file, so that its
// content survives the process.
type Image struct {
	cells
	mf *mmap.MmapFile
}

// OpenImage maps the image file at path, creating it erased when missing.
// A shorter file is extended with erased sectors up to size bytes.
func OpenImage(path string, size uint32) (*Image, error) {
	mf, err := mmap.OpenFile(path, int(roundToSectors(size)), Erased)
	if err != nil {
		return nil, fmt.Errorf("failed to open flash image: %w", err)
	}
	return &Image{
		cells: cells{buf: mf.Data},
		mf:    mf,
	}, nil
}

// Sync flushes the image to disk.
func (im *Image) Sync() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.mf.Sync()
}

func (im *Image) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()

	im.buf = nil
	return im.mf.Close()
}
