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

// Package nvs exposes flash partitions through the capability a
// key-value storage engine programs against.
package nvs

import (
	"fmt"

	"github.com/ostafen/flashpart/pkg/partition"
)

// EncryptBlockSize is the granularity Read and Write sizes must respect so
// that the storage engine works unchanged on encrypted partitions.
const EncryptBlockSize = 16

// DefaultPartitionName is the label of the partition the storage engine
// uses when none is given.
const DefaultPartitionName = partition.LabelNVS

// Partition is the view of physical storage a storage engine works with.
type Partition interface {
	Name() string
	Address() uint32
	Size() uint32

	// ReadRaw and WriteRaw transfer bytes without alignment checks.
	ReadRaw(offset uint32, dst []byte) error
	WriteRaw(offset uint32, src []byte) error

	// Read and Write require len(buf) to be a multiple of EncryptBlockSize.
	Read(offset uint32, dst []byte) error
	Write(offset uint32, src []byte) error

	EraseRange(offset, size uint32) error
}

// FlashPartition implements Partition over a partition table entry.
// The descriptor must outlive it.
type FlashPartition struct {
	desc *partition.Descriptor
	pio  *partition.IO
}

var _ Partition = (*FlashPartition)(nil)

func NewFlashPartition(pio *partition.IO, desc *partition.Descriptor) *FlashPartition {
	return &FlashPartition{
		desc: desc,
		pio:  pio,
	}
}

// Open wraps the NVS data partition labelled label.
func Open(pio *partition.IO, reg *partition.Registry, label string) (*FlashPartition, error) {
	desc, err := reg.FindFirst(partition.TypeData, partition.SubtypeDataNVS, label)
	if err != nil {
		return nil, fmt.Errorf("nvs partition %q: %w", label, err)
	}
	return NewFlashPartition(pio, desc), nil
}

func (p *FlashPartition) Name() string    { return p.desc.Label }
func (p *FlashPartition) Address() uint32 { return p.desc.Address }
func (p *FlashPartition) Size() uint32    { return p.desc.Size }

// Descriptor returns the wrapped partition table entry.
func (p *FlashPartition) Descriptor() *partition.Descriptor {
	return p.desc
}

func (p *FlashPartition) ReadRaw(offset uint32, dst []byte) error {
	return p.pio.Read(p.desc, offset, dst)
}

func (p *FlashPartition) Read(offset uint32, dst []byte) error {
	if err := checkBlockSize(len(dst)); err != nil {
		return err
	}
	return p.ReadRaw(offset, dst)
}

func (p *FlashPartition) WriteRaw(offset uint32, src []byte) error {
	return p.pio.Write(p.desc, offset, src)
}

func (p *FlashPartition) Write(offset uint32, src []byte) error {
	if err := checkBlockSize(len(src)); err != nil {
		return err
	}
	return p.WriteRaw(offset, src)
}

func (p *FlashPartition) EraseRange(offset, size uint32) error {
	return p.pio.EraseRange(p.desc, offset, size)
}

func checkBlockSize(n int) error {
	if n%EncryptBlockSize != 0 {
		return fmt.Errorf("%w: size %d is not a multiple of %d", partition.ErrInvalidArg, n, EncryptBlockSize)
	}
	return nil
}
