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
package partition

import (
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/ostafen/flashpart/pkg/flash"
)

// MaxPartitions is the capacity of a Registry.
const MaxPartitions = 2

// Registry is the fixed partition table. It is read-only once built and
// safe for concurrent use.
type Registry struct {
	parts  []Descriptor
	logger *slog.Logger
}

// NewRegistry builds a table holding descs in the given order. It fails
// unless there are one or two descriptors with unique labels, sector
// aligned bounds lying inside the flash address space, and no encryption.
func NewRegistry(logger *slog.Logger, descs ...Descriptor) (*Registry, error) {
	if len(descs) == 0 || len(descs) > MaxPartitions {
		return nil, fmt.Errorf("%w: registry holds 1 to %d partitions, got %d", ErrInvalidArg, MaxPartitions, len(descs))
	}

	seen := make(map[string]bool, len(descs))
	for i := range descs {
		d := &descs[i]
		if err := validate(d); err != nil {
			return nil, err
		}
		if seen[d.Label] {
			return nil, fmt.Errorf("%w: duplicate partition label %q", ErrInvalidArg, d.Label)
		}
		seen[d.Label] = true
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	parts := make([]Descriptor, len(descs))
	copy(parts, descs)

	return &Registry{
		parts:  parts,
		logger: logger,
	}, nil
}

func validate(d *Descriptor) error {
	switch {
	case d.Label == "" || len(d.Label) > MaxLabelLen:
		return fmt.Errorf("%w: partition label %q must be 1 to %d bytes", ErrInvalidArg, d.Label, MaxLabelLen)
	case d.Encrypted:
		return fmt.Errorf("%w: partition %q: encryption is not supported", ErrInvalidArg, d.Label)
	case d.Size == 0:
		return fmt.Errorf("%w: partition %q is empty", ErrInvalidSize, d.Label)
	case d.Address%flash.SectorSize != 0:
		return fmt.Errorf("%w: partition %q address 0x%x is not sector aligned", ErrInvalidArg, d.Label, d.Address)
	case d.Size%flash.SectorSize != 0:
		return fmt.Errorf("%w: partition %q size %d is not sector aligned", ErrInvalidSize, d.Label, d.Size)
	case d.End() > flash.AddressSpace:
		return fmt.Errorf("%w: partition %q ends at 0x%x, past the flash address space", ErrSizeTooLarge, d.Label, d.End())
	}
	return nil
}

// WithLogger returns a view of the same table that logs lookups to logger.
// Descriptors are shared, not copied.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	return &Registry{
		parts:  r.parts,
		logger: logger,
	}
}

// Len returns the number of partitions in the table.
func (r *Registry) Len() int {
	return len(r.parts)
}

// At returns the i-th descriptor in table order.
func (r *Registry) At(i int) *Descriptor {
	return &r.parts[i]
}

// accepts only lets NVS flavoured lookups through.
func accepts(t Type, st Subtype) bool {
	return t == TypeData || st == SubtypeDataNVS || st == SubtypeAny
}

func (r *Registry) indexOf(label string) int {
	for i := range r.parts {
		if r.parts[i].Label == label {
			return i
		}
	}
	return -1
}

// FindFirst returns the partition labelled label, or the first partition
// of the table when label is empty.
func (r *Registry) FindFirst(t Type, st Subtype, label string) (*Descriptor, error) {
	r.logger.Debug("find first partition", "type", t, "subtype", st, "label", label)

	if !accepts(t, st) {
		return nil, ErrNotFound
	}
	if label == "" {
		return &r.parts[0], nil
	}
	if i := r.indexOf(label); i >= 0 {
		return &r.parts[i], nil
	}
	return nil, ErrNotFound
}

// Find returns an iterator over the partition labelled label, or over the
// whole table when label is empty. The iterator must be released.
func (r *Registry) Find(t Type, st Subtype, label string) (*Iterator, error) {
	r.logger.Debug("find partitions", "type", t, "subtype", st, "label", label)

	if !accepts(t, st) {
		return nil, ErrNotFound
	}

	if label != "" {
		i := r.indexOf(label)
		if i < 0 {
			return nil, ErrNotFound
		}
		return newIterator(r, i, -1), nil
	}

	next := -1
	if len(r.parts) > 1 {
		next = 1
	}
	return newIterator(r, 0, next), nil
}

// All yields the partitions Find would iterate over.
func (r *Registry) All(t Type, st Subtype, label string) iter.Seq[*Descriptor] {
	return func(yield func(*Descriptor) bool) {
		it, err := r.Find(t, st, label)
		if err != nil {
			return
		}
		defer it.Release()

		for ; err == nil; err = it.Next() {
			d, _ := it.Get()
			if !yield(d) {
				return
			}
		}
	}
}
