package partition

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/ostafen/flashpart/pkg/flash"
)

// Linker symbols delimiting the NVS sections, as CPU addresses inside the
// flash mapping window. Each _end symbol is the address of the last sector
// of its section. Override them at link time, e.g.
//
//	go build -ldflags "-X github.com/ostafen/flashpart/pkg/partition.nvsStart=0x402E3000"
var (
	nvsStart  = "0x402E3000"
	nvsEnd    = "0x402EA000"
	nvs2Start = "0x402EB000"
	nvs2End   = "0x402FA000"
)

const (
	LabelNVS  = "nvs"
	LabelNVS2 = "nvs2"
)

// Section is a linker section holding a partition.
type Section struct {
	Label string
	Start uint32 // CPU address of the first sector
	End   uint32 // CPU address of the last sector
}

// Descriptor converts the section into the NVS data partition it holds.
func (s Section) Descriptor() (Descriptor, error) {
	if s.Start < flash.MappedStart || s.End < s.Start {
		return Descriptor{}, fmt.Errorf("%w: section %q [0x%x, 0x%x] is outside the flash window", ErrInvalidArg, s.Label, s.Start, s.End)
	}
	return Descriptor{
		Type:    TypeData,
		Subtype: SubtypeDataNVS,
		Address: s.Start - flash.MappedStart,
		Size:    s.End - s.Start + flash.SectorSize,
		Label:   s.Label,
	}, nil
}

func parseSymbol(name, value string) (uint32, error) {
	v, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid linker symbol %s=%q: %w", name, value, err)
	}
	return uint32(v), nil
}

func linkedSection(label, startSym, start, endSym, end string) (Section, error) {
	s, err := parseSymbol(startSym, start)
	if err != nil {
		return Section{}, err
	}
	e, err := parseSymbol(endSym, end)
	if err != nil {
		return Section{}, err
	}
	return Section{Label: label, Start: s, End: e}, nil
}

// LinkedSections returns the sections compiled into this build.
func LinkedSections() ([]Section, error) {
	nvs, err := linkedSection(LabelNVS, "_NVS_start", nvsStart, "_NVS_end", nvsEnd)
	if err != nil {
		return nil, err
	}
	if Partitions == 1 {
		return []Section{nvs}, nil
	}

	nvs2, err := linkedSection(LabelNVS2, "_NVS2_start", nvs2Start, "_NVS2_end", nvs2End)
	if err != nil {
		return nil, err
	}
	return []Section{nvs, nvs2}, nil
}

// FromSections builds a registry out of linker sections.
func FromSections(sections ...Section) (*Registry, error) {
	descs := make([]Descriptor, 0, len(sections))
	for _, s := range sections {
		d, err := s.Descriptor()
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return NewRegistry(nil, descs...)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry described by the linker symbols of this
// build. A layout violating the registry invariants is a build defect and
// panics on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		sections, err := LinkedSections()
		if err != nil {
			panic(err)
		}
		r, err := FromSections(sections...)
		if err != nil {
			panic(fmt.Sprintf("partition: invalid link-time layout: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
