package partition

import (
	"fmt"

	"github.com/ostafen/flashpart/pkg/util/format"
)

type (
	Type    uint8
	Subtype uint8
)

const (
	TypeApp  Type = 0x00
	TypeData Type = 0x01
)

const (
	SubtypeAppFactory   Subtype = 0x00
	SubtypeDataOTA      Subtype = 0x00
	SubtypeDataPhy      Subtype = 0x01
	SubtypeDataNVS      Subtype = 0x02
	SubtypeDataCoredump Subtype = 0x03
	SubtypeDataNVSKeys  Subtype = 0x04
	SubtypeDataEFuse    Subtype = 0x05
	SubtypeAny          Subtype = 0xff
)

// MaxLabelLen is the longest label a descriptor can carry.
const MaxLabelLen = 16

func (t Type) String() string {
	switch t {
	case TypeApp:
		return "app"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// String names data subtypes, which are the only ones this layer serves.
func (s Subtype) String() string {
	switch s {
	case SubtypeDataOTA:
		return "ota"
	case SubtypeDataPhy:
		return "phy"
	case SubtypeDataNVS:
		return "nvs"
	case SubtypeDataCoredump:
		return "coredump"
	case SubtypeDataNVSKeys:
		return "nvs_keys"
	case SubtypeDataEFuse:
		return "efuse"
	case SubtypeAny:
		return "any"
	default:
		return fmt.Sprintf("0x%02x", uint8(s))
	}
}

// Descriptor describes one partition. Descriptors are never modified once
// a Registry holds them.
type Descriptor struct {
	Type      Type
	Subtype   Subtype
	Address   uint32 // absolute offset from the start of flash
	Size      uint32 // length in bytes
	Label     string
	Encrypted bool
}

// End returns the first address past the partition.
func (d *Descriptor) End() uint64 {
	return uint64(d.Address) + uint64(d.Size)
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s (%s/%s) @0x%08x %s",
		d.Label, d.Type, d.Subtype, d.Address, format.FormatBytes(int64(d.Size)))
}
