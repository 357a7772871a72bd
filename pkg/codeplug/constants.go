package codeplug

// Image regions of a .4rdmf file.
const (
	ImageSize = 0x43400

	CFGOffset = 0x00000
	CFGSize   = 0x1000

	ChannelOffset = 0x01000
	ChannelSize   = 48
	ChannelCount  = 1024

	ContactOffset = 0x0D000
	ContactSize   = 32
	ContactCount  = 2048

	GroupListOffset     = 0x1D000
	GroupListRegionSize = 0x3000

	EncryptionKeyOffset = 0x20000
	EncryptionKeySize   = 48
	EncryptionKeyCount  = 256

	ZoneOffset = 0x23000
	ZoneSize   = 512
	ZoneCount  = 256

	FMOffset = 0x43000
	FMSize   = 0x400
)

// Record geometry shared by both layouts.
const (
	NameSize            = 16
	GroupListNameSize   = 14
	KeyAliasSize        = 14
	ZoneMaxChannels     = 200
	groupListHeaderSize = 0x10
	zoneHeaderSize      = 0x14
)

// Beta41Magic marks a settings block written for the beta41+ firmware.
// It occupies the last four bytes of the CFG block.
const Beta41Magic = "DTCN"

// Beta41MagicOffset is the position of Beta41Magic inside the CFG block.
const Beta41MagicOffset = CFGSize - len(Beta41Magic)

// Frequencies are stored in units of 10 Hz.
const FreqUnitsPerMHz = 100000

const (
	empty8  = 0xFF
	empty16 = 0xFFFF
	empty32 = 0xFFFFFFFF
)

// Layout selects the channel and group list record format.
type Layout int

const (
	LayoutLegacy Layout = iota
	LayoutBeta41
)

// LayoutFor returns the layout used by a codeplug with the given beta41 flag.
func LayoutFor(beta41 bool) Layout {
	if beta41 {
		return LayoutBeta41
	}
	return LayoutLegacy
}

func (l Layout) String() string {
	if l == LayoutBeta41 {
		return "beta41"
	}
	return "legacy"
}

// GroupListSize is the size of one group list record.
func (l Layout) GroupListSize() int {
	if l == LayoutBeta41 {
		return 80
	}
	return 272
}

// GroupListCount is the number of group list slots in the region.
func (l Layout) GroupListCount() int {
	if l == LayoutBeta41 {
		return 150
	}
	return 32
}

// MaxKeyReference is the highest key slot a channel record can point at.
// Beta41 stores slot+1 in one byte with 0xFF meaning none.
func (l Layout) MaxKeyReference() int {
	if l == LayoutBeta41 {
		return empty8 - 2
	}
	return EncryptionKeyCount - 1
}

// GroupListCapacity is the number of contacts one group list can hold.
func (l Layout) GroupListCapacity() int {
	return (l.GroupListSize() - groupListHeaderSize) / 2
}

// MHzToFreq converts megahertz to the stored frequency representation.
func MHzToFreq(mhz float64) uint32 {
	if mhz <= 0 {
		return 0
	}
	return uint32(mhz*FreqUnitsPerMHz + 0.5)
}

// FreqToMHz converts a stored frequency to megahertz.
func FreqToMHz(f uint32) float64 {
	return float64(f) / FreqUnitsPerMHz
}
