// Package fm decodes the broadcast FM receiver block of a codeplug: a short
// header followed by sixteen named preset pages of sixteen frequencies.
package fm

import (
	"encoding/binary"

	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// Block layout
const (
	BlockSize    = 1024
	HeaderSize   = 5
	PresetSize   = 48
	PresetCount  = 16
	NameSize     = 16
	FreqsPerPage = 16

	// Frequencies are stored in tenths of a MHz.
	MinFreq = 760
	MaxFreq = 1080

	maxSelection = 15
)

// Receiver modes
const (
	ModeFrequency = 0
	ModeChannel   = 1
)

// Scan modes
const (
	ScanCarrierStop = 0
	ScanAll         = 1
)

// Preset is one named page of frequencies. A zero frequency is an unused
// entry.
type Preset struct {
	Index       int                  `json:"index" yaml:"index"`
	Name        string               `json:"name" yaml:"name"`
	Frequencies [FreqsPerPage]uint16 `json:"frequencies" yaml:"frequencies"`
}

// IsEmpty reports whether the preset has no name and no frequencies.
func (p *Preset) IsEmpty() bool {
	if p.Name != "" {
		return false
	}
	for _, f := range p.Frequencies {
		if f != 0 {
			return false
		}
	}
	return true
}

// Settings is the decoded FM block.
type Settings struct {
	Mode            uint8                `json:"mode" yaml:"mode"`
	Standby         uint8                `json:"standby" yaml:"standby"`
	SelectedArea    uint8                `json:"selected_area" yaml:"selected_area"`
	SelectedChannel uint8                `json:"selected_channel" yaml:"selected_channel"`
	ScanMode        uint8                `json:"scan_mode" yaml:"scan_mode"`
	Presets         [PresetCount]*Preset `json:"presets" yaml:"presets"`
}

// NewSettings returns settings with sixteen empty presets.
func NewSettings() *Settings {
	s := &Settings{}
	for i := range s.Presets {
		s.Presets[i] = &Preset{Index: i}
	}
	return s
}

// Parse decodes an FM block. Short input is treated as if padded with 0xFF.
func Parse(data []byte) *Settings {
	block := make([]byte, BlockSize)
	for i := range block {
		block[i] = 0xFF
	}
	copy(block, data)

	s := NewSettings()
	s.Mode = headerByte(block[0])
	s.Standby = headerByte(block[1])
	s.SelectedArea = clampSelection(headerByte(block[2]))
	s.SelectedChannel = clampSelection(headerByte(block[3]))
	s.ScanMode = headerByte(block[4])

	for i := 0; i < PresetCount; i++ {
		off := HeaderSize + i*PresetSize
		s.Presets[i] = parsePreset(block[off:off+PresetSize], i)
	}
	return s
}

func parsePreset(rec []byte, index int) *Preset {
	p := &Preset{Index: index, Name: decodeName(rec[:NameSize])}
	for i := 0; i < FreqsPerPage; i++ {
		off := NameSize + i*2
		p.Frequencies[i] = decodeFreq(binary.LittleEndian.Uint16(rec[off : off+2]))
	}
	return p
}

// Serialize encodes s into a BlockSize block. Unused bytes are 0xFF.
func Serialize(s *Settings) []byte {
	block := make([]byte, BlockSize)
	for i := range block {
		block[i] = 0xFF
	}
	if s == nil {
		return block
	}

	block[0] = s.Mode
	block[1] = s.Standby
	block[2] = clampSelection(s.SelectedArea)
	block[3] = clampSelection(s.SelectedChannel)
	block[4] = s.ScanMode

	for i, p := range s.Presets {
		if p == nil {
			continue
		}
		off := HeaderSize + i*PresetSize
		rec := block[off : off+PresetSize]
		gbk.Put(rec[:NameSize], p.Name)
		for j, f := range p.Frequencies {
			binary.LittleEndian.PutUint16(rec[NameSize+j*2:], encodeFreq(f))
		}
	}
	return block
}

// MHz converts a stored frequency to megahertz.
func MHz(f uint16) float64 {
	return float64(f) / 10
}

// FromMHz converts megahertz to the stored representation, returning 0 when
// the frequency is outside the broadcast band.
func FromMHz(mhz float64) uint16 {
	f := uint16(mhz*10 + 0.5)
	if f < MinFreq || f > MaxFreq {
		return 0
	}
	return f
}

func decodeName(field []byte) string {
	// Names end at the first pad byte.
	for i, b := range field {
		if b == 0xFF {
			field = field[:i]
			break
		}
	}
	return gbk.Decode(field)
}

func decodeFreq(v uint16) uint16 {
	if v == 0xFFFF || v < MinFreq || v > MaxFreq {
		return 0
	}
	return v
}

func encodeFreq(f uint16) uint16 {
	if f < MinFreq || f > MaxFreq {
		return 0xFFFF
	}
	return f
}

func headerByte(b byte) uint8 {
	if b == 0xFF {
		return 0
	}
	return b
}

func clampSelection(v uint8) uint8 {
	if v > maxSelection {
		return maxSelection
	}
	return v
}
