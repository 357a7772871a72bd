// Package tones encodes analog sub-audio settings (CTCSS and DCS) into the
// 16-bit values stored in channel records.
//
// Bits 12-15 select the tone kind and bits 0-11 carry its value:
//
//	0x0  none
//	0x1  CTCSS, frequency in tenths of a Hz
//	0x2  DCS normal polarity, index into DCSCodes
//	0x3  DCS inverted polarity, index into DCSCodes
package tones

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// None is the display label for a disabled tone.
const None = "None"

const (
	kindNone     = 0x0
	kindCTCSS    = 0x1
	kindDCSN     = 0x2
	kindDCSI     = 0x3
	valueMask    = 0x0FFF
	dcsTableSize = 512
)

// CTCSSTones lists the standard CTCSS frequencies offered for selection.
var CTCSSTones = []string{
	"67.0", "69.3", "71.9", "74.4", "77.0", "79.7", "82.5", "85.4", "88.5", "91.5",
	"94.8", "97.4", "100.0", "103.5", "107.2", "110.9", "114.8", "118.8", "123.0", "127.3",
	"131.8", "136.5", "141.3", "146.2", "151.4", "156.7", "159.8", "162.2", "165.5", "167.9",
	"171.3", "173.8", "177.3", "179.9", "183.5", "186.2", "189.9", "192.8", "196.6", "199.5",
	"203.5", "206.5", "210.7", "218.1", "225.7", "229.1", "233.6", "241.8", "250.3", "254.1",
}

// StandardDCSCodes lists the DCS codes radios commonly offer.
var StandardDCSCodes = []string{
	"023", "025", "026", "031", "032", "036", "043", "047", "051", "053",
	"054", "065", "071", "072", "073", "074", "114", "115", "116", "122",
	"125", "131", "132", "134", "143", "145", "152", "155", "156", "162",
	"165", "172", "174", "205", "212", "223", "225", "226", "243", "244",
	"245", "246", "251", "252", "255", "261", "263", "265", "266", "271",
	"274", "306", "311", "315", "325", "331", "332", "343", "346", "351",
	"356", "364", "365", "371", "411", "412", "413", "423", "431", "432",
	"445", "446", "452", "454", "455", "462", "464", "465", "466", "503",
	"506", "516", "523", "526", "532", "546", "565", "606", "612", "624",
	"627", "631", "632", "645", "654", "662", "664", "703", "712", "723",
	"731", "732", "734", "743", "754",
}

// DCSCodes is the on-disk DCS table. The stored index of a code is its
// position in this table.
var DCSCodes = buildDCSTable()

var dcsIndex = func() map[string]uint16 {
	m := make(map[string]uint16, len(DCSCodes))
	for i, code := range DCSCodes {
		m[code] = uint16(i)
	}
	return m
}()

func buildDCSTable() []string {
	table := make([]string, dcsTableSize)
	for i := range table {
		table[i] = fmt.Sprintf("%03o", i)
	}
	return table
}

// Encode converts a tone label ("67.0", "D023N", "D023I") to its stored
// value. An empty label, "None" or anything malformed encodes as 0.
func Encode(tone string) uint16 {
	tone = strings.TrimSpace(tone)
	if tone == "" || tone == None {
		return 0
	}

	if tone[0] == 'D' {
		if len(tone) != 5 {
			return 0
		}
		idx, ok := dcsIndex[tone[1:4]]
		if !ok {
			return 0
		}
		switch tone[4] {
		case 'N':
			return kindDCSN<<12 | idx&valueMask
		case 'I':
			return kindDCSI<<12 | idx&valueMask
		default:
			return 0
		}
	}

	freq, err := strconv.ParseFloat(tone, 64)
	if err != nil || freq <= 0 {
		return 0
	}
	tenths := uint16(math.Round(freq*10)) & valueMask
	return kindCTCSS<<12 | tenths
}

// Decode converts a stored value back to its tone label. Values that do
// not describe a known tone decode as "".
func Decode(v uint16) string {
	value := v & valueMask
	switch v >> 12 {
	case kindNone:
		return ""
	case kindCTCSS:
		return strconv.FormatFloat(float64(value)/10, 'f', 1, 64)
	case kindDCSN:
		if int(value) < len(DCSCodes) {
			return "D" + DCSCodes[value] + "N"
		}
	case kindDCSI:
		if int(value) < len(DCSCodes) {
			return "D" + DCSCodes[value] + "I"
		}
	}
	return ""
}

// Options returns every selectable tone label: None, the CTCSS tones, then
// the standard DCS codes in normal and inverted polarity.
func Options() []string {
	opts := make([]string, 0, 1+len(CTCSSTones)+2*len(StandardDCSCodes))
	opts = append(opts, None)
	opts = append(opts, CTCSSTones...)
	for _, code := range StandardDCSCodes {
		opts = append(opts, "D"+code+"N")
	}
	for _, code := range StandardDCSCodes {
		opts = append(opts, "D"+code+"I")
	}
	return opts
}
