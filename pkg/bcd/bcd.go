// Package bcd converts between integers and the packed decimal fields the
// radio uses for DMR IDs.
package bcd

// Size is the width of every BCD field in the codeplug.
const Size = 4

// MaxValue is the largest value that fits in Size bytes.
const MaxValue = 99999999

// Decode converts a little-endian BCD field to an integer.
// A nibble of 0xF is an unset digit and counts as zero. Any other nibble
// above 9 makes the whole field invalid and Decode returns 0.
func Decode(b []byte) uint32 {
	if len(b) == 0 || allFF(b) {
		return 0
	}

	var result uint32
	for i := len(b) - 1; i >= 0; i-- {
		hi := b[i] >> 4
		lo := b[i] & 0x0F

		if (hi > 9 && hi != 0x0F) || (lo > 9 && lo != 0x0F) {
			return 0
		}
		if hi == 0x0F {
			hi = 0
		}
		if lo == 0x0F {
			lo = 0
		}

		result = result*100 + uint32(hi)*10 + uint32(lo)
	}
	return result
}

// Encode converts v to a 4-byte BCD field. Byte 0 carries the two least
// significant digits. Values above MaxValue keep only their low 8 digits.
func Encode(v uint32) [Size]byte {
	var out [Size]byte
	v %= MaxValue + 1
	for i := 0; i < Size; i++ {
		pair := v % 100
		out[i] = byte(pair/10)<<4 | byte(pair%10)
		v /= 100
	}
	return out
}

// Put writes the BCD encoding of v into dst, which must hold Size bytes.
func Put(dst []byte, v uint32) {
	enc := Encode(v)
	copy(dst[:Size], enc[:])
}

func allFF(b []byte) bool {
	for _, c := range b {
		if c != 0xFF {
			return false
		}
	}
	return true
}
