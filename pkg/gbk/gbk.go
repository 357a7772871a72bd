// Package gbk reads and writes the fixed-width GBK text fields used for
// names and messages. Unused bytes in a field are filled with 0xFF.
package gbk

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Pad is the filler byte for unused field space.
const Pad = 0xFF

var textDecoder = transform.Chain(
	simplifiedchinese.GBK.NewDecoder(),
	runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError })),
)

// Decode converts a stored field to a string. Pad and NUL bytes are
// dropped, undecodable sequences are skipped and the result is trimmed.
func Decode(field []byte) string {
	raw := make([]byte, 0, len(field))
	for _, b := range field {
		if b != Pad && b != 0x00 {
			raw = append(raw, b)
		}
	}
	if len(raw) == 0 {
		return ""
	}

	out, _, err := transform.Bytes(textDecoder, raw)
	if err != nil {
		return strings.TrimSpace(latin1(raw))
	}
	return strings.TrimSpace(string(out))
}

// Encode converts s to at most size GBK bytes. Characters are never split:
// a double-byte character that does not fit is dropped along with the rest
// of the string. Characters GBK cannot represent are skipped.
func Encode(s string, size int) []byte {
	enc := simplifiedchinese.GBK.NewEncoder()
	out := make([]byte, 0, size)
	for _, r := range s {
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil {
			continue
		}
		if len(out)+len(b) > size {
			break
		}
		out = append(out, b...)
	}
	return out
}

// Put writes s into dst as a padded field spanning all of dst.
func Put(dst []byte, s string) {
	enc := Encode(s, len(dst))
	n := copy(dst, enc)
	for i := n; i < len(dst); i++ {
		dst[i] = Pad
	}
}

// Field returns s encoded and padded to exactly size bytes.
func Field(s string, size int) []byte {
	dst := make([]byte, size)
	Put(dst, s)
	return dst
}

// Truncate returns s cut to the longest prefix that fits in size GBK bytes.
func Truncate(s string, size int) string {
	return Decode(Encode(s, size))
}

// Len returns the number of bytes s occupies once encoded.
func Len(s string) int {
	return len(Encode(s, len(s)*2))
}

func latin1(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
