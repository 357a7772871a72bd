package gbk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldASCII(t *testing.T) {
	field := Field("PT", 16)
	assert.Len(t, field, 16)
	assert.Equal(t, []byte{'P', 'T'}, field[:2])
	for _, b := range field[2:] {
		assert.Equal(t, byte(Pad), b)
	}
	assert.Equal(t, "PT", Decode(field))
}

func TestFieldChinese(t *testing.T) {
	field := Field("中继台", 16)
	assert.Equal(t, "中继台", Decode(field))
	assert.Equal(t, 6, Len("中继台"))
}

func TestEncodeDoesNotSplitCharacters(t *testing.T) {
	enc := Encode("A中文", 4)
	assert.Len(t, enc, 3)
	assert.Equal(t, "A中", Decode(enc))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ABCDEFGHIJKLMN", Truncate("ABCDEFGHIJKLMNOPQRST", 14))
	assert.Equal(t, "short", Truncate("short", 16))
}

func TestDecodeEmpty(t *testing.T) {
	assert.Equal(t, "", Decode([]byte{0xFF, 0xFF, 0xFF}))
	assert.Equal(t, "", Decode([]byte{0x00, 0x00}))
	assert.Equal(t, "", Decode(nil))
}

func TestDecodeTrimsSpaces(t *testing.T) {
	assert.Equal(t, "RPT", Decode([]byte{' ', 'R', 'P', 'T', ' ', 0xFF}))
}
