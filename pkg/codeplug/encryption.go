package codeplug

import (
	"fmt"
	"strings"

	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// Encryption key record offsets
const (
	keyInUse     = 0x00
	keyType      = 0x01
	keyAlias     = 0x02
	keyValue     = 0x10
	keyValueSize = EncryptionKeySize - keyValue
)

const hexDigits = "0123456789ABCDEF"

// DecodeEncryptionKey decodes one 48-byte key record. It returns nil for an
// empty slot and an error for a slot with an unknown key type.
func DecodeEncryptionKey(rec []byte) (*EncryptionKey, error) {
	if len(rec) != EncryptionKeySize {
		return nil, fmt.Errorf("invalid key record size: %d (expected %d)", len(rec), EncryptionKeySize)
	}
	if rec[keyInUse] == 0x00 || rec[keyInUse] == empty8 {
		return nil, nil
	}
	if rec[keyType] > byte(EncryptionAES256) {
		return nil, fmt.Errorf("invalid key type 0x%02X", rec[keyType])
	}

	k := &EncryptionKey{
		Alias: gbk.Decode(rec[keyAlias : keyAlias+KeyAliasSize]),
		Type:  EncryptionType(rec[keyType]),
	}
	k.SetValue(unpackHex(rec[keyValue:]))
	if k.IsEmpty() {
		return nil, nil
	}
	return k, nil
}

// EncodeEncryptionKey encodes k for the 0-based slot it will occupy. The
// value is cut to the length its type allows before packing.
func EncodeEncryptionKey(k *EncryptionKey, slot int) []byte {
	rec := make([]byte, EncryptionKeySize)
	fill(rec, empty8)
	if k == nil || k.IsEmpty() {
		return rec
	}

	value := normalizeKeyValue(k.Value)
	if n := k.Type.KeyLength(); len(value) > n {
		value = value[:n]
	}

	rec[keyInUse] = inUseMarker(slot)
	rec[keyType] = byte(k.Type)
	gbk.Put(rec[keyAlias:keyAlias+KeyAliasSize], k.Alias)
	packHex(rec[keyValue:], value)
	return rec
}

func normalizeKeyValue(value string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(value) {
		if strings.ContainsRune(hexDigits, r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// unpackHex reads two hex digits per byte until an erased byte.
func unpackHex(b []byte) string {
	var sb strings.Builder
	for _, v := range b {
		if v == empty8 {
			break
		}
		sb.WriteByte(hexDigits[v>>4])
		sb.WriteByte(hexDigits[v&0x0F])
	}
	return sb.String()
}

// packHex writes a normalized value two digits per byte. An odd trailing
// digit is padded with 0xF.
func packHex(dst []byte, value string) {
	nibbles := make([]byte, 0, len(value)+1)
	for _, r := range value {
		nibbles = append(nibbles, byte(strings.IndexRune(hexDigits, r)))
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0x0F)
	}
	for i := 0; i+1 < len(nibbles) && i/2 < len(dst); i += 2 {
		dst[i/2] = nibbles[i]<<4 | nibbles[i+1]
	}
}
