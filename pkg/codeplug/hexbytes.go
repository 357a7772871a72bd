package codeplug

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is raw data that renders as a hex string in JSON and YAML.
type HexBytes []byte

func (b HexBytes) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(b)))
	hex.Encode(out, b)
	return out, nil
}

func (b *HexBytes) UnmarshalText(text []byte) error {
	s := strings.Join(strings.Fields(string(text)), "")
	data, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex data: %w", err)
	}
	*b = data
	return nil
}
