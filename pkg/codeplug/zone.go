package codeplug

import (
	"encoding/binary"
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

const (
	zoneCount = 0x00
	zoneName  = 0x04
)

// DecodeZone decodes one 512-byte zone record. The returned slots are
// 0-based channel slots in zone order. A count above ZoneMaxChannels is cut
// to the cap.
func DecodeZone(rec []byte) (*Zone, []int, error) {
	if len(rec) != ZoneSize {
		return nil, nil, fmt.Errorf("invalid zone record size: %d (expected %d)", len(rec), ZoneSize)
	}
	if rec[zoneCount] == empty8 {
		return nil, nil, nil
	}
	name := gbk.Decode(rec[zoneName : zoneName+NameSize])
	if name == "" {
		return nil, nil, nil
	}

	count := claimedChannels(rec)
	if count > ZoneMaxChannels {
		count = ZoneMaxChannels
	}

	slots := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v := binary.LittleEndian.Uint16(rec[zoneHeaderSize+i*2:])
		if v == empty16 {
			continue
		}
		slots = append(slots, int(v))
	}
	return &Zone{Name: name}, slots, nil
}

func claimedChannels(rec []byte) int {
	return int(binary.LittleEndian.Uint16(rec[zoneCount:]))
}

// EncodeZone encodes z with its channels already translated to 0-based
// channel slots.
func EncodeZone(z *Zone, slots []int) []byte {
	rec := make([]byte, ZoneSize)
	fill(rec, empty8)
	if z == nil || z.IsEmpty() {
		return rec
	}
	if len(slots) > ZoneMaxChannels {
		slots = slots[:ZoneMaxChannels]
	}

	binary.LittleEndian.PutUint16(rec[zoneCount:], uint16(len(slots)))
	gbk.Put(rec[zoneName:zoneName+NameSize], z.Name)
	for i, slot := range slots {
		binary.LittleEndian.PutUint16(rec[zoneHeaderSize+i*2:], uint16(slot))
	}
	return rec
}
