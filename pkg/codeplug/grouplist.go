package codeplug

import (
	"encoding/binary"
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

const (
	groupListEnabled = 0x01
	groupListName    = 0x02
)

// DecodeGroupList decodes one group list record of the given layout. The
// returned indices are the 1-based contact indices in list order.
func DecodeGroupList(rec []byte, layout Layout) (*GroupList, []int, error) {
	if len(rec) != layout.GroupListSize() {
		return nil, nil, fmt.Errorf("invalid %s group list record size: %d (expected %d)",
			layout, len(rec), layout.GroupListSize())
	}

	name := gbk.Decode(rec[groupListName : groupListName+GroupListNameSize])
	if name == "" {
		return nil, nil, nil
	}

	var indices []int
	for off := groupListHeaderSize; off+2 <= len(rec); off += 2 {
		v := binary.LittleEndian.Uint16(rec[off:])
		if v == empty16 {
			break
		}
		if v == 0 {
			continue
		}
		indices = append(indices, int(v))
	}
	return &GroupList{Name: name}, indices, nil
}

// EncodeGroupList encodes g with its members already translated to 1-based
// contact indices. Members beyond the layout's capacity are dropped.
func EncodeGroupList(g *GroupList, layout Layout, indices []int) []byte {
	rec := make([]byte, layout.GroupListSize())
	fill(rec, empty8)
	if g == nil || g.IsEmpty() {
		return rec
	}

	rec[0] = 0x00
	rec[1] = groupListEnabled
	gbk.Put(rec[groupListName:groupListName+GroupListNameSize], g.Name)

	if len(indices) > layout.GroupListCapacity() {
		indices = indices[:layout.GroupListCapacity()]
	}
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(rec[groupListHeaderSize+i*2:], uint16(idx))
	}
	return rec
}
