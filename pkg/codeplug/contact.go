package codeplug

import (
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/bcd"
	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// Contact record offsets
const (
	contactInUse = 0x00
	contactType  = 0x01
	contactDMRID = 0x02
	contactName  = 0x10
)

// DecodeContact decodes one 32-byte contact record. It returns nil for an
// empty slot. Index and ID are left for the caller to assign.
func DecodeContact(rec []byte) (*Contact, error) {
	if len(rec) != ContactSize {
		return nil, fmt.Errorf("invalid contact record size: %d (expected %d)", len(rec), ContactSize)
	}
	if rec[contactInUse] == 0x00 || rec[contactInUse] == empty8 {
		return nil, nil
	}
	if rec[contactType] > byte(ContactAllCall) {
		return nil, fmt.Errorf("invalid contact type 0x%02X", rec[contactType])
	}

	c := &Contact{
		Name:  gbk.Decode(rec[contactName : contactName+NameSize]),
		Type:  ContactType(rec[contactType]),
		DMRID: bcd.Decode(rec[contactDMRID : contactDMRID+bcd.Size]),
	}
	c.Normalize()
	if c.IsEmpty() {
		return nil, nil
	}
	return c, nil
}

// EncodeContact encodes c for the 1-based index it will occupy.
func EncodeContact(c *Contact, index int) []byte {
	rec := make([]byte, ContactSize)
	fill(rec, empty8)
	if c == nil || c.IsEmpty() {
		return rec
	}

	id := c.DMRID
	if c.Type == ContactAllCall {
		id = AllCallID
	}
	if id > MaxDMRID {
		id = MaxDMRID
	}

	rec[contactInUse] = inUseMarker(index - 1)
	rec[contactType] = byte(c.Type)
	bcd.Put(rec[contactDMRID:], id)
	gbk.Put(rec[contactName:contactName+NameSize], c.Name)
	return rec
}

// inUseMarker returns the slot marker for a 0-based slot. The marker only
// has to avoid the empty values 0x00 and 0xFF.
func inUseMarker(slot int) byte {
	if slot < 0 {
		slot = 0
	}
	return byte(slot%0xFE) + 1
}
