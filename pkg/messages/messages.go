// Package messages decodes the DMR short message regions: preset texts,
// drafts, inbox and outbox. Each region is an array of 256-byte entries.
package messages

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// Entry layout
const (
	EntrySize     = 256
	TextOffset    = 56
	TextMaxLength = 200

	typeOffset      = 0
	callTypeOffset  = 1
	contactOffset   = 2
	timestampOffset = 6
	timestampSize   = 6
)

// Type identifies the region an entry belongs to. The stored type byte must
// match the region's type for the entry to be valid.
type Type uint8

const (
	Preset Type = 0
	Draft  Type = 1
	Inbox  Type = 2
	Outbox Type = 3
)

func (t Type) String() string {
	switch t {
	case Preset:
		return "presets"
	case Draft:
		return "drafts"
	case Inbox:
		return "inbox"
	case Outbox:
		return "outbox"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// ParseType converts a region name back to its Type.
func ParseType(name string) (Type, error) {
	for _, r := range Regions {
		if r.Type.String() == name {
			return r.Type, nil
		}
	}
	return 0, fmt.Errorf("unknown message region %q", name)
}

// CallType is the DMR call type a message was sent or received on.
type CallType uint8

const (
	CallPrivate CallType = 0
	CallGroup   CallType = 1
	CallAll     CallType = 2
)

// Region describes where a message type lives in SPI flash.
type Region struct {
	Type     Type
	RegionID byte
	Address  uint32
	Count    int
}

// Size is the number of bytes the region occupies.
func (r Region) Size() int { return r.Count * EntrySize }

// Regions lists every message region in flash order.
var Regions = []Region{
	{Type: Preset, RegionID: 0x97, Address: 0x094000, Count: 16},
	{Type: Draft, RegionID: 0x9A, Address: 0x096000, Count: 256},
	{Type: Inbox, RegionID: 0x9B, Address: 0x0A6000, Count: 256},
	{Type: Outbox, RegionID: 0x9C, Address: 0x0B6000, Count: 256},
}

// RegionFor returns the region holding messages of type t.
func RegionFor(t Type) (Region, bool) {
	for _, r := range Regions {
		if r.Type == t {
			return r, true
		}
	}
	return Region{}, false
}

// MaxCount returns the number of slots available for t.
func MaxCount(t Type) int {
	if r, ok := RegionFor(t); ok {
		return r.Count
	}
	return 16
}

// Message is one stored text message.
type Message struct {
	Index     int        `json:"index" yaml:"index"`
	Type      Type       `json:"type" yaml:"type"`
	CallType  CallType   `json:"call_type" yaml:"call_type"`
	ContactID uint32     `json:"contact_id" yaml:"contact_id"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Text      string     `json:"text" yaml:"text"`
}

// Parse decodes one entry. It returns nil when the stored type byte does
// not match want, which is how unused entries are recognised.
func Parse(entry []byte, want Type, index int) *Message {
	if len(entry) < EntrySize {
		return nil
	}
	if Type(entry[typeOffset]) != want {
		return nil
	}

	m := &Message{Index: index, Type: want, CallType: CallPrivate}
	if ct := entry[callTypeOffset]; ct <= byte(CallAll) {
		m.CallType = CallType(ct)
	}
	if id := binary.LittleEndian.Uint32(entry[contactOffset:]); id != 0xFFFFFFFF {
		m.ContactID = id
	}
	m.Timestamp = decodeTimestamp(entry[timestampOffset : timestampOffset+timestampSize])
	m.Text = gbk.Decode(entry[TextOffset : TextOffset+TextMaxLength])
	return m
}

// Serialize encodes m into one entry. Unused bytes are 0xFF.
func Serialize(m *Message) []byte {
	entry := make([]byte, EntrySize)
	for i := range entry {
		entry[i] = 0xFF
	}
	if m == nil {
		return entry
	}

	entry[typeOffset] = byte(m.Type)
	entry[callTypeOffset] = byte(m.CallType)
	if m.ContactID > 0 {
		binary.LittleEndian.PutUint32(entry[contactOffset:], m.ContactID)
	}
	if m.Timestamp != nil {
		encodeTimestamp(entry[timestampOffset:timestampOffset+timestampSize], *m.Timestamp)
	}
	gbk.Put(entry[TextOffset:TextOffset+TextMaxLength], m.Text)
	return entry
}

// ParseRegion decodes up to count entries of type t from data, skipping
// unused ones.
func ParseRegion(data []byte, t Type, count int) []*Message {
	var out []*Message
	for i := 0; i < count; i++ {
		off := i * EntrySize
		if off+EntrySize > len(data) {
			break
		}
		if m := Parse(data[off:off+EntrySize], t, i); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// SerializeRegion encodes msgs into a region of count entries. Each message
// is written at its Index; out-of-range indices are skipped.
func SerializeRegion(msgs []*Message, count int) []byte {
	data := make([]byte, count*EntrySize)
	for i := range data {
		data[i] = 0xFF
	}
	for _, m := range msgs {
		if m == nil || m.Index < 0 || m.Index >= count {
			continue
		}
		copy(data[m.Index*EntrySize:], Serialize(m))
	}
	return data
}

// Timestamps are stored as YY MM DD hh mm ss. An erased or zeroed field
// means no timestamp. Out-of-range parts fall back to their minimum.
func decodeTimestamp(b []byte) *time.Time {
	allFF, allZero := true, true
	for _, v := range b {
		allFF = allFF && v == 0xFF
		allZero = allZero && v == 0x00
	}
	if allFF || allZero {
		return nil
	}

	month, day := int(b[1]), int(b[2])
	hour, minute, second := int(b[3]), int(b[4]), int(b[5])
	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}
	if hour > 23 {
		hour = 0
	}
	if minute > 59 {
		minute = 0
	}
	if second > 59 {
		second = 0
	}
	ts := time.Date(2000+int(b[0]), time.Month(month), day, hour, minute, second, 0, time.Local)
	return &ts
}

func encodeTimestamp(b []byte, ts time.Time) {
	year := ts.Year() - 2000
	if year < 0 || year > 0xFE {
		year = 0
	}
	b[0] = byte(year)
	b[1] = byte(ts.Month())
	b[2] = byte(ts.Day())
	b[3] = byte(ts.Hour())
	b[4] = byte(ts.Minute())
	b[5] = byte(ts.Second())
}

// Store holds the contents of all four message regions.
type Store struct {
	regions map[Type][]*Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{regions: make(map[Type][]*Message)}
}

// Load replaces the messages of type t with those decoded from data.
func (s *Store) Load(t Type, data []byte) {
	s.regions[t] = ParseRegion(data, t, MaxCount(t))
}

// Messages returns the messages of type t ordered by index.
func (s *Store) Messages(t Type) []*Message {
	msgs := append([]*Message(nil), s.regions[t]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Index < msgs[j].Index })
	return msgs
}

// Add places m in the first free slot of its region.
func (s *Store) Add(m *Message) error {
	used := make(map[int]bool)
	for _, existing := range s.regions[m.Type] {
		used[existing.Index] = true
	}
	for i := 0; i < MaxCount(m.Type); i++ {
		if !used[i] {
			m.Index = i
			s.regions[m.Type] = append(s.regions[m.Type], m)
			return nil
		}
	}
	return fmt.Errorf("%s region is full (%d messages)", m.Type, MaxCount(m.Type))
}

// Remove deletes the message of type t at index.
func (s *Store) Remove(t Type, index int) bool {
	msgs := s.regions[t]
	for i, m := range msgs {
		if m.Index == index {
			s.regions[t] = append(msgs[:i], msgs[i+1:]...)
			return true
		}
	}
	return false
}

// Region encodes the messages of type t as a full region image.
func (s *Store) Region(t Type) []byte {
	return SerializeRegion(s.regions[t], MaxCount(t))
}

// Count returns the number of messages of type t.
func (s *Store) Count(t Type) int {
	return len(s.regions[t])
}
