package messages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TypeMismatchIsEmpty(t *testing.T) {
	entry := Serialize(&Message{Type: Inbox, Text: "hello"})
	assert.Nil(t, Parse(entry, Outbox, 0))
	assert.NotNil(t, Parse(entry, Inbox, 0))

	erased := Serialize(nil)
	for _, r := range Regions {
		assert.Nil(t, Parse(erased, r.Type, 0), r.Type.String())
	}
}

func TestSerializeLayout(t *testing.T) {
	ts := time.Date(2024, time.March, 9, 14, 5, 59, 0, time.Local)
	entry := Serialize(&Message{Type: Inbox, CallType: CallGroup, ContactID: 91, Timestamp: &ts, Text: "QSY 2"})

	require.Len(t, entry, EntrySize)
	assert.Equal(t, byte(Inbox), entry[0])
	assert.Equal(t, byte(CallGroup), entry[1])
	assert.Equal(t, []byte{91, 0, 0, 0}, entry[2:6])
	assert.Equal(t, []byte{24, 3, 9, 14, 5, 59}, entry[6:12])
	for i := 12; i < TextOffset; i++ {
		assert.Equal(t, byte(0xFF), entry[i], "reserved byte %d", i)
	}
	assert.Equal(t, []byte("QSY 2"), entry[TextOffset:TextOffset+5])
	assert.Equal(t, byte(0xFF), entry[TextOffset+5])
}

func TestRoundTrip(t *testing.T) {
	ts := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.Local)
	tests := []struct {
		name string
		msg  *Message
	}{
		{"preset", &Message{Index: 3, Type: Preset, Text: "On my way"}},
		{"inbox with timestamp", &Message{Index: 0, Type: Inbox, CallType: CallPrivate, ContactID: 3112345, Timestamp: &ts, Text: "73"}},
		{"outbox all call", &Message{Index: 255, Type: Outbox, CallType: CallAll, ContactID: 16777215, Text: "Net starts now"}},
		{"gbk text", &Message{Index: 1, Type: Draft, Text: "你好"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(Serialize(tt.msg), tt.msg.Type, tt.msg.Index)
			require.NotNil(t, got)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestTextTruncatedTo200Bytes(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	got := Parse(Serialize(&Message{Type: Draft, Text: string(long)}), Draft, 0)
	require.NotNil(t, got)
	assert.Len(t, got.Text, TextMaxLength)
}

func TestDecodeTimestamp(t *testing.T) {
	assert.Nil(t, decodeTimestamp([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
	assert.Nil(t, decodeTimestamp([]byte{0, 0, 0, 0, 0, 0}))

	ts := decodeTimestamp([]byte{24, 13, 0, 25, 61, 61})
	require.NotNil(t, ts)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local), *ts)
}

func TestRegionRoundTrip(t *testing.T) {
	msgs := []*Message{
		{Index: 0, Type: Preset, Text: "First"},
		{Index: 15, Type: Preset, Text: "Last"},
		{Index: 16, Type: Preset, Text: "Out of range"},
	}
	data := SerializeRegion(msgs, MaxCount(Preset))
	require.Len(t, data, 16*EntrySize)

	got := ParseRegion(data, Preset, MaxCount(Preset))
	require.Len(t, got, 2)
	assert.Equal(t, "First", got[0].Text)
	assert.Equal(t, 15, got[1].Index)
}

func TestMaxCount(t *testing.T) {
	assert.Equal(t, 16, MaxCount(Preset))
	assert.Equal(t, 256, MaxCount(Draft))
	assert.Equal(t, 256, MaxCount(Inbox))
	assert.Equal(t, 256, MaxCount(Outbox))
}

func TestParseType(t *testing.T) {
	for _, r := range Regions {
		got, err := ParseType(r.Type.String())
		require.NoError(t, err)
		assert.Equal(t, r.Type, got)
	}
	_, err := ParseType("spam")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Load(Preset, SerializeRegion([]*Message{{Index: 0, Type: Preset, Text: "A"}}, 16))

	m := &Message{Type: Preset, Text: "B"}
	require.NoError(t, s.Add(m))
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 2, s.Count(Preset))

	assert.True(t, s.Remove(Preset, 0))
	assert.False(t, s.Remove(Preset, 0))

	got := ParseRegion(s.Region(Preset), Preset, 16)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Text)

	for i := 0; i < 15; i++ {
		require.NoError(t, s.Add(&Message{Type: Preset, Text: "fill"}))
	}
	assert.Error(t, s.Add(&Message{Type: Preset, Text: "overflow"}))
}
