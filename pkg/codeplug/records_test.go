package codeplug

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestContactCodec(t *testing.T) {
	tests := []struct {
		name   string
		in     *Contact
		wantID uint32
	}{
		{"group", &Contact{Name: "TG 91", Type: ContactGroup, DMRID: 91}, 91},
		{"private", &Contact{Name: "N0CALL", Type: ContactPrivate, DMRID: 3112345}, 3112345},
		{"all call forces id", &Contact{Name: "All", Type: ContactAllCall, DMRID: 5}, AllCallID},
		{"id clamped", &Contact{Name: "Big", Type: ContactGroup, DMRID: 99999999}, MaxDMRID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := EncodeContact(tt.in, 1)
			require.Len(t, rec, ContactSize)
			assert.NotContains(t, []byte{0x00, 0xFF}, rec[contactInUse])

			got, err := DecodeContact(rec)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.in.Name, got.Name)
			assert.Equal(t, tt.in.Type, got.Type)
			assert.Equal(t, tt.wantID, got.DMRID)
		})
	}
}

func TestDecodeContact_Empty(t *testing.T) {
	erased := make([]byte, ContactSize)
	fill(erased, empty8)

	zeroMarker := EncodeContact(NewContact("X", ContactGroup, 1), 1)
	zeroMarker[contactInUse] = 0x00

	noName := EncodeContact(NewContact("X", ContactGroup, 1), 1)
	fill(noName[contactName:], empty8)

	for name, rec := range map[string][]byte{"erased": erased, "zero marker": zeroMarker, "no name": noName} {
		t.Run(name, func(t *testing.T) {
			c, err := DecodeContact(rec)
			require.NoError(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestDecodeContact_BadType(t *testing.T) {
	rec := EncodeContact(NewContact("X", ContactGroup, 1), 1)
	rec[contactType] = 3
	_, err := DecodeContact(rec)
	assert.Error(t, err)
}

func TestInUseMarkerNeverEmpty(t *testing.T) {
	for slot := 0; slot < ContactCount; slot++ {
		m := inUseMarker(slot)
		if m == 0x00 || m == 0xFF {
			t.Fatalf("slot %d produced marker 0x%02X", slot, m)
		}
	}
}

func TestGroupListCodec(t *testing.T) {
	for _, layout := range []Layout{LayoutLegacy, LayoutBeta41} {
		t.Run(layout.String(), func(t *testing.T) {
			g := &GroupList{Name: "Regional"}
			members := make([]int, layout.GroupListCapacity()+5)
			for i := range members {
				members[i] = i + 1
			}

			rec := EncodeGroupList(g, layout, members)
			require.Len(t, rec, layout.GroupListSize())
			assert.Equal(t, byte(0x00), rec[0])
			assert.Equal(t, byte(0x01), rec[1])

			got, indices, err := DecodeGroupList(rec, layout)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Regional", got.Name)
			assert.Equal(t, members[:layout.GroupListCapacity()], indices)
		})
	}
}

func TestGroupListTerminator(t *testing.T) {
	rec := EncodeGroupList(&GroupList{Name: "Short"}, LayoutLegacy, []int{3, 1, 2})
	assert.Equal(t, uint16(0xFFFF), binary.LittleEndian.Uint16(rec[groupListHeaderSize+6:]))

	// Entries after the terminator are ignored
	binary.LittleEndian.PutUint16(rec[groupListHeaderSize+8:], 9)
	_, indices, err := DecodeGroupList(rec, LayoutLegacy)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, indices)
}

func TestGroupListCapacity(t *testing.T) {
	assert.Equal(t, 128, LayoutLegacy.GroupListCapacity())
	assert.Equal(t, 32, LayoutBeta41.GroupListCapacity())
	assert.Equal(t, 32, LayoutLegacy.GroupListCount())
	assert.Equal(t, 150, LayoutBeta41.GroupListCount())
	assert.LessOrEqual(t, LayoutLegacy.GroupListSize()*LayoutLegacy.GroupListCount(), GroupListRegionSize)
	assert.LessOrEqual(t, LayoutBeta41.GroupListSize()*LayoutBeta41.GroupListCount(), GroupListRegionSize)
}

func TestZoneCodec(t *testing.T) {
	slots := make([]int, ZoneMaxChannels+10)
	for i := range slots {
		slots[i] = ChannelCount - 1 - i
	}
	rec := EncodeZone(&Zone{Name: "Repeaters"}, slots)
	require.Len(t, rec, ZoneSize)
	assert.Equal(t, uint16(ZoneMaxChannels), binary.LittleEndian.Uint16(rec[zoneCount:]))

	z, got, err := DecodeZone(rec)
	require.NoError(t, err)
	require.NotNil(t, z)
	assert.Equal(t, "Repeaters", z.Name)
	assert.Equal(t, slots[:ZoneMaxChannels], got)
}

func TestDecodeZone_Empty(t *testing.T) {
	erased := make([]byte, ZoneSize)
	fill(erased, empty8)
	z, slots, err := DecodeZone(erased)
	require.NoError(t, err)
	assert.Nil(t, z)
	assert.Nil(t, slots)

	noName := EncodeZone(&Zone{Name: "Z"}, []int{1})
	fill(noName[zoneName:zoneName+NameSize], empty8)
	z, _, err = DecodeZone(noName)
	require.NoError(t, err)
	assert.Nil(t, z)
}

func TestDecodeZone_CountAboveCapIsTruncated(t *testing.T) {
	slots := make([]int, ZoneMaxChannels)
	for i := range slots {
		slots[i] = i
	}
	rec := EncodeZone(&Zone{Name: "Z"}, slots)
	binary.LittleEndian.PutUint16(rec[zoneHeaderSize+ZoneMaxChannels*2:], 7)
	binary.LittleEndian.PutUint16(rec[zoneCount:], ZoneMaxChannels+1)

	z, got, err := DecodeZone(rec)
	require.NoError(t, err)
	require.NotNil(t, z)
	assert.Equal(t, slots, got)
}

func TestEncryptionKeyCodec(t *testing.T) {
	tests := []struct {
		name  string
		typ   EncryptionType
		value string
		want  string
	}{
		{"arc", EncryptionARC, "0123456789", "0123456789"},
		{"arc truncated", EncryptionARC, "0123456789ABCDEF", "0123456789"},
		{"aes128 lower case", EncryptionAES128, "00112233445566778899aabbccddeef0", "00112233445566778899AABBCCDDEEF0"},
		{"aes256", EncryptionAES256,
			"0102030405060708091011121314151617181920212223242526272829303132",
			"0102030405060708091011121314151617181920212223242526272829303132"},
		{"short value", EncryptionAES128, "ABCD", "ABCD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := &EncryptionKey{Alias: "Key", Type: tt.typ, Value: tt.value}
			rec := EncodeEncryptionKey(k, 3)
			require.Len(t, rec, EncryptionKeySize)
			assert.Equal(t, byte(4), rec[keyInUse])

			got, err := DecodeEncryptionKey(rec)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "Key", got.Alias)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.want, got.Value)
		})
	}
}

func TestEncryptionKeyNibblePacking(t *testing.T) {
	rec := EncodeEncryptionKey(&EncryptionKey{Alias: "K", Type: EncryptionARC, Value: "12A"}, 0)
	assert.Equal(t, []byte{0x12, 0xAF, 0xFF}, rec[keyValue:keyValue+3])
}

func TestDecodeEncryptionKey_Invalid(t *testing.T) {
	rec := EncodeEncryptionKey(&EncryptionKey{Alias: "K", Type: EncryptionARC, Value: "0123456789"}, 0)
	rec[keyType] = 7
	_, err := DecodeEncryptionKey(rec)
	assert.Error(t, err)

	erased := make([]byte, EncryptionKeySize)
	fill(erased, empty8)
	k, err := DecodeEncryptionKey(erased)
	require.NoError(t, err)
	assert.Nil(t, k)
}

func TestEncryptionKey_SetValueNormalizes(t *testing.T) {
	k := NewEncryptionKey("K", EncryptionARC, "de:ad-be ef 01")
	assert.Equal(t, "DEADBEEF01", k.Value)

	junk := NewEncryptionKey("K", EncryptionARC, "zz-zz")
	assert.Equal(t, "", junk.Value)
	assert.True(t, junk.IsEmpty())

	raw := &EncryptionKey{Alias: "K", Type: EncryptionARC, Value: "xyz"}
	assert.True(t, raw.IsEmpty())
	rec := EncodeEncryptionKey(raw, 0)
	got, err := DecodeEncryptionKey(rec)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncryptionKey_SetType(t *testing.T) {
	k := NewEncryptionKey("K", EncryptionAES256, "0102030405060708091011121314151617181920212223242526272829303132")
	k.SetType(EncryptionARC)
	assert.Equal(t, "0102030405", k.Value)
}

func TestContactRecordRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		want := &Contact{
			Name:  rapid.StringMatching(`[A-Za-z0-9]{1,16}`).Draw(t, "name"),
			Type:  ContactType(rapid.IntRange(0, 1).Draw(t, "type")),
			DMRID: rapid.Uint32Range(1, MaxDMRID).Draw(t, "id"),
		}
		index := rapid.IntRange(1, ContactCount).Draw(t, "index")

		got, err := DecodeContact(EncodeContact(want, index))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got == nil || *got != *want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}
