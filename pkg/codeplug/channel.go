package codeplug

import (
	"encoding/binary"
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/bcd"
	"github.com/dbehnke/rt4d-cps/pkg/gbk"
	"github.com/dbehnke/rt4d-cps/pkg/tones"
)

// NoRef marks an unset reference in ChannelRefs.
const NoRef = -1

// ChannelRefs holds a channel's references in their on-disk numbering.
type ChannelRefs struct {
	ContactSlot    int // 0-based contact slot
	GroupListIndex int // 1-based group list index
	KeyIndex       int // 0-based encryption key index
}

// NoRefs is a ChannelRefs with nothing referenced.
var NoRefs = ChannelRefs{ContactSlot: NoRef, GroupListIndex: NoRef, KeyIndex: NoRef}

// Legacy channel record offsets
const (
	legacyIDSelect   = 0x00 // digital: 0 radio ID, 1 channel ID; analog: modulation
	legacyEnabled    = 0x01
	legacyMode       = 0x02
	legacyTimeSlot   = 0x03 // analog: bandwidth
	legacyColorCode  = 0x04 // analog: rx tone (u16)
	legacyDCDM       = 0x05
	legacyRxFreq     = 0x06
	legacyTxFreq     = 0x0A
	legacyMonitor    = 0x0E // analog: tx tone (u16)
	legacyPower      = 0x10
	legacyBusyLock   = 0x11
	legacyTOTSelect  = 0x12 // analog only
	legacyScanFlags  = 0x13
	legacyTOT        = 0x14 // analog: mute codes start
	legacyAlarm      = 0x15
	legacyGroupList  = 0x16
	legacyContact    = 0x18
	legacyEncryptKey = 0x1A
	legacyDMRID      = 0x1C
	channelName      = 0x20
)

// Beta41 channel record offsets
const (
	beta41Flags      = 0x00
	beta41CCScramble = 0x01
	beta41TOTPower   = 0x02
	beta41Analog     = 0x03
	beta41Enabled    = 0x04
	beta41RxFreq     = 0x05
	beta41TxFreq     = 0x09
	beta41RxTone     = 0x0D
	beta41TxTone     = 0x0F
	beta41Contact    = 0x11
	beta41GroupList  = 0x13
	beta41EncryptKey = 0x14
	beta41DMRID      = 0x15
	beta41MuteCode   = 0x19
)

// Beta41 flag bits at offset 0x00
const (
	b41FlagAnalog    = 1 << 0
	b41FlagChannelID = 1 << 1
	b41FlagSlot2     = 1 << 2
	b41FlagMonitor   = 1 << 3
	b41FlagDCDM      = 1 << 4
	b41FlagAlarm     = 1 << 5
	b41FlagNarrow    = 1 << 6
	b41FlagScanOff   = 1 << 7

	b41TOTMask   = 0x3F
	b41BusyLock  = 1 << 6
	b41PowerHigh = 1 << 7
)

const (
	channelEnabledByte = 0x01
	scanRemoveBit      = 0x80
	maxColorCode       = 15
)

// DecodeChannel decodes one 48-byte channel record. It returns a nil channel
// for a slot the layout considers empty. The references are returned in
// on-disk numbering for the caller to resolve.
func DecodeChannel(rec []byte, layout Layout) (*Channel, ChannelRefs, error) {
	if len(rec) != ChannelSize {
		return nil, NoRefs, fmt.Errorf("invalid channel record size: %d (expected %d)", len(rec), ChannelSize)
	}
	if layout == LayoutBeta41 {
		return decodeBeta41Channel(rec)
	}
	return decodeLegacyChannel(rec)
}

// EncodeChannel encodes ch using refs for its references. An empty channel
// encodes as an erased record.
func EncodeChannel(ch *Channel, layout Layout, refs ChannelRefs) []byte {
	rec := make([]byte, ChannelSize)
	fill(rec, empty8)
	if ch == nil || ch.IsEmpty() {
		return rec
	}
	if layout == LayoutBeta41 {
		encodeBeta41Channel(rec, ch, refs)
	} else {
		encodeLegacyChannel(rec, ch, refs)
	}
	return rec
}

func decodeLegacyChannel(rec []byte) (*Channel, ChannelRefs, error) {
	refs := NoRefs

	// Mode values above analog mark an unused slot
	if rec[legacyMode] >= 2 {
		return nil, refs, nil
	}
	if rec[legacyIDSelect] == empty8 && rec[legacyEnabled] == empty8 {
		return nil, refs, nil
	}

	ch := &Channel{
		Name:    gbk.Decode(rec[channelName : channelName+NameSize]),
		RxFreq:  decodeFreq(rec[legacyRxFreq:]),
		TxFreq:  decodeFreq(rec[legacyTxFreq:]),
		Mode:    ChannelMode(rec[legacyMode]),
		Power:   PowerLow,
		Scan:    ScanAdd,
		Enabled: rec[legacyEnabled] == channelEnabledByte,
	}
	if rec[legacyPower] == byte(PowerHigh) {
		ch.Power = PowerHigh
	}
	if rec[legacyScanFlags]&scanRemoveBit != 0 {
		ch.Scan = ScanRemove
	}

	if ch.Mode == ModeDigital {
		ch.UseRadioID = rec[legacyIDSelect] == 0x00
		ch.TimeSlot = rec[legacyTimeSlot]
		ch.ColorCode = clampColorCode(rec[legacyColorCode])
		ch.DCDM = rec[legacyDCDM]
		ch.Monitor = rec[legacyMonitor] == 0x01
		ch.BusyLock = rec[legacyBusyLock]
		ch.TOT = rec[legacyTOT]
		ch.Alarm = rec[legacyAlarm] == 0x01
		ch.DMRID = bcd.Decode(rec[legacyDMRID : legacyDMRID+bcd.Size])

		refs.GroupListIndex = oneBasedRef(uint(binary.LittleEndian.Uint16(rec[legacyGroupList:])), empty16)
		if slot := binary.LittleEndian.Uint16(rec[legacyContact:]); slot != empty16 {
			refs.ContactSlot = int(slot)
		}
		if idx := oneBasedRef(uint(binary.LittleEndian.Uint16(rec[legacyEncryptKey:])), empty16); idx != NoRef {
			refs.KeyIndex = idx - 1
		}
		return ch, refs, nil
	}

	ch.Modulation = decodeModulation(rec[legacyIDSelect])
	ch.Bandwidth = decodeBandwidth(rec[legacyTimeSlot] == byte(BandwidthNarrow))
	ch.RxTone = tones.Decode(binary.LittleEndian.Uint16(rec[legacyColorCode:]))
	ch.TxTone = tones.Decode(binary.LittleEndian.Uint16(rec[legacyMonitor:]))
	ch.AnalogBusyLock = rec[legacyBusyLock]
	ch.AnalogTOT = rec[legacyTOTSelect] & 0x1F
	ch.CTDCSSelect = rec[legacyTOTSelect] >> 5
	ch.TailTone = (rec[legacyScanFlags] >> 4) & 0x07
	ch.Scramble = rec[legacyScanFlags] & 0x0F
	for i := range ch.MuteCodes {
		ch.MuteCodes[i] = binary.LittleEndian.Uint32(rec[legacyTOT+i*4:])
	}
	return ch, refs, nil
}

func encodeLegacyChannel(rec []byte, ch *Channel, refs ChannelRefs) {
	rec[legacyEnabled] = channelEnabledByte
	rec[legacyMode] = byte(ch.Mode)
	binary.LittleEndian.PutUint32(rec[legacyRxFreq:], ch.RxFreq)
	binary.LittleEndian.PutUint32(rec[legacyTxFreq:], ch.TxFreq)
	rec[legacyPower] = byte(ch.Power)
	gbk.Put(rec[channelName:channelName+NameSize], ch.Name)

	var scan byte
	if ch.Scan == ScanRemove {
		scan = scanRemoveBit
	}

	if ch.Mode == ModeDigital {
		rec[legacyIDSelect] = boolByte(ch.UseRadioID, 0x00, 0x01)
		rec[legacyTimeSlot] = ch.TimeSlot
		rec[legacyColorCode] = clampColorCode(ch.ColorCode)
		rec[legacyDCDM] = ch.DCDM
		rec[legacyMonitor] = boolByte(ch.Monitor, 0x01, 0x00)
		rec[legacyBusyLock] = ch.BusyLock
		rec[legacyScanFlags] = scan
		rec[legacyTOT] = ch.TOT
		rec[legacyAlarm] = boolByte(ch.Alarm, 0x01, 0x00)

		binary.LittleEndian.PutUint16(rec[legacyGroupList:], uint16(refOrZero(refs.GroupListIndex)))
		binary.LittleEndian.PutUint16(rec[legacyContact:], slotOrEmpty16(refs.ContactSlot))
		binary.LittleEndian.PutUint16(rec[legacyEncryptKey:], uint16(refOrZero(plusOne(refs.KeyIndex))))
		bcd.Put(rec[legacyDMRID:], channelDMRID(ch))
		return
	}

	rec[legacyIDSelect] = byte(ch.Modulation)
	rec[legacyTimeSlot] = byte(ch.Bandwidth)
	binary.LittleEndian.PutUint16(rec[legacyColorCode:], tones.Encode(ch.RxTone))
	binary.LittleEndian.PutUint16(rec[legacyMonitor:], tones.Encode(ch.TxTone))
	rec[legacyBusyLock] = ch.AnalogBusyLock
	rec[legacyTOTSelect] = ch.AnalogTOT&0x1F | (ch.CTDCSSelect&0x07)<<5
	rec[legacyScanFlags] = scan | (ch.TailTone&0x07)<<4 | ch.Scramble&0x0F
	for i, code := range ch.MuteCodes {
		binary.LittleEndian.PutUint32(rec[legacyTOT+i*4:], code)
	}
}

func decodeBeta41Channel(rec []byte) (*Channel, ChannelRefs, error) {
	refs := NoRefs

	if isErased(rec) {
		return nil, refs, nil
	}
	name := gbk.Decode(rec[channelName : channelName+NameSize])
	rx := decodeFreq(rec[beta41RxFreq:])
	tx := decodeFreq(rec[beta41TxFreq:])
	if rx == 0 && tx == 0 && name == "" {
		return nil, refs, nil
	}

	flags := rec[beta41Flags]
	totPower := rec[beta41TOTPower]
	analog := rec[beta41Analog]

	ch := &Channel{
		Name:        name,
		RxFreq:      rx,
		TxFreq:      tx,
		Mode:        ModeDigital,
		Power:       PowerLow,
		Scan:        ScanAdd,
		Enabled:     rec[beta41Enabled] == channelEnabledByte,
		UseRadioID:  flags&b41FlagChannelID == 0,
		Monitor:     flags&b41FlagMonitor != 0,
		Alarm:       flags&b41FlagAlarm != 0,
		ColorCode:   rec[beta41CCScramble] & 0x0F,
		Scramble:    rec[beta41CCScramble] >> 4,
		Modulation:  decodeModulation(analog & 0x03),
		TailTone:    (analog >> 2) & 0x07,
		CTDCSSelect: analog >> 5,
		Bandwidth:   decodeBandwidth(flags&b41FlagNarrow != 0),
		RxTone:      tones.Decode(binary.LittleEndian.Uint16(rec[beta41RxTone:])),
		TxTone:      tones.Decode(binary.LittleEndian.Uint16(rec[beta41TxTone:])),
		DMRID:       bcd.Decode(rec[beta41DMRID : beta41DMRID+bcd.Size]),
	}
	ch.MuteCodes[0] = binary.LittleEndian.Uint32(rec[beta41MuteCode:])

	if flags&b41FlagAnalog != 0 {
		ch.Mode = ModeAnalog
	}
	if flags&b41FlagSlot2 != 0 {
		ch.TimeSlot = 1
	}
	if flags&b41FlagDCDM != 0 {
		ch.DCDM = 1
	}
	if flags&b41FlagScanOff != 0 {
		ch.Scan = ScanRemove
	}
	if totPower&b41PowerHigh != 0 {
		ch.Power = PowerHigh
	}

	tot := totPower & b41TOTMask
	var busy uint8
	if totPower&b41BusyLock != 0 {
		busy = 1
	}
	if ch.Mode == ModeAnalog {
		ch.AnalogTOT, ch.AnalogBusyLock = tot, busy
	} else {
		ch.TOT, ch.BusyLock = tot, busy
	}

	if slot := binary.LittleEndian.Uint16(rec[beta41Contact:]); slot != empty16 {
		refs.ContactSlot = int(slot)
	}
	refs.GroupListIndex = oneBasedRef(uint(rec[beta41GroupList]), empty8)
	if idx := oneBasedRef(uint(rec[beta41EncryptKey]), empty8); idx != NoRef {
		refs.KeyIndex = idx - 1
	}
	return ch, refs, nil
}

func encodeBeta41Channel(rec []byte, ch *Channel, refs ChannelRefs) {
	var flags byte
	if ch.Mode == ModeAnalog {
		flags |= b41FlagAnalog
	}
	if !ch.UseRadioID {
		flags |= b41FlagChannelID
	}
	if ch.TimeSlot != 0 {
		flags |= b41FlagSlot2
	}
	if ch.Monitor {
		flags |= b41FlagMonitor
	}
	if ch.DCDM != 0 {
		flags |= b41FlagDCDM
	}
	if ch.Alarm {
		flags |= b41FlagAlarm
	}
	if ch.Bandwidth == BandwidthNarrow {
		flags |= b41FlagNarrow
	}
	if ch.Scan == ScanRemove {
		flags |= b41FlagScanOff
	}
	rec[beta41Flags] = flags

	rec[beta41CCScramble] = clampColorCode(ch.ColorCode) | (ch.Scramble&0x0F)<<4

	tot, busy := ch.TOT, ch.BusyLock
	if ch.Mode == ModeAnalog {
		tot, busy = ch.AnalogTOT, ch.AnalogBusyLock
	}
	totPower := tot & b41TOTMask
	if busy != 0 {
		totPower |= b41BusyLock
	}
	if ch.Power == PowerHigh {
		totPower |= b41PowerHigh
	}
	rec[beta41TOTPower] = totPower

	rec[beta41Analog] = byte(ch.Modulation)&0x03 | (ch.TailTone&0x07)<<2 | (ch.CTDCSSelect&0x07)<<5
	rec[beta41Enabled] = channelEnabledByte

	binary.LittleEndian.PutUint32(rec[beta41RxFreq:], ch.RxFreq)
	binary.LittleEndian.PutUint32(rec[beta41TxFreq:], ch.TxFreq)
	binary.LittleEndian.PutUint16(rec[beta41RxTone:], tones.Encode(ch.RxTone))
	binary.LittleEndian.PutUint16(rec[beta41TxTone:], tones.Encode(ch.TxTone))
	binary.LittleEndian.PutUint16(rec[beta41Contact:], slotOrEmpty16(refs.ContactSlot))

	rec[beta41GroupList] = 0
	if refs.GroupListIndex > 0 && refs.GroupListIndex < empty8 {
		rec[beta41GroupList] = byte(refs.GroupListIndex)
	}
	rec[beta41EncryptKey] = 0
	if k := plusOne(refs.KeyIndex); k > 0 && k < empty8 {
		rec[beta41EncryptKey] = byte(k)
	}

	bcd.Put(rec[beta41DMRID:], channelDMRID(ch))
	binary.LittleEndian.PutUint32(rec[beta41MuteCode:], ch.MuteCodes[0])
	gbk.Put(rec[channelName:channelName+NameSize], ch.Name)
}

// channelDMRID is the ID written to the record. Channels that transmit with
// the radio's own ID store 0.
func channelDMRID(ch *Channel) uint32 {
	if ch.UseRadioID {
		return 0
	}
	return ch.DMRID
}

func decodeFreq(b []byte) uint32 {
	f := binary.LittleEndian.Uint32(b)
	if f == empty32 {
		return 0
	}
	return f
}

func decodeModulation(b byte) Modulation {
	if b > byte(ModulationSSB) {
		return ModulationFM
	}
	return Modulation(b)
}

func decodeBandwidth(narrow bool) Bandwidth {
	if narrow {
		return BandwidthNarrow
	}
	return BandwidthWide
}

func clampColorCode(cc uint8) uint8 {
	if cc > maxColorCode {
		return maxColorCode
	}
	return cc
}

// oneBasedRef returns v unless it is 0 or the erased value.
func oneBasedRef(v, erased uint) int {
	if v == 0 || v == erased {
		return NoRef
	}
	return int(v)
}

func refOrZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func plusOne(idx int) int {
	if idx < 0 {
		return NoRef
	}
	return idx + 1
}

func slotOrEmpty16(slot int) uint16 {
	if slot < 0 || slot >= empty16 {
		return empty16
	}
	return uint16(slot)
}

func isErased(b []byte) bool {
	for _, v := range b {
		if v != empty8 {
			return false
		}
	}
	return true
}
