package codeplug

import (
	"encoding/binary"
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/bcd"
	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// Settings block offsets
const (
	SettingsSignatureOffset = 12
	settingsSignature0      = 0xCD
	settingsSignature1      = 0xAB

	settingsPasswordOffset = 28
	settingsPasswordSize   = 16
	settingsMessageOffset  = 44
	settingsMessageSize    = 32
	settingsNameOffset     = 76
	settingsNameSize       = 16
	settingsRadioIDOffset  = 384

	settingsClockOffset    = 110
	settingsFreqLockOffset = 142
	settingsNumKeyOffset   = 176
	settingsTimeOffset     = 106

	DTMFCodeCount    = 20
	DTMFCodeSlotSize = 16
	DTMFCodeMaxLen   = DTMFCodeSlotSize - 1
	dtmfCodesOffset  = 522

	ExtensionOffset = 0xF00
	ExtensionSize   = Beta41MagicOffset - ExtensionOffset
)

// Clock is one programmable alarm clock.
type Clock struct {
	Mode   uint8 `json:"mode" yaml:"mode"` // 0 off, 1 once, 2 daily
	Hour   uint8 `json:"hour" yaml:"hour"`
	Minute uint8 `json:"minute" yaml:"minute"`
}

// FreqLock restricts transmit to a band. Start and End are whole MHz.
type FreqLock struct {
	Mode  uint8  `json:"mode" yaml:"mode"` // 0 unlocked, 1 rx only, 2 locked
	Start uint16 `json:"start" yaml:"start"`
	End   uint16 `json:"end" yaml:"end"`
}

// RadioSettings is the decoded CFG block.
type RadioSettings struct {
	// Identity
	RadioName       string `json:"radio_name" yaml:"radio_name"`
	RadioID         uint32 `json:"radio_id" yaml:"radio_id"`
	StartupMessage  string `json:"startup_message" yaml:"startup_message"`
	StartupPassword string `json:"startup_password" yaml:"startup_password"`

	// Startup
	StartupPictureEnable uint8  `json:"startup_picture_enable" yaml:"startup_picture_enable"`
	TxProtection         uint8  `json:"tx_protection" yaml:"tx_protection"`
	StartupBeepEnable    uint8  `json:"startup_beep_enable" yaml:"startup_beep_enable"`
	StartupLabelEnable   uint8  `json:"startup_label_enable" yaml:"startup_label_enable"`
	StartupDisplayLine   uint16 `json:"startup_display_line" yaml:"startup_display_line"`
	StartupDisplayColumn uint16 `json:"startup_display_column" yaml:"startup_display_column"`
	PasswordEnable       uint8  `json:"password_enable" yaml:"password_enable"`

	// Keypad and prompts
	VoicePrompt uint8 `json:"voice_prompt" yaml:"voice_prompt"`
	KeyBeep     uint8 `json:"key_beep" yaml:"key_beep"`
	KeyLock     uint8 `json:"key_lock" yaml:"key_lock"`
	LockTimer   uint8 `json:"lock_timer" yaml:"lock_timer"`

	// Display
	LEDOnOff            uint8 `json:"led_on_off" yaml:"led_on_off"`
	BacklightBrightness uint8 `json:"backlight_brightness" yaml:"backlight_brightness"`
	LEDTimer            uint8 `json:"led_timer" yaml:"led_timer"`
	MenuTimer           uint8 `json:"menu_timer" yaml:"menu_timer"`
	DisplayModeA        uint8 `json:"display_mode_a" yaml:"display_mode_a"`
	DisplayModeB        uint8 `json:"display_mode_b" yaml:"display_mode_b"`
	LCDContrast         uint8 `json:"lcd_contrast" yaml:"lcd_contrast"`
	DisplayLines        uint8 `json:"display_lines" yaml:"display_lines"`
	DualDisplayMode     uint8 `json:"dual_display_mode" yaml:"dual_display_mode"`

	// Power
	PowerSaveMode  uint8 `json:"power_save_mode" yaml:"power_save_mode"`
	PowerSaveStart uint8 `json:"power_save_start" yaml:"power_save_start"`
	APOEnabled     bool  `json:"apo_enabled" yaml:"apo_enabled"`

	// Operation
	DualWatch        uint8  `json:"dual_watch" yaml:"dual_watch"`
	Talkaround       uint8  `json:"talkaround" yaml:"talkaround"`
	AlarmType        uint8  `json:"alarm_type" yaml:"alarm_type"`
	TxPriorityGlobal uint8  `json:"tx_priority_global" yaml:"tx_priority_global"`
	MainPTT          uint8  `json:"main_ptt" yaml:"main_ptt"`
	VFOStep          uint8  `json:"vfo_step" yaml:"vfo_step"`
	MainBand         uint8  `json:"main_band" yaml:"main_band"`
	WorkModeA        uint8  `json:"work_mode_a" yaml:"work_mode_a"`
	ZoneA            uint8  `json:"zone_a" yaml:"zone_a"`
	ChannelA         uint16 `json:"channel_a" yaml:"channel_a"`
	WorkModeB        uint8  `json:"work_mode_b" yaml:"work_mode_b"`
	ZoneB            uint8  `json:"zone_b" yaml:"zone_b"`
	ChannelB         uint16 `json:"channel_b" yaml:"channel_b"`

	// Clocks
	RadioTimeSeconds uint32   `json:"radio_time_seconds" yaml:"radio_time_seconds"`
	Clocks           [4]Clock `json:"clocks" yaml:"clocks"`

	FreqLocks [4]FreqLock `json:"freq_locks" yaml:"freq_locks"`

	// Scan
	ScanDirection uint8 `json:"scan_direction" yaml:"scan_direction"`
	ScanMode      uint8 `json:"scan_mode" yaml:"scan_mode"`
	ScanReturn    uint8 `json:"scan_return" yaml:"scan_return"`
	ScanDwell     uint8 `json:"scan_dwell" yaml:"scan_dwell"`

	// Function keys
	KeyFS1Short   uint8     `json:"key_fs1_short" yaml:"key_fs1_short"`
	KeyFS1Long    uint8     `json:"key_fs1_long" yaml:"key_fs1_long"`
	KeyFS2Short   uint8     `json:"key_fs2_short" yaml:"key_fs2_short"`
	KeyFS2Long    uint8     `json:"key_fs2_long" yaml:"key_fs2_long"`
	KeyAlarmShort uint8     `json:"key_alarm_short" yaml:"key_alarm_short"`
	KeyAlarmLong  uint8     `json:"key_alarm_long" yaml:"key_alarm_long"`
	NumericKeys   [10]uint8 `json:"numeric_keys" yaml:"numeric_keys"`

	// Audio
	ToneFrequency     uint16 `json:"tone_frequency" yaml:"tone_frequency"`
	SquelchLevel      uint8  `json:"squelch_level" yaml:"squelch_level"`
	TxMicGain         uint8  `json:"tx_mic_gain" yaml:"tx_mic_gain"`
	RxSpeakerVolume   uint8  `json:"rx_speaker_volume" yaml:"rx_speaker_volume"`
	TxStartBeep       uint8  `json:"tx_start_beep" yaml:"tx_start_beep"`
	RogerBeep         uint8  `json:"roger_beep" yaml:"roger_beep"`
	CallMicGain       uint8  `json:"call_mic_gain" yaml:"call_mic_gain"`
	CallSpeakerVolume uint8  `json:"call_speaker_volume" yaml:"call_speaker_volume"`
	CallStartBeep     uint8  `json:"call_start_beep" yaml:"call_start_beep"`
	CallEndBeep       uint8  `json:"call_end_beep" yaml:"call_end_beep"`
	DigitalSquelch    uint8  `json:"digital_squelch" yaml:"digital_squelch"`

	// DMR
	RemoteControl       uint8  `json:"remote_control" yaml:"remote_control"`
	GroupCallHangTime   uint16 `json:"group_call_hang_time" yaml:"group_call_hang_time"`     // ms
	PrivateCallHangTime uint16 `json:"private_call_hang_time" yaml:"private_call_hang_time"` // ms
	GroupIDDisplay      uint8  `json:"group_id_display" yaml:"group_id_display"`
	CallTimingDisplay   uint8  `json:"call_timing_display" yaml:"call_timing_display"`

	// Advanced
	NOAAChannel      uint8  `json:"noaa_channel" yaml:"noaa_channel"`
	SpectrumScanMode uint8  `json:"spectrum_scan_mode" yaml:"spectrum_scan_mode"`
	DetectionRange   uint16 `json:"detection_range" yaml:"detection_range"`
	RelayDelay       uint8  `json:"relay_delay" yaml:"relay_delay"`
	GlitchFilter     uint8  `json:"glitch_filter" yaml:"glitch_filter"`

	// DTMF
	DTMFSendDelay       uint8                 `json:"dtmf_send_delay" yaml:"dtmf_send_delay"`
	DTMFSendDuration    uint8                 `json:"dtmf_send_duration" yaml:"dtmf_send_duration"`
	DTMFSendInterval    uint8                 `json:"dtmf_send_interval" yaml:"dtmf_send_interval"`
	DTMFSendMode        uint8                 `json:"dtmf_send_mode" yaml:"dtmf_send_mode"`
	DTMFSendSelect      uint8                 `json:"dtmf_send_select" yaml:"dtmf_send_select"`
	DTMFDisplayEnable   uint8                 `json:"dtmf_display_enable" yaml:"dtmf_display_enable"`
	DTMFGain            uint8                 `json:"dtmf_gain" yaml:"dtmf_gain"`
	DTMFDecodeThreshold uint8                 `json:"dtmf_decode_threshold" yaml:"dtmf_decode_threshold"`
	DTMFRemoteControl   uint8                 `json:"dtmf_remote_control" yaml:"dtmf_remote_control"`
	DTMFRemoteCalTime   uint8                 `json:"dtmf_remote_cal_time" yaml:"dtmf_remote_cal_time"`
	DTMFCodes           [DTMFCodeCount]string `json:"dtmf_codes" yaml:"dtmf_codes"`

	// Extension is the custom-firmware area before the magic marker. It is
	// carried through unchanged.
	Extension HexBytes `json:"extension,omitempty" yaml:"extension,omitempty"`

	Beta41 bool `json:"beta41" yaml:"beta41"`

	// raw is the block the settings were decoded from. Bytes not covered
	// by a field are written back from it.
	raw []byte
}

// NewRadioSettings returns factory defaults over an erased block.
func NewRadioSettings() *RadioSettings {
	return &RadioSettings{
		LEDOnOff:            1,
		BacklightBrightness: 2,
		LCDContrast:         7,
		VFOStep:             6,
		SquelchLevel:        5,
		TxMicGain:           5,
		RxSpeakerVolume:     5,
		CallMicGain:         5,
		CallSpeakerVolume:   5,
		DigitalSquelch:      5,
		GroupCallHangTime:   3000,
		PrivateCallHangTime: 3000,
	}
}

// Raw returns a copy of the block the settings were decoded from, or nil.
func (s *RadioSettings) Raw() []byte {
	if s.raw == nil {
		return nil
	}
	return append([]byte(nil), s.raw...)
}

type u8Field struct {
	off   int
	field func(*RadioSettings) *uint8
}

type u16Field struct {
	off   int
	field func(*RadioSettings) *uint16
}

var settingsU8Fields = []u8Field{
	{16, func(s *RadioSettings) *uint8 { return &s.StartupPictureEnable }},
	{17, func(s *RadioSettings) *uint8 { return &s.TxProtection }},
	{19, func(s *RadioSettings) *uint8 { return &s.StartupBeepEnable }},
	{20, func(s *RadioSettings) *uint8 { return &s.StartupLabelEnable }},
	{27, func(s *RadioSettings) *uint8 { return &s.PasswordEnable }},
	{92, func(s *RadioSettings) *uint8 { return &s.VoicePrompt }},
	{93, func(s *RadioSettings) *uint8 { return &s.KeyBeep }},
	{94, func(s *RadioSettings) *uint8 { return &s.KeyLock }},
	{95, func(s *RadioSettings) *uint8 { return &s.LockTimer }},
	{96, func(s *RadioSettings) *uint8 { return &s.LEDOnOff }},
	{97, func(s *RadioSettings) *uint8 { return &s.BacklightBrightness }},
	{98, func(s *RadioSettings) *uint8 { return &s.LEDTimer }},
	{99, func(s *RadioSettings) *uint8 { return &s.PowerSaveMode }},
	{100, func(s *RadioSettings) *uint8 { return &s.PowerSaveStart }},
	{101, func(s *RadioSettings) *uint8 { return &s.MenuTimer }},
	{102, func(s *RadioSettings) *uint8 { return &s.DualWatch }},
	{103, func(s *RadioSettings) *uint8 { return &s.Talkaround }},
	{104, func(s *RadioSettings) *uint8 { return &s.AlarmType }},
	{126, func(s *RadioSettings) *uint8 { return &s.TxPriorityGlobal }},
	{127, func(s *RadioSettings) *uint8 { return &s.MainPTT }},
	{128, func(s *RadioSettings) *uint8 { return &s.VFOStep }},
	{131, func(s *RadioSettings) *uint8 { return &s.MainBand }},
	{132, func(s *RadioSettings) *uint8 { return &s.WorkModeA }},
	{133, func(s *RadioSettings) *uint8 { return &s.DisplayModeA }},
	{134, func(s *RadioSettings) *uint8 { return &s.ZoneA }},
	{137, func(s *RadioSettings) *uint8 { return &s.WorkModeB }},
	{138, func(s *RadioSettings) *uint8 { return &s.DisplayModeB }},
	{139, func(s *RadioSettings) *uint8 { return &s.ZoneB }},
	{162, func(s *RadioSettings) *uint8 { return &s.ScanDirection }},
	{163, func(s *RadioSettings) *uint8 { return &s.ScanMode }},
	{164, func(s *RadioSettings) *uint8 { return &s.ScanReturn }},
	{165, func(s *RadioSettings) *uint8 { return &s.ScanDwell }},
	{170, func(s *RadioSettings) *uint8 { return &s.KeyFS1Short }},
	{171, func(s *RadioSettings) *uint8 { return &s.KeyFS1Long }},
	{172, func(s *RadioSettings) *uint8 { return &s.KeyFS2Short }},
	{173, func(s *RadioSettings) *uint8 { return &s.KeyFS2Long }},
	{174, func(s *RadioSettings) *uint8 { return &s.KeyAlarmShort }},
	{175, func(s *RadioSettings) *uint8 { return &s.KeyAlarmLong }},
	{233, func(s *RadioSettings) *uint8 { return &s.LCDContrast }},
	{234, func(s *RadioSettings) *uint8 { return &s.DisplayLines }},
	{235, func(s *RadioSettings) *uint8 { return &s.DualDisplayMode }},
	{258, func(s *RadioSettings) *uint8 { return &s.SquelchLevel }},
	{261, func(s *RadioSettings) *uint8 { return &s.TxMicGain }},
	{262, func(s *RadioSettings) *uint8 { return &s.RxSpeakerVolume }},
	{267, func(s *RadioSettings) *uint8 { return &s.TxStartBeep }},
	{268, func(s *RadioSettings) *uint8 { return &s.RogerBeep }},
	{272, func(s *RadioSettings) *uint8 { return &s.NOAAChannel }},
	{273, func(s *RadioSettings) *uint8 { return &s.SpectrumScanMode }},
	{276, func(s *RadioSettings) *uint8 { return &s.RelayDelay }},
	{388, func(s *RadioSettings) *uint8 { return &s.RemoteControl }},
	{391, func(s *RadioSettings) *uint8 { return &s.CallMicGain }},
	{392, func(s *RadioSettings) *uint8 { return &s.CallSpeakerVolume }},
	{397, func(s *RadioSettings) *uint8 { return &s.CallStartBeep }},
	{398, func(s *RadioSettings) *uint8 { return &s.CallEndBeep }},
	{400, func(s *RadioSettings) *uint8 { return &s.GroupIDDisplay }},
	{403, func(s *RadioSettings) *uint8 { return &s.DigitalSquelch }},
	{404, func(s *RadioSettings) *uint8 { return &s.CallTimingDisplay }},
	{512, func(s *RadioSettings) *uint8 { return &s.DTMFSendDelay }},
	{513, func(s *RadioSettings) *uint8 { return &s.DTMFSendDuration }},
	{514, func(s *RadioSettings) *uint8 { return &s.DTMFSendInterval }},
	{515, func(s *RadioSettings) *uint8 { return &s.DTMFSendMode }},
	{516, func(s *RadioSettings) *uint8 { return &s.DTMFSendSelect }},
	{517, func(s *RadioSettings) *uint8 { return &s.DTMFDisplayEnable }},
	{518, func(s *RadioSettings) *uint8 { return &s.DTMFGain }},
	{519, func(s *RadioSettings) *uint8 { return &s.DTMFDecodeThreshold }},
	{520, func(s *RadioSettings) *uint8 { return &s.DTMFRemoteControl }},
	{521, func(s *RadioSettings) *uint8 { return &s.DTMFRemoteCalTime }},
	{842, func(s *RadioSettings) *uint8 { return &s.GlitchFilter }},
}

var settingsU16Fields = []u16Field{
	{23, func(s *RadioSettings) *uint16 { return &s.StartupDisplayLine }},
	{25, func(s *RadioSettings) *uint16 { return &s.StartupDisplayColumn }},
	{135, func(s *RadioSettings) *uint16 { return &s.ChannelA }},
	{140, func(s *RadioSettings) *uint16 { return &s.ChannelB }},
	{256, func(s *RadioSettings) *uint16 { return &s.ToneFrequency }},
	{274, func(s *RadioSettings) *uint16 { return &s.DetectionRange }},
	{389, func(s *RadioSettings) *uint16 { return &s.GroupCallHangTime }},
	{395, func(s *RadioSettings) *uint16 { return &s.PrivateCallHangTime }},
}

// DecodeSettings parses a CFG block.
func DecodeSettings(block []byte) (*RadioSettings, error) {
	if len(block) != CFGSize {
		return nil, fmt.Errorf("invalid settings block size: %d (expected %d)", len(block), CFGSize)
	}

	s := &RadioSettings{raw: append([]byte(nil), block...)}

	s.StartupPassword = gbk.Decode(block[settingsPasswordOffset : settingsPasswordOffset+settingsPasswordSize])
	s.StartupMessage = gbk.Decode(block[settingsMessageOffset : settingsMessageOffset+settingsMessageSize])
	s.RadioName = gbk.Decode(block[settingsNameOffset : settingsNameOffset+settingsNameSize])
	s.RadioID = bcd.Decode(block[settingsRadioIDOffset : settingsRadioIDOffset+bcd.Size])

	for _, f := range settingsU8Fields {
		*f.field(s) = block[f.off]
	}
	for _, f := range settingsU16Fields {
		*f.field(s) = binary.LittleEndian.Uint16(block[f.off:])
	}

	s.APOEnabled = block[105] == 1
	s.RadioTimeSeconds = binary.LittleEndian.Uint32(block[settingsTimeOffset:])

	for i := range s.Clocks {
		off := settingsClockOffset + i*3
		s.Clocks[i] = Clock{Mode: block[off], Hour: block[off+1], Minute: block[off+2]}
	}
	for i := range s.FreqLocks {
		off := settingsFreqLockOffset + i*5
		s.FreqLocks[i] = FreqLock{
			Mode:  block[off],
			Start: binary.LittleEndian.Uint16(block[off+1:]),
			End:   binary.LittleEndian.Uint16(block[off+3:]),
		}
	}
	copy(s.NumericKeys[:], block[settingsNumKeyOffset:settingsNumKeyOffset+len(s.NumericKeys)])

	for i := range s.DTMFCodes {
		off := dtmfCodesOffset + i*DTMFCodeSlotSize
		s.DTMFCodes[i] = decodeDTMFCode(block[off : off+DTMFCodeSlotSize])
	}

	s.Extension = append([]byte(nil), block[ExtensionOffset:ExtensionOffset+ExtensionSize]...)
	s.Beta41 = HasBeta41Magic(block)

	return s, nil
}

// EncodeSettings writes s over the block it was decoded from, or over an
// erased block for settings built in memory.
func EncodeSettings(s *RadioSettings) []byte {
	block := make([]byte, CFGSize)
	if len(s.raw) == CFGSize {
		copy(block, s.raw)
	} else {
		fill(block, empty8)
	}

	block[SettingsSignatureOffset] = settingsSignature0
	block[SettingsSignatureOffset+1] = settingsSignature1

	gbk.Put(block[settingsPasswordOffset:settingsPasswordOffset+settingsPasswordSize], s.StartupPassword)
	gbk.Put(block[settingsMessageOffset:settingsMessageOffset+settingsMessageSize], s.StartupMessage)
	gbk.Put(block[settingsNameOffset:settingsNameOffset+settingsNameSize], s.RadioName)
	bcd.Put(block[settingsRadioIDOffset:], s.RadioID)

	for _, f := range settingsU8Fields {
		block[f.off] = *f.field(s)
	}
	for _, f := range settingsU16Fields {
		binary.LittleEndian.PutUint16(block[f.off:], *f.field(s))
	}

	block[105] = boolByte(s.APOEnabled, 1, 0)
	binary.LittleEndian.PutUint32(block[settingsTimeOffset:], s.RadioTimeSeconds)

	for i, c := range s.Clocks {
		off := settingsClockOffset + i*3
		block[off], block[off+1], block[off+2] = c.Mode, c.Hour, c.Minute
	}
	for i, l := range s.FreqLocks {
		off := settingsFreqLockOffset + i*5
		block[off] = l.Mode
		binary.LittleEndian.PutUint16(block[off+1:], l.Start)
		binary.LittleEndian.PutUint16(block[off+3:], l.End)
	}
	copy(block[settingsNumKeyOffset:], s.NumericKeys[:])

	for i, code := range s.DTMFCodes {
		off := dtmfCodesOffset + i*DTMFCodeSlotSize
		slot := block[off : off+DTMFCodeSlotSize]
		if decodeDTMFCode(slot) == code {
			continue
		}
		encodeDTMFCode(slot, code)
	}

	if len(s.Extension) == ExtensionSize {
		copy(block[ExtensionOffset:], s.Extension)
	}

	if s.Beta41 {
		copy(block[Beta41MagicOffset:], Beta41Magic)
	} else if HasBeta41Magic(block) {
		fill(block[Beta41MagicOffset:], empty8)
	}
	return block
}

// HasBeta41Magic reports whether a CFG block carries the beta41 marker.
func HasBeta41Magic(block []byte) bool {
	if len(block) < CFGSize {
		return false
	}
	return string(block[Beta41MagicOffset:CFGSize]) == Beta41Magic
}

// A DTMF slot holds up to 15 code characters followed by a length byte.
// The length byte is authoritative: an erased or out-of-range length means
// no code is stored.
func decodeDTMFCode(slot []byte) string {
	n := int(slot[DTMFCodeMaxLen])
	if n > DTMFCodeMaxLen {
		return ""
	}
	return string(slot[:n])
}

func encodeDTMFCode(slot []byte, code string) {
	if len(code) > DTMFCodeMaxLen {
		code = code[:DTMFCodeMaxLen]
	}
	fill(slot, empty8)
	copy(slot, code)
	if code == "" {
		return
	}
	slot[DTMFCodeMaxLen] = byte(len(code))
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

func boolByte(v bool, t, f byte) byte {
	if v {
		return t
	}
	return f
}
