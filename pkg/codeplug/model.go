package codeplug

import (
	"github.com/google/uuid"

	"github.com/dbehnke/rt4d-cps/pkg/fm"
	"github.com/dbehnke/rt4d-cps/pkg/gbk"
)

// ID identifies an entity for the lifetime of an in-memory codeplug.
// Slot numbers change on every save; IDs do not.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// ChannelMode is the channel operating mode
type ChannelMode uint8

const (
	ModeDigital ChannelMode = 0x00
	ModeAnalog  ChannelMode = 0x01
)

func (m ChannelMode) String() string {
	if m == ModeAnalog {
		return "analog"
	}
	return "digital"
}

// PowerLevel is the transmit power
type PowerLevel uint8

const (
	PowerLow  PowerLevel = 0x00
	PowerHigh PowerLevel = 0x01
)

// ScanMode controls scan list membership
type ScanMode uint8

const (
	ScanAdd    ScanMode = 0x00
	ScanRemove ScanMode = 0x80
)

// Modulation is the analog demodulator
type Modulation uint8

const (
	ModulationFM  Modulation = 0x00
	ModulationAM  Modulation = 0x01
	ModulationSSB Modulation = 0x02
)

func (m Modulation) String() string {
	switch m {
	case ModulationAM:
		return "AM"
	case ModulationSSB:
		return "SSB"
	default:
		return "FM"
	}
}

// Bandwidth is the analog channel bandwidth
type Bandwidth uint8

const (
	BandwidthWide   Bandwidth = 0x00
	BandwidthNarrow Bandwidth = 0x01
)

// ContactType is the DMR call type of a contact
type ContactType uint8

const (
	ContactPrivate ContactType = 0x00
	ContactGroup   ContactType = 0x01
	ContactAllCall ContactType = 0x02
)

func (t ContactType) String() string {
	switch t {
	case ContactPrivate:
		return "private"
	case ContactAllCall:
		return "all"
	default:
		return "group"
	}
}

// AllCallID is the DMR ID every all-call contact uses.
const AllCallID = 16777215

// MaxDMRID is the largest 24-bit DMR ID.
const MaxDMRID = 16777215

// EncryptionType is the key algorithm
type EncryptionType uint8

const (
	EncryptionARC    EncryptionType = 0x00
	EncryptionAES128 EncryptionType = 0x01
	EncryptionAES256 EncryptionType = 0x02
)

func (t EncryptionType) String() string {
	switch t {
	case EncryptionAES128:
		return "AES-128"
	case EncryptionAES256:
		return "AES-256"
	default:
		return "ARC"
	}
}

// KeyLength returns the number of hex digits a key of this type holds.
func (t EncryptionType) KeyLength() int {
	switch t {
	case EncryptionAES128:
		return 32
	case EncryptionAES256:
		return 64
	default:
		return 10
	}
}

// Channel is one memory channel.
type Channel struct {
	ID       ID          `json:"id" yaml:"id"`
	Position int         `json:"position" yaml:"position"` // 1..ChannelCount, 0 = assign on save
	Name     string      `json:"name" yaml:"name"`
	RxFreq   uint32      `json:"rx_freq" yaml:"rx_freq"` // 10 Hz units
	TxFreq   uint32      `json:"tx_freq" yaml:"tx_freq"`
	Mode     ChannelMode `json:"mode" yaml:"mode"`
	Power    PowerLevel  `json:"power" yaml:"power"`
	Scan     ScanMode    `json:"scan" yaml:"scan"`
	Enabled  bool        `json:"enabled" yaml:"enabled"`

	// Digital
	TimeSlot        uint8  `json:"time_slot" yaml:"time_slot"`
	ColorCode       uint8  `json:"color_code" yaml:"color_code"`
	DCDM            uint8  `json:"dcdm" yaml:"dcdm"`
	Monitor         bool   `json:"monitor" yaml:"monitor"`
	BusyLock        uint8  `json:"busy_lock" yaml:"busy_lock"`
	TOT             uint8  `json:"tot" yaml:"tot"`
	Alarm           bool   `json:"alarm" yaml:"alarm"`
	DMRID           uint32 `json:"dmr_id" yaml:"dmr_id"`
	UseRadioID      bool   `json:"use_radio_id" yaml:"use_radio_id"`
	ContactID       ID     `json:"contact_id,omitempty" yaml:"contact_id,omitempty"`
	GroupListID     ID     `json:"group_list_id,omitempty" yaml:"group_list_id,omitempty"`
	EncryptionKeyID ID     `json:"encryption_key_id,omitempty" yaml:"encryption_key_id,omitempty"`

	// Analog
	RxTone         string     `json:"rx_tone,omitempty" yaml:"rx_tone,omitempty"`
	TxTone         string     `json:"tx_tone,omitempty" yaml:"tx_tone,omitempty"`
	Scramble       uint8      `json:"scramble" yaml:"scramble"`
	Modulation     Modulation `json:"modulation" yaml:"modulation"`
	Bandwidth      Bandwidth  `json:"bandwidth" yaml:"bandwidth"`
	AnalogBusyLock uint8      `json:"analog_busy_lock" yaml:"analog_busy_lock"`
	AnalogTOT      uint8      `json:"analog_tot" yaml:"analog_tot"`
	TailTone       uint8      `json:"tail_tone" yaml:"tail_tone"`
	CTDCSSelect    uint8      `json:"ctdcs_select" yaml:"ctdcs_select"`
	MuteCodes      [3]uint32  `json:"mute_codes" yaml:"mute_codes"`
}

// NewChannel returns an enabled analog channel with a fresh ID.
func NewChannel(name string, rxMHz, txMHz float64) *Channel {
	return &Channel{
		ID:         NewID(),
		Name:       gbk.Truncate(name, NameSize),
		RxFreq:     MHzToFreq(rxMHz),
		TxFreq:     MHzToFreq(txMHz),
		Mode:       ModeAnalog,
		Power:      PowerHigh,
		Enabled:    true,
		ColorCode:  1,
		UseRadioID: true,
	}
}

// IsEmpty reports whether the channel occupies no slot.
func (c *Channel) IsEmpty() bool {
	return !c.Enabled || c.RxFreq == 0
}

func (c *Channel) IsDigital() bool { return c.Mode == ModeDigital }

func (c *Channel) IsAnalog() bool { return c.Mode == ModeAnalog }

// RxMHz returns the receive frequency in MHz.
func (c *Channel) RxMHz() float64 { return FreqToMHz(c.RxFreq) }

// TxMHz returns the transmit frequency in MHz.
func (c *Channel) TxMHz() float64 { return FreqToMHz(c.TxFreq) }

// Contact is a DMR call target.
type Contact struct {
	ID    ID          `json:"id" yaml:"id"`
	Index int         `json:"index" yaml:"index"` // 1-based
	Name  string      `json:"name" yaml:"name"`
	Type  ContactType `json:"type" yaml:"type"`
	DMRID uint32      `json:"dmr_id" yaml:"dmr_id"`
}

// NewContact returns a contact with a fresh ID. All-call contacts always
// carry AllCallID.
func NewContact(name string, typ ContactType, dmrID uint32) *Contact {
	c := &Contact{ID: NewID(), Name: gbk.Truncate(name, NameSize), Type: typ, DMRID: dmrID}
	c.Normalize()
	return c
}

// Normalize applies the all-call ID rule and clamps the ID to 24 bits.
func (c *Contact) Normalize() {
	if c.Type == ContactAllCall {
		c.DMRID = AllCallID
	}
	if c.DMRID > MaxDMRID {
		c.DMRID = MaxDMRID
	}
}

// IsEmpty reports whether the contact occupies no slot.
func (c *Contact) IsEmpty() bool {
	if c.Name == "" {
		return true
	}
	return c.DMRID == 0 && c.Type != ContactAllCall
}

// GroupList is an RX group: an ordered set of contacts.
type GroupList struct {
	ID       ID     `json:"id" yaml:"id"`
	Index    int    `json:"index" yaml:"index"` // 1-based
	Name     string `json:"name" yaml:"name"`
	Contacts []ID   `json:"contacts" yaml:"contacts"`
}

// NewGroupList returns an empty group list with a fresh ID.
func NewGroupList(name string) *GroupList {
	return &GroupList{ID: NewID(), Name: gbk.Truncate(name, GroupListNameSize)}
}

func (g *GroupList) IsEmpty() bool { return g.Name == "" }

// AddContact appends id unless it is already present or the list is full.
func (g *GroupList) AddContact(id ID, layout Layout) bool {
	if len(g.Contacts) >= layout.GroupListCapacity() {
		return false
	}
	for _, existing := range g.Contacts {
		if existing == id {
			return false
		}
	}
	g.Contacts = append(g.Contacts, id)
	return true
}

// RemoveContact drops id from the list.
func (g *GroupList) RemoveContact(id ID) {
	g.Contacts = removeID(g.Contacts, id)
}

// Zone is an ordered set of channels.
type Zone struct {
	ID       ID     `json:"id" yaml:"id"`
	Index    int    `json:"index" yaml:"index"` // 0-based
	Name     string `json:"name" yaml:"name"`
	Channels []ID   `json:"channels" yaml:"channels"`
}

// NewZone returns an empty zone with a fresh ID.
func NewZone(name string) *Zone {
	return &Zone{ID: NewID(), Name: gbk.Truncate(name, NameSize)}
}

func (z *Zone) IsEmpty() bool { return z.Name == "" }

// AddChannel appends id unless it is already present or the zone is full.
func (z *Zone) AddChannel(id ID) bool {
	if len(z.Channels) >= ZoneMaxChannels {
		return false
	}
	for _, existing := range z.Channels {
		if existing == id {
			return false
		}
	}
	z.Channels = append(z.Channels, id)
	return true
}

// RemoveChannel drops id from the zone.
func (z *Zone) RemoveChannel(id ID) {
	z.Channels = removeID(z.Channels, id)
}

// EncryptionKey is a DMR privacy key.
type EncryptionKey struct {
	ID    ID             `json:"id" yaml:"id"`
	Index int            `json:"index" yaml:"index"` // 0-based
	Alias string         `json:"alias" yaml:"alias"`
	Type  EncryptionType `json:"type" yaml:"type"`
	Value string         `json:"value" yaml:"value"` // hex
}

// NewEncryptionKey returns a key with a fresh ID. The value is cut to the
// length the type allows.
func NewEncryptionKey(alias string, typ EncryptionType, value string) *EncryptionKey {
	k := &EncryptionKey{ID: NewID(), Alias: gbk.Truncate(alias, KeyAliasSize), Type: typ}
	k.SetValue(value)
	return k
}

// SetValue stores value as upper-case hex truncated to the key type's
// length. Characters that are not hex digits are dropped.
func (k *EncryptionKey) SetValue(value string) {
	value = normalizeKeyValue(value)
	if n := k.Type.KeyLength(); len(value) > n {
		value = value[:n]
	}
	k.Value = value
}

// SetType changes the algorithm and truncates the value to match.
func (k *EncryptionKey) SetType(t EncryptionType) {
	k.Type = t
	k.SetValue(k.Value)
}

// IsEmpty reports whether the key has no alias or no hex digits to store.
func (k *EncryptionKey) IsEmpty() bool {
	return k.Alias == "" || normalizeKeyValue(k.Value) == ""
}

// Codeplug is the decoded radio configuration.
type Codeplug struct {
	Settings       *RadioSettings   `json:"settings" yaml:"settings"`
	Channels       []*Channel       `json:"channels" yaml:"channels"`
	Contacts       []*Contact       `json:"contacts" yaml:"contacts"`
	GroupLists     []*GroupList     `json:"group_lists" yaml:"group_lists"`
	Zones          []*Zone          `json:"zones" yaml:"zones"`
	EncryptionKeys []*EncryptionKey `json:"encryption_keys" yaml:"encryption_keys"`
	FM             *fm.Settings     `json:"fm" yaml:"fm"`
}

// New returns an empty legacy codeplug.
func New() *Codeplug {
	return &Codeplug{Settings: NewRadioSettings(), FM: fm.NewSettings()}
}

// Layout returns the record layout selected by the settings.
func (cp *Codeplug) Layout() Layout {
	if cp.Settings == nil {
		return LayoutLegacy
	}
	return LayoutFor(cp.Settings.Beta41)
}

func (cp *Codeplug) ChannelByID(id ID) *Channel {
	for _, ch := range cp.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

func (cp *Codeplug) ChannelByPosition(pos int) *Channel {
	for _, ch := range cp.Channels {
		if ch.Position == pos {
			return ch
		}
	}
	return nil
}

func (cp *Codeplug) ContactByID(id ID) *Contact {
	for _, c := range cp.Contacts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (cp *Codeplug) GroupListByID(id ID) *GroupList {
	for _, g := range cp.GroupLists {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (cp *Codeplug) ZoneByID(id ID) *Zone {
	for _, z := range cp.Zones {
		if z.ID == id {
			return z
		}
	}
	return nil
}

func (cp *Codeplug) EncryptionKeyByID(id ID) *EncryptionKey {
	for _, k := range cp.EncryptionKeys {
		if k.ID == id {
			return k
		}
	}
	return nil
}

// RemoveContact deletes a contact and every reference to it.
func (cp *Codeplug) RemoveContact(id ID) {
	cp.Contacts = removeWhere(cp.Contacts, func(c *Contact) bool { return c.ID == id })
	for _, ch := range cp.Channels {
		if ch.ContactID == id {
			ch.ContactID = ""
		}
	}
	for _, g := range cp.GroupLists {
		g.RemoveContact(id)
	}
}

// RemoveChannel deletes a channel and drops it from every zone.
func (cp *Codeplug) RemoveChannel(id ID) {
	cp.Channels = removeWhere(cp.Channels, func(c *Channel) bool { return c.ID == id })
	for _, z := range cp.Zones {
		z.RemoveChannel(id)
	}
}

func removeID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func removeWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, v := range items {
		if !match(v) {
			out = append(out, v)
		}
	}
	return out
}
