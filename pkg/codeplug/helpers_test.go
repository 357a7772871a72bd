package codeplug

import (
	"sort"
	"testing"
)

// erasedImage returns a full image with every byte erased.
func erasedImage() []byte {
	img := make([]byte, ImageSize)
	fill(img, empty8)
	return img
}

// sampleCodeplug builds a small codeplug exercising every collection and
// reference kind.
func sampleCodeplug(t *testing.T, beta41 bool) *Codeplug {
	t.Helper()

	cp := New()
	cp.Settings.Beta41 = beta41
	cp.Settings.RadioName = "RT4D"
	cp.Settings.RadioID = 3112345

	tg91 := NewContact("WW", ContactGroup, 91)
	local := NewContact("Local", ContactGroup, 9)
	all := NewContact("All", ContactAllCall, 0)
	pc := NewContact("N0CALL", ContactPrivate, 3112000)
	cp.Contacts = append(cp.Contacts, tg91, local, all, pc)

	rx := NewGroupList("Main RX")
	rx.AddContact(tg91.ID, cp.Layout())
	rx.AddContact(local.ID, cp.Layout())
	cp.GroupLists = append(cp.GroupLists, rx)

	key := NewEncryptionKey("Ops", EncryptionAES128, "00112233445566778899AABBCCDDEEF0")
	cp.EncryptionKeys = append(cp.EncryptionKeys, key)

	dmr := NewChannel("DMR Rptr", 439.125, 431.525)
	dmr.Mode = ModeDigital
	dmr.Position = 1
	dmr.TimeSlot = 1
	dmr.ColorCode = 7
	dmr.ContactID = tg91.ID
	dmr.GroupListID = rx.ID
	dmr.EncryptionKeyID = key.ID

	fmCh := NewChannel("2m Simplex", 146.52, 146.52)
	fmCh.Position = 2
	fmCh.RxTone = "100.0"
	fmCh.TxTone = "D023N"
	fmCh.Bandwidth = BandwidthNarrow

	own := NewChannel("Own ID", 438.5, 438.5)
	own.Mode = ModeDigital
	own.UseRadioID = false
	own.DMRID = 3112999
	own.ContactID = pc.ID

	cp.Channels = append(cp.Channels, dmr, fmCh, own)

	z := NewZone("Home")
	z.AddChannel(dmr.ID)
	z.AddChannel(fmCh.ID)
	z.AddChannel(own.ID)
	cp.Zones = append(cp.Zones, z)

	return cp
}

// channelView is a channel with references replaced by the referenced
// entity's name, so codeplugs can be compared independent of IDs.
type channelView struct {
	Channel
	Contact   string
	GroupList string
	Key       string
}

type codeplugView struct {
	Channels   []channelView
	Contacts   []Contact
	GroupLists map[string][]string
	Zones      map[string][]string
	Keys       []EncryptionKey
}

func viewOf(cp *Codeplug) codeplugView {
	v := codeplugView{GroupLists: map[string][]string{}, Zones: map[string][]string{}}

	for _, ch := range cp.Channels {
		cv := channelView{Channel: modeFields(*ch)}
		cv.ID, cv.ContactID, cv.GroupListID, cv.EncryptionKeyID = "", "", "", ""
		if ch.IsDigital() {
			if c := cp.ContactByID(ch.ContactID); c != nil {
				cv.Contact = c.Name
			}
			if g := cp.GroupListByID(ch.GroupListID); g != nil {
				cv.GroupList = g.Name
			}
			if k := cp.EncryptionKeyByID(ch.EncryptionKeyID); k != nil {
				cv.Key = k.Alias
			}
		}
		v.Channels = append(v.Channels, cv)
	}
	sort.Slice(v.Channels, func(i, j int) bool { return v.Channels[i].Position < v.Channels[j].Position })

	for _, c := range cp.Contacts {
		cc := *c
		cc.ID, cc.Index = "", 0
		v.Contacts = append(v.Contacts, cc)
	}
	for _, g := range cp.GroupLists {
		var names []string
		for _, id := range g.Contacts {
			names = append(names, cp.ContactByID(id).Name)
		}
		v.GroupLists[g.Name] = names
	}
	for _, z := range cp.Zones {
		var names []string
		for _, id := range z.Channels {
			names = append(names, cp.ChannelByID(id).Name)
		}
		v.Zones[z.Name] = names
	}
	for _, k := range cp.EncryptionKeys {
		kk := *k
		kk.ID, kk.Index = "", 0
		v.Keys = append(v.Keys, kk)
	}
	return v
}

// modeFields zeroes the fields a channel's mode does not store.
func modeFields(ch Channel) Channel {
	if ch.IsDigital() {
		ch.RxTone, ch.TxTone = "", ""
		ch.Scramble, ch.AnalogBusyLock, ch.AnalogTOT, ch.TailTone, ch.CTDCSSelect = 0, 0, 0, 0, 0
		ch.Modulation, ch.Bandwidth = ModulationFM, BandwidthWide
		ch.MuteCodes = [3]uint32{}
		return ch
	}
	ch.TimeSlot, ch.ColorCode, ch.DCDM, ch.BusyLock, ch.TOT = 0, 0, 0, 0, 0
	ch.Monitor, ch.Alarm, ch.UseRadioID = false, false, false
	ch.DMRID = 0
	return ch
}
