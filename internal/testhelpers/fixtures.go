package testhelpers

import (
	"testing"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
)

// SampleCodeplug builds a codeplug with one of each entity and every
// channel reference kind set.
func SampleCodeplug(beta41 bool) *codeplug.Codeplug {
	cp := codeplug.New()
	cp.Settings.Beta41 = beta41
	cp.Settings.RadioName = "RT4D"
	cp.Settings.RadioID = 3112345

	tg := codeplug.NewContact("TG 3100", codeplug.ContactGroup, 3100)
	pc := codeplug.NewContact("N0CALL", codeplug.ContactPrivate, 3112000)
	cp.Contacts = append(cp.Contacts, tg, pc)

	rx := codeplug.NewGroupList("RX")
	rx.AddContact(tg.ID, cp.Layout())
	cp.GroupLists = append(cp.GroupLists, rx)

	key := codeplug.NewEncryptionKey("Net", codeplug.EncryptionARC, "0123456789")
	cp.EncryptionKeys = append(cp.EncryptionKeys, key)

	dmr := codeplug.NewChannel("Repeater", 439.125, 431.525)
	dmr.Mode = codeplug.ModeDigital
	dmr.Position = 1
	dmr.TimeSlot = 1
	dmr.ColorCode = 3
	dmr.ContactID = tg.ID
	dmr.GroupListID = rx.ID
	dmr.EncryptionKeyID = key.ID

	simplex := codeplug.NewChannel("Simplex", 146.52, 146.52)
	simplex.Position = 2
	simplex.RxTone = "88.5"
	simplex.TxTone = "88.5"

	cp.Channels = append(cp.Channels, dmr, simplex)

	z := codeplug.NewZone("Local")
	z.AddChannel(dmr.ID)
	z.AddChannel(simplex.ID)
	cp.Zones = append(cp.Zones, z)

	return cp
}

// SampleImage serializes SampleCodeplug.
func SampleImage(t *testing.T, beta41 bool) []byte {
	t.Helper()
	img, err := codeplug.Serialize(SampleCodeplug(beta41))
	if err != nil {
		t.Fatalf("serialize sample: %v", err)
	}
	return img
}
