package uart

import (
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/messages"
)

// SPIRegion is a writable area of the radio's SPI flash. Writes address it
// by ID; reads use the absolute address.
type SPIRegion struct {
	Name    string
	ID      byte
	Address uint32
	Size    int
}

// SPIRegions lists the flash regions the CPS reads and writes.
var SPIRegions = []SPIRegion{
	{"calibration", 0x40, 0x000000, 0x001000},
	{"main_settings", 0x90, 0x002000, 0x001000},
	{"channels", 0x91, 0x004000, 0x00C000},
	{"zones", 0x92, 0x01C000, 0x020000},
	{"contacts", 0x93, 0x05C000, 0x010000},
	{"groups", 0x94, 0x07C000, 0x003000},
	{"dmr_keys", 0x95, 0x082000, 0x003000},
	{"call_log", 0x96, 0x088000, 0x00C000},
	{"default_sms", 0x97, 0x094000, 0x001000},
	{"schedules", 0x98, 0x0C6000, 0x008000},
	{"fm_settings", 0x99, 0x0D6000, 0x001000},
}

// RegionByName looks up an SPI region.
func RegionByName(name string) (SPIRegion, error) {
	for _, r := range SPIRegions {
		if r.Name == name {
			return r, nil
		}
	}
	return SPIRegion{}, fmt.Errorf("unknown SPI region %q", name)
}

// MessageRegion returns the flash region holding messages of type t.
func MessageRegion(t messages.Type) (SPIRegion, error) {
	r, ok := messages.RegionFor(t)
	if !ok {
		return SPIRegion{}, fmt.Errorf("no flash region for message type %d", t)
	}
	return SPIRegion{Name: r.Type.String(), ID: r.RegionID, Address: r.Address, Size: r.Size()}, nil
}

// imageSection maps one SPI region onto a slice of a codeplug image.
type imageSection struct {
	region string
	offset int
	size   int
}

// imageLayout is the order regions are transferred in for a full image.
var imageLayout = []imageSection{
	{"main_settings", codeplug.CFGOffset, codeplug.CFGSize},
	{"channels", codeplug.ChannelOffset, codeplug.ChannelCount * codeplug.ChannelSize},
	{"contacts", codeplug.ContactOffset, codeplug.ContactCount * codeplug.ContactSize},
	{"groups", codeplug.GroupListOffset, codeplug.GroupListRegionSize},
	{"dmr_keys", codeplug.EncryptionKeyOffset, codeplug.EncryptionKeyCount * codeplug.EncryptionKeySize},
	{"zones", codeplug.ZoneOffset, codeplug.ZoneCount * codeplug.ZoneSize},
	{"fm_settings", codeplug.FMOffset, codeplug.FMSize},
}

// ImageBlocks is the number of 1 KB blocks a full image transfer moves.
func ImageBlocks() int {
	n := 0
	for _, s := range imageLayout {
		n += blocksFor(s.size)
	}
	return n
}

// Settings banks. The radio keeps two copies of the CFG block; the one
// carrying the beta41 marker is live.
const (
	SettingsBank0 uint32 = 0x002000
	SettingsBank1 uint32 = 0x003000
)

func blocksFor(size int) int {
	return (size + BlockSize - 1) / BlockSize
}
