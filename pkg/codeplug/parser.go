package codeplug

import (
	"fmt"

	"github.com/dbehnke/rt4d-cps/pkg/fm"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
)

// Parser decodes codeplug images.
type Parser struct {
	log *logger.Logger
}

// NewParser creates a parser that reports malformed slots to log. A nil
// logger discards them.
func NewParser(log *logger.Logger) *Parser {
	if log == nil {
		log = logger.Nop()
	}
	return &Parser{log: log.WithComponent("codeplug")}
}

// Parse decodes a complete image without logging.
func Parse(data []byte) (*Codeplug, error) {
	return NewParser(nil).Parse(data)
}

// rawRefs holds the numeric references read in the first pass, keyed by the
// entity that carried them.
type rawRefs struct {
	channels   map[*Channel]ChannelRefs
	groupLists map[*GroupList][]int
	zones      map[*Zone][]int
}

// slotIDs maps on-disk numbering to the IDs assigned in the first pass.
type slotIDs struct {
	contacts   map[int]ID // 1-based index
	groupLists map[int]ID // 1-based index
	keys       map[int]ID // 0-based slot
	channels   map[int]ID // 0-based slot
}

// Parse decodes a complete image. Only a wrong image size is fatal; a slot
// that fails to decode is logged and treated as empty, and references to
// empty slots resolve to none.
func (p *Parser) Parse(data []byte) (*Codeplug, error) {
	if len(data) != ImageSize {
		return nil, fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidImageSize, len(data), ImageSize)
	}

	cp := &Codeplug{}
	settings, err := DecodeSettings(data[CFGOffset : CFGOffset+CFGSize])
	if err != nil {
		p.log.Warn("Settings block unreadable, using defaults", logger.Error(err))
		settings = NewRadioSettings()
	}
	cp.Settings = settings
	layout := cp.Layout()

	raw := rawRefs{
		channels:   make(map[*Channel]ChannelRefs),
		groupLists: make(map[*GroupList][]int),
		zones:      make(map[*Zone][]int),
	}
	ids := slotIDs{
		contacts:   make(map[int]ID),
		groupLists: make(map[int]ID),
		keys:       make(map[int]ID),
		channels:   make(map[int]ID),
	}

	p.parseChannels(cp, data, layout, &raw, &ids)
	p.parseContacts(cp, data, &ids)
	p.parseGroupLists(cp, data, layout, &raw, &ids)
	p.parseEncryptionKeys(cp, data, &ids)
	p.parseZones(cp, data, &raw)
	cp.FM = fm.Parse(data[FMOffset : FMOffset+FMSize])

	p.resolve(cp, &raw, &ids)

	p.log.Debug("Parsed codeplug",
		logger.String("layout", layout.String()),
		logger.Int("channels", len(cp.Channels)),
		logger.Int("contacts", len(cp.Contacts)),
		logger.Int("group_lists", len(cp.GroupLists)),
		logger.Int("zones", len(cp.Zones)),
		logger.Int("keys", len(cp.EncryptionKeys)))

	return cp, nil
}

func (p *Parser) parseChannels(cp *Codeplug, data []byte, layout Layout, raw *rawRefs, ids *slotIDs) {
	for slot := 0; slot < ChannelCount; slot++ {
		off := ChannelOffset + slot*ChannelSize
		ch, refs, err := DecodeChannel(data[off:off+ChannelSize], layout)
		if err != nil {
			p.slotWarning("channel", slot, off, err)
			continue
		}
		if ch == nil || ch.IsEmpty() {
			continue
		}
		ch.ID = NewID()
		ch.Position = slot + 1
		cp.Channels = append(cp.Channels, ch)
		raw.channels[ch] = refs
		ids.channels[slot] = ch.ID
	}
}

func (p *Parser) parseContacts(cp *Codeplug, data []byte, ids *slotIDs) {
	for slot := 0; slot < ContactCount; slot++ {
		off := ContactOffset + slot*ContactSize
		c, err := DecodeContact(data[off : off+ContactSize])
		if err != nil {
			p.slotWarning("contact", slot, off, err)
			continue
		}
		if c == nil {
			continue
		}
		c.ID = NewID()
		c.Index = slot + 1
		cp.Contacts = append(cp.Contacts, c)
		ids.contacts[c.Index] = c.ID
	}
}

func (p *Parser) parseGroupLists(cp *Codeplug, data []byte, layout Layout, raw *rawRefs, ids *slotIDs) {
	size := layout.GroupListSize()
	for slot := 0; slot < layout.GroupListCount(); slot++ {
		off := GroupListOffset + slot*size
		g, members, err := DecodeGroupList(data[off:off+size], layout)
		if err != nil {
			p.slotWarning("group list", slot, off, err)
			continue
		}
		if g == nil {
			continue
		}
		g.ID = NewID()
		g.Index = slot + 1
		cp.GroupLists = append(cp.GroupLists, g)
		raw.groupLists[g] = members
		ids.groupLists[g.Index] = g.ID
	}
}

func (p *Parser) parseEncryptionKeys(cp *Codeplug, data []byte, ids *slotIDs) {
	for slot := 0; slot < EncryptionKeyCount; slot++ {
		off := EncryptionKeyOffset + slot*EncryptionKeySize
		k, err := DecodeEncryptionKey(data[off : off+EncryptionKeySize])
		if err != nil {
			p.slotWarning("encryption key", slot, off, err)
			continue
		}
		if k == nil {
			continue
		}
		k.ID = NewID()
		k.Index = slot
		cp.EncryptionKeys = append(cp.EncryptionKeys, k)
		ids.keys[slot] = k.ID
	}
}

func (p *Parser) parseZones(cp *Codeplug, data []byte, raw *rawRefs) {
	for slot := 0; slot < ZoneCount; slot++ {
		off := ZoneOffset + slot*ZoneSize
		z, channels, err := DecodeZone(data[off : off+ZoneSize])
		if err != nil {
			p.slotWarning("zone", slot, off, err)
			continue
		}
		if z == nil {
			continue
		}
		if n := claimedChannels(data[off:]); n > ZoneMaxChannels {
			p.log.Warn("Truncating zone channel list",
				logger.Int("slot", slot),
				logger.String("zone", z.Name),
				logger.Int("count", n),
				logger.Int("max", ZoneMaxChannels))
		}
		z.ID = NewID()
		z.Index = slot
		cp.Zones = append(cp.Zones, z)
		raw.zones[z] = channels
	}
}

// resolve rewrites the first pass's numeric references into IDs. References
// to slots that held nothing are dropped.
func (p *Parser) resolve(cp *Codeplug, raw *rawRefs, ids *slotIDs) {
	dangling := 0

	for _, ch := range cp.Channels {
		refs := raw.channels[ch]
		if refs.ContactSlot != NoRef {
			if id, ok := ids.contacts[refs.ContactSlot+1]; ok {
				ch.ContactID = id
			} else {
				dangling++
			}
		}
		if refs.GroupListIndex != NoRef {
			if id, ok := ids.groupLists[refs.GroupListIndex]; ok {
				ch.GroupListID = id
			} else {
				dangling++
			}
		}
		if refs.KeyIndex != NoRef {
			if id, ok := ids.keys[refs.KeyIndex]; ok {
				ch.EncryptionKeyID = id
			} else {
				dangling++
			}
		}
	}

	for _, g := range cp.GroupLists {
		for _, idx := range raw.groupLists[g] {
			id, ok := ids.contacts[idx]
			if !ok {
				dangling++
				continue
			}
			g.AddContact(id, cp.Layout())
		}
	}

	for _, z := range cp.Zones {
		for _, slot := range raw.zones[z] {
			id, ok := ids.channels[slot]
			if !ok {
				dangling++
				continue
			}
			z.AddChannel(id)
		}
	}

	if dangling > 0 {
		p.log.Debug("Dropped dangling references", logger.Int("count", dangling))
	}
}

func (p *Parser) slotWarning(kind string, slot, off int, err error) {
	p.log.Warn("Skipping malformed "+kind,
		logger.Int("slot", slot),
		logger.Hex("offset", uint32(off)),
		logger.Error(err))
}
