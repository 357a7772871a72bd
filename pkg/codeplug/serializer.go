package codeplug

import (
	"fmt"
	"sort"

	"github.com/dbehnke/rt4d-cps/pkg/fm"
)

// plan is the slot assignment for one save. Channels keep their positions
// and everything else is numbered densely in collection order. Placement is
// keyed by entity; references are resolved through the ID maps.
type plan struct {
	layout Layout

	positions map[*Channel]int       // 1-based
	contacts  map[*Contact]int       // 1-based index
	groups    map[*GroupList]int     // 1-based index
	keys      map[*EncryptionKey]int // 0-based slot
	zones     map[*Zone]int          // 0-based slot

	channelSlots map[ID]int // 0-based slot
	contactIdx   map[ID]int
	groupIdx     map[ID]int
	keySlots     map[ID]int
}

func newPlan(cp *Codeplug) (*plan, error) {
	p := &plan{
		layout:       cp.Layout(),
		positions:    make(map[*Channel]int),
		contacts:     make(map[*Contact]int),
		groups:       make(map[*GroupList]int),
		keys:         make(map[*EncryptionKey]int),
		zones:        make(map[*Zone]int),
		channelSlots: make(map[ID]int),
		contactIdx:   make(map[ID]int),
		groupIdx:     make(map[ID]int),
		keySlots:     make(map[ID]int),
	}
	if err := p.assignPositions(cp.Channels); err != nil {
		return nil, err
	}

	n := 0
	for _, c := range cp.Contacts {
		if c == nil || c.IsEmpty() {
			continue
		}
		n++
		p.contacts[c] = n
		addRef(p.contactIdx, c.ID, n)
	}
	if n > ContactCount {
		return nil, fmt.Errorf("%w: %d contacts (max %d)", ErrCapacityExceeded, n, ContactCount)
	}

	n = 0
	for _, g := range cp.GroupLists {
		if g == nil || g.IsEmpty() {
			continue
		}
		n++
		p.groups[g] = n
		addRef(p.groupIdx, g.ID, n)
	}
	if n > p.layout.GroupListCount() {
		return nil, fmt.Errorf("%w: %d group lists (max %d for %s layout)",
			ErrCapacityExceeded, n, p.layout.GroupListCount(), p.layout)
	}

	n = 0
	for _, k := range cp.EncryptionKeys {
		if k == nil || k.IsEmpty() {
			continue
		}
		p.keys[k] = n
		addRef(p.keySlots, k.ID, n)
		n++
	}
	if n > EncryptionKeyCount {
		return nil, fmt.Errorf("%w: %d encryption keys (max %d)", ErrCapacityExceeded, n, EncryptionKeyCount)
	}

	n = 0
	for _, z := range cp.Zones {
		if z == nil || z.IsEmpty() {
			continue
		}
		p.zones[z] = n
		n++
	}
	if n > ZoneCount {
		return nil, fmt.Errorf("%w: %d zones (max %d)", ErrCapacityExceeded, n, ZoneCount)
	}
	if err := p.checkKeyRefs(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *plan) checkKeyRefs() error {
	limit := p.layout.MaxKeyReference()
	for ch := range p.positions {
		if slot, ok := p.keySlots[ch.EncryptionKeyID]; ok && slot > limit {
			return fmt.Errorf("%w: channel %q uses key slot %d (max %d for %s layout)",
				ErrReferenceRange, ch.Name, slot, limit, p.layout)
		}
	}
	return nil
}

// addRef records the first entity seen with id. Entities without an ID
// cannot be referenced.
func addRef(m map[ID]int, id ID, v int) {
	if id == "" {
		return
	}
	if _, ok := m[id]; !ok {
		m[id] = v
	}
}

// assignPositions validates explicit positions, then gives unset channels the
// lowest free slots in collection order.
func (p *plan) assignPositions(channels []*Channel) error {
	used := make(map[int]*Channel)
	var unset []*Channel

	for _, ch := range channels {
		if ch == nil || ch.IsEmpty() {
			continue
		}
		if ch.Position == 0 {
			unset = append(unset, ch)
			continue
		}
		if ch.Position < 0 || ch.Position > ChannelCount {
			return fmt.Errorf("%w: channel %q at position %d (valid 1-%d)",
				ErrPositionOutOfRange, ch.Name, ch.Position, ChannelCount)
		}
		if other, ok := used[ch.Position]; ok {
			return fmt.Errorf("%w: channels %q and %q both at position %d",
				ErrPositionCollision, other.Name, ch.Name, ch.Position)
		}
		used[ch.Position] = ch
	}

	next := 1
	for _, ch := range unset {
		for next <= ChannelCount && used[next] != nil {
			next++
		}
		if next > ChannelCount {
			return fmt.Errorf("%w: no free slot for channel %q", ErrCapacityExceeded, ch.Name)
		}
		used[next] = ch
	}

	for pos, ch := range used {
		p.positions[ch] = pos
		addRef(p.channelSlots, ch.ID, pos-1)
	}
	return nil
}

func (p *plan) channelRefs(ch *Channel) ChannelRefs {
	refs := NoRefs
	if idx, ok := p.contactIdx[ch.ContactID]; ok {
		refs.ContactSlot = idx - 1
	}
	if idx, ok := p.groupIdx[ch.GroupListID]; ok {
		refs.GroupListIndex = idx
	}
	if slot, ok := p.keySlots[ch.EncryptionKeyID]; ok {
		refs.KeyIndex = slot
	}
	return refs
}

// Serialize encodes cp into a complete image. cp is not modified; Renumber
// applies the same slot assignment to the model.
func Serialize(cp *Codeplug) ([]byte, error) {
	p, err := newPlan(cp)
	if err != nil {
		return nil, err
	}

	image := make([]byte, ImageSize)
	fill(image, empty8)

	settings := cp.Settings
	if settings == nil {
		settings = NewRadioSettings()
	}
	copy(image[CFGOffset:], EncodeSettings(settings))

	for ch, pos := range p.positions {
		off := ChannelOffset + (pos-1)*ChannelSize
		copy(image[off:], EncodeChannel(ch, p.layout, p.channelRefs(ch)))
	}

	for c, idx := range p.contacts {
		copy(image[ContactOffset+(idx-1)*ContactSize:], EncodeContact(c, idx))
	}

	size := p.layout.GroupListSize()
	for g, idx := range p.groups {
		var members []int
		for _, id := range g.Contacts {
			if m, ok := p.contactIdx[id]; ok {
				members = append(members, m)
			}
		}
		copy(image[GroupListOffset+(idx-1)*size:], EncodeGroupList(g, p.layout, members))
	}

	for k, slot := range p.keys {
		copy(image[EncryptionKeyOffset+slot*EncryptionKeySize:], EncodeEncryptionKey(k, slot))
	}

	for z, slot := range p.zones {
		var channels []int
		for _, id := range z.Channels {
			if s, ok := p.channelSlots[id]; ok {
				channels = append(channels, s)
			}
		}
		copy(image[ZoneOffset+slot*ZoneSize:], EncodeZone(z, channels))
	}

	copy(image[FMOffset:FMOffset+FMSize], fm.Serialize(cp.FM))

	return image, nil
}

// Renumber applies the slot assignment Serialize would use: unset channel
// positions are filled, channels are sorted by position and the other
// collections get dense indices. Nil channel entries are dropped.
func (cp *Codeplug) Renumber() error {
	p, err := newPlan(cp)
	if err != nil {
		return err
	}
	for ch, pos := range p.positions {
		ch.Position = pos
	}
	channels := cp.Channels[:0]
	for _, ch := range cp.Channels {
		if ch != nil {
			channels = append(channels, ch)
		}
	}
	clear(cp.Channels[len(channels):])
	cp.Channels = channels
	sort.SliceStable(cp.Channels, func(i, j int) bool {
		return cp.Channels[i].Position < cp.Channels[j].Position
	})
	for c, idx := range p.contacts {
		c.Index = idx
	}
	for g, idx := range p.groups {
		g.Index = idx
	}
	for k, slot := range p.keys {
		k.Index = slot
	}
	for z, slot := range p.zones {
		z.Index = slot
	}
	return nil
}
