package codeplug

// Summary counts the entities in a codeplug.
type Summary struct {
	Layout         string `json:"layout"`
	RadioName      string `json:"radio_name"`
	RadioID        uint32 `json:"radio_id"`
	Channels       int    `json:"channels"`
	Contacts       int    `json:"contacts"`
	GroupLists     int    `json:"group_lists"`
	Zones          int    `json:"zones"`
	EncryptionKeys int    `json:"encryption_keys"`
	FMPresets      int    `json:"fm_presets"`
}

// Summary returns entity counts and identity for display.
func (cp *Codeplug) Summary() Summary {
	s := Summary{
		Layout:         cp.Layout().String(),
		Channels:       len(cp.Channels),
		Contacts:       len(cp.Contacts),
		GroupLists:     len(cp.GroupLists),
		Zones:          len(cp.Zones),
		EncryptionKeys: len(cp.EncryptionKeys),
	}
	if cp.Settings != nil {
		s.RadioName = cp.Settings.RadioName
		s.RadioID = cp.Settings.RadioID
	}
	if cp.FM != nil {
		for _, p := range cp.FM.Presets {
			if p != nil && !p.IsEmpty() {
				s.FMPresets++
			}
		}
	}
	return s
}
