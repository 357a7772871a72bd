package codeplug

import "fmt"

// IsBeta41 reports whether a raw image's settings block carries the beta41
// marker.
func IsBeta41(image []byte) bool {
	if len(image) < CFGOffset+CFGSize {
		return false
	}
	return HasBeta41Magic(image[CFGOffset : CFGOffset+CFGSize])
}

// SetBeta41 stamps or clears the beta41 marker in a raw image in place.
// Records are not rewritten; use Parse and Serialize to convert a codeplug
// between layouts.
func SetBeta41(image []byte, enabled bool) error {
	if len(image) != ImageSize {
		return fmt.Errorf("%w: got %d bytes, expected %d", ErrInvalidImageSize, len(image), ImageSize)
	}
	marker := image[CFGOffset+Beta41MagicOffset : CFGOffset+CFGSize]
	if enabled {
		copy(marker, Beta41Magic)
		return nil
	}
	if HasBeta41Magic(image[CFGOffset : CFGOffset+CFGSize]) {
		fill(marker, empty8)
	}
	return nil
}

// ConvertLayout re-encodes cp for the requested layout. Group lists beyond
// the target layout's capacity are reported as ErrCapacityExceeded by the
// next Serialize, and key references past MaxKeyReference as
// ErrReferenceRange.
func (cp *Codeplug) ConvertLayout(layout Layout) {
	if cp.Settings == nil {
		cp.Settings = NewRadioSettings()
	}
	cp.Settings.Beta41 = layout == LayoutBeta41
	for _, g := range cp.GroupLists {
		if limit := layout.GroupListCapacity(); len(g.Contacts) > limit {
			g.Contacts = g.Contacts[:limit]
		}
	}
}
