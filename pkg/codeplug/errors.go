package codeplug

import "errors"

var (
	// ErrInvalidImageSize is returned when an image is not exactly ImageSize bytes.
	ErrInvalidImageSize = errors.New("invalid codeplug image size")

	// ErrPositionCollision is returned when two channels claim the same slot.
	ErrPositionCollision = errors.New("channel position collision")

	// ErrPositionOutOfRange is returned for a channel position outside 1..ChannelCount.
	ErrPositionOutOfRange = errors.New("channel position out of range")

	// ErrCapacityExceeded is returned when a collection does not fit its region.
	ErrCapacityExceeded = errors.New("region capacity exceeded")

	// ErrReferenceRange is returned when a channel refers to an entity its
	// record layout cannot address.
	ErrReferenceRange = errors.New("reference out of range for layout")
)
