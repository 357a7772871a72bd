// Package timer converts between the firmware's timer indices and seconds.
package timer

import (
	"errors"
	"fmt"
)

// Largest index offered for each timer setting.
const (
	TOTMaxIndex       = 40
	LEDMenuMaxIndex   = 30
	LockMaxIndex      = 40
	PowerSaveMaxIndex = 40
)

// ErrInvalidDuration is returned when a duration is not on the index lattice.
var ErrInvalidDuration = errors.New("invalid timer duration")

// Entry is one row of a timer selection table.
type Entry struct {
	Index   uint8
	Seconds int
	Label   string
}

// IndexToSeconds returns the duration the firmware assigns to index i.
func IndexToSeconds(i uint8) int {
	switch {
	case i == 0:
		return 0
	case i <= 3:
		return int(i) * 5
	default:
		return (int(i) - 2) * 15
	}
}

// SecondsToIndex returns the index whose duration is exactly seconds.
func SecondsToIndex(seconds int) (uint8, error) {
	switch seconds {
	case 0:
		return 0, nil
	case 5, 10, 15:
		return uint8(seconds / 5), nil
	}
	if seconds < 0 || seconds%15 != 0 {
		return 0, fmt.Errorf("%w: %ds", ErrInvalidDuration, seconds)
	}
	idx := seconds/15 + 2
	if idx > 0xFF || IndexToSeconds(uint8(idx)) != seconds {
		return 0, fmt.Errorf("%w: %ds", ErrInvalidDuration, seconds)
	}
	return uint8(idx), nil
}

// Label formats a duration the way the radio menu shows it: "Off", "45s",
// "2m" or "1m30s".
func Label(seconds int) string {
	switch {
	case seconds == 0:
		return "Off"
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds%60 == 0:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		return fmt.Sprintf("%dm%ds", seconds/60, seconds%60)
	}
}

// Table returns the entries for indices 0 through maxIndex.
func Table(maxIndex uint8) []Entry {
	entries := make([]Entry, 0, int(maxIndex)+1)
	for i := 0; i <= int(maxIndex); i++ {
		secs := IndexToSeconds(uint8(i))
		entries = append(entries, Entry{Index: uint8(i), Seconds: secs, Label: Label(secs)})
	}
	return entries
}

// IndexLabel is shorthand for Label(IndexToSeconds(i)).
func IndexLabel(i uint8) string {
	return Label(IndexToSeconds(i))
}
