package timer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestIndexToSeconds(t *testing.T) {
	tests := []struct {
		index    uint8
		expected int
	}{
		{0, 0}, {1, 5}, {2, 10}, {3, 15}, {4, 30}, {8, 90}, {30, 420}, {40, 570},
	}

	for _, tt := range tests {
		if got := IndexToSeconds(tt.index); got != tt.expected {
			t.Errorf("IndexToSeconds(%d) = %d, expected %d", tt.index, got, tt.expected)
		}
	}
}

func TestSecondsToIndexInvalid(t *testing.T) {
	for _, secs := range []int{1, 7, 20, 31, -15} {
		_, err := SecondsToIndex(secs)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("SecondsToIndex(%d) error = %v, expected ErrInvalidDuration", secs, err)
		}
	}
}

func TestMonotonic(t *testing.T) {
	prev := 0
	for i := 0; i <= 0xFF; i++ {
		secs := IndexToSeconds(uint8(i))
		if secs < prev {
			t.Fatalf("IndexToSeconds(%d) = %d is below previous %d", i, secs, prev)
		}
		prev = secs
	}
}

func TestIndexRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.Uint8().Draw(t, "index")
		got, err := SecondsToIndex(IndexToSeconds(i))
		if err != nil {
			t.Fatalf("SecondsToIndex failed for index %d: %v", i, err)
		}
		if got != i {
			t.Fatalf("round trip of index %d gave %d", i, got)
		}
	})
}

func TestTable(t *testing.T) {
	table := Table(TOTMaxIndex)
	assert.Len(t, table, TOTMaxIndex+1)
	assert.Equal(t, "Off", table[0].Label)
	assert.Equal(t, "5s", table[1].Label)
	assert.Equal(t, "30s", table[4].Label)
	assert.Equal(t, "1m", table[6].Label)
	assert.Equal(t, "1m15s", table[7].Label)
	assert.Equal(t, "9m30s", table[40].Label)
}
