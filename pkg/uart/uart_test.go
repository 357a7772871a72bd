package uart_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbehnke/rt4d-cps/internal/testhelpers"
	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/messages"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

func TestNotify(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	s.Connect()
	assert.True(t, s.Radio.Notified)
}

func TestClose(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	r := s.Connect()
	require.NoError(t, r.Close())
	assert.True(t, s.Radio.Closed)
}

func TestNotify_NoResponse(t *testing.T) {
	r := uart.New(&silentPort{}, nil, nil)
	err := r.Notify()
	assert.True(t, errors.Is(err, uart.ErrTimeout), "got %v", err)
}

func TestReadBlock(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	want := bytes.Repeat([]byte{0xA5}, uart.BlockSize)
	s.Radio.SetFlash(3*uart.BlockSize, want)

	r := s.Connect()
	got, err := r.ReadBlock(3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(1), s.Metrics.Snapshot().BlocksRead)
}

func TestReadBlock_Bootloader(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	s.Radio.Bootloader = true
	r := uart.New(s.Radio, s.Logger, s.Metrics)

	_, err := r.ReadBlock(0)
	assert.True(t, errors.Is(err, uart.ErrBootloader), "got %v", err)
	assert.Equal(t, uint64(1), s.Metrics.GetTransferErrors("read"))

	boot, err := r.IsBootloader()
	require.NoError(t, err)
	assert.True(t, boot)
}

func TestIsBootloader_Normal(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	boot, err := s.Connect().IsBootloader()
	require.NoError(t, err)
	assert.False(t, boot)
}

func TestReadRegion_Unaligned(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	s.Radio.SetFlash(0x2FFE, []byte{1, 2, 3, 4})

	var calls int
	got, err := s.Connect().ReadRegion(s.Ctx, 0x2FFE, 4, func(done, total int) {
		calls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
	assert.Equal(t, 2, calls)
}

func TestReadRegion_Cancelled(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	ctx, cancel := context.WithCancel(s.Ctx)
	cancel()
	_, err := s.Connect().ReadRegion(ctx, 0, uart.BlockSize, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteRegion_PadsFinalBlock(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	region, err := uart.RegionByName("fm_settings")
	require.NoError(t, err)
	s.Radio.SetFlash(region.Address, bytes.Repeat([]byte{0}, uart.BlockSize))

	data := []byte("hello")
	require.NoError(t, s.Connect().WriteRegion(s.Ctx, region, data, nil))

	got := s.Radio.Flash(region.Address, uart.BlockSize)
	assert.Equal(t, data, got[:len(data)])
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, uart.BlockSize-len(data)), got[len(data):])
	assert.Equal(t, uint64(1), s.Metrics.Snapshot().BlocksWritten)
}

func TestWriteRegion_TooLarge(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	region, err := uart.RegionByName("main_settings")
	require.NoError(t, err)
	err = s.Connect().WriteRegion(s.Ctx, region, make([]byte, region.Size+1), nil)
	assert.ErrorIs(t, err, uart.ErrRegionTooLarge)
}

func TestWriteRegion_NoAck(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	r := s.Connect()
	s.Radio.DropWrites = true
	region, err := uart.RegionByName("channels")
	require.NoError(t, err)

	err = r.WriteRegion(s.Ctx, region, make([]byte, 10), nil)
	assert.ErrorIs(t, err, uart.ErrTimeout)
	assert.Equal(t, uint64(1), s.Metrics.GetTransferErrors("write"))
}

func TestImageRoundTrip(t *testing.T) {
	for _, beta41 := range []bool{false, true} {
		s := testhelpers.NewSuite(t)
		image := testhelpers.SampleImage(t, beta41)
		r := s.Connect()

		var last, total int
		require.NoError(t, r.WriteImage(s.Ctx, image, func(done, n int) { last, total = done, n }))
		assert.Equal(t, uart.ImageBlocks(), total)
		assert.Equal(t, total, last)

		got, err := r.ReadImage(s.Ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, image, got, "beta41=%v", beta41)
		assert.Equal(t, beta41, codeplug.IsBeta41(got))
		s.Cleanup()
	}
}

func TestWriteImage_SettingsGoToBank0(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	bank1 := bytes.Repeat([]byte{0xFF}, codeplug.CFGSize)
	copy(bank1[codeplug.Beta41MagicOffset:], codeplug.Beta41Magic)
	s.Radio.SetFlash(uart.SettingsBank1, bank1)

	r := s.Connect()
	bank, err := r.SelectSettingsBank(s.Ctx)
	require.NoError(t, err)
	require.Equal(t, uart.SettingsBank1, bank)

	image := testhelpers.SampleImage(t, true)
	require.NoError(t, r.WriteImage(s.Ctx, image, nil))

	cfg := image[codeplug.CFGOffset : codeplug.CFGOffset+codeplug.CFGSize]
	assert.Equal(t, cfg, s.Radio.Flash(uart.SettingsBank0, codeplug.CFGSize))
	assert.Equal(t, bank1, s.Radio.Flash(uart.SettingsBank1, codeplug.CFGSize))

	bank, err = r.SelectSettingsBank(s.Ctx)
	require.NoError(t, err)
	assert.Equal(t, uart.SettingsBank0, bank)
}

func TestWriteImage_WrongSize(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	err := s.Connect().WriteImage(s.Ctx, make([]byte, 10), nil)
	assert.ErrorIs(t, err, codeplug.ErrInvalidImageSize)
}

func TestSelectSettingsBank(t *testing.T) {
	cfg := func(beta41 bool) []byte {
		block := bytes.Repeat([]byte{0xFF}, codeplug.CFGSize)
		if beta41 {
			copy(block[codeplug.Beta41MagicOffset:], codeplug.Beta41Magic)
		}
		return block
	}

	tests := []struct {
		name         string
		bank0, bank1 bool
		want         uint32
	}{
		{"bank0 marked", true, false, uart.SettingsBank0},
		{"bank1 marked", false, true, uart.SettingsBank1},
		{"both marked", true, true, uart.SettingsBank0},
		{"neither", false, false, uart.SettingsBank0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testhelpers.NewSuite(t)
			defer s.Cleanup()
			s.Radio.SetFlash(uart.SettingsBank0, cfg(tt.bank0))
			s.Radio.SetFlash(uart.SettingsBank1, cfg(tt.bank1))

			got, err := s.Connect().SelectSettingsBank(s.Ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteAddressBook(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	csv := []byte("3112000,N0CALL,Alice,Springfield,IL,USA\n")
	require.NoError(t, s.Connect().WriteAddressBook(s.Ctx, csv, nil))

	got := s.Radio.AddressBook()
	require.Len(t, got, uart.BlockSize)
	total := len(csv) + 4
	assert.Equal(t, []byte{0, 0, byte(total >> 8), byte(total)}, got[:4])
	assert.Equal(t, csv, got[4:total])
}

func TestWriteAddressBook_CapacityErrors(t *testing.T) {
	tests := []struct {
		reply byte
		want  error
	}{
		{0xA4, uart.ErrCapacityMismatch},
		{0x4A, uart.ErrCapacityLimit},
		{0x15, uart.ErrNoAck},
	}
	for _, tt := range tests {
		s := testhelpers.NewSuite(t)
		s.Radio.AddressBookReply = tt.reply
		err := s.Connect().WriteAddressBook(s.Ctx, []byte("1,A\n"), nil)
		assert.ErrorIs(t, err, tt.want)
		assert.Equal(t, uint64(1), s.Metrics.GetTransferErrors("addressbook"))
		s.Cleanup()
	}
}

func TestMessageRegion(t *testing.T) {
	r, err := uart.MessageRegion(messages.Inbox)
	require.NoError(t, err)
	assert.Equal(t, byte(0x9B), r.ID)
	assert.Equal(t, uint32(0x0A6000), r.Address)
	assert.Equal(t, 256*messages.EntrySize, r.Size)

	preset, err := uart.MessageRegion(messages.Preset)
	require.NoError(t, err)
	sms, err := uart.RegionByName("default_sms")
	require.NoError(t, err)
	assert.Equal(t, sms.ID, preset.ID)
	assert.Equal(t, sms.Address, preset.Address)
}

func TestMessageRegionTransfer(t *testing.T) {
	s := testhelpers.NewSuite(t)
	defer s.Cleanup()

	region, err := uart.MessageRegion(messages.Draft)
	require.NoError(t, err)

	msgs := []*messages.Message{{Type: messages.Draft, CallType: messages.CallPrivate, ContactID: 3112000, Text: "73"}}
	data := messages.SerializeRegion(msgs, messages.MaxCount(messages.Draft))

	r := s.Connect()
	require.NoError(t, r.WriteRegion(s.Ctx, region, data, nil))
	raw, err := r.ReadRegion(s.Ctx, region.Address, region.Size, nil)
	require.NoError(t, err)

	got := messages.ParseRegion(raw, messages.Draft, messages.MaxCount(messages.Draft))
	require.Len(t, got, 1)
	assert.Equal(t, "73", got[0].Text)
	assert.Equal(t, uint32(3112000), got[0].ContactID)
}

func TestRegionByName_Unknown(t *testing.T) {
	_, err := uart.RegionByName("bogus")
	assert.Error(t, err)
}

// silentPort never answers.
type silentPort struct{}

func (silentPort) Read(p []byte) (int, error)       { return 0, nil }
func (silentPort) Write(p []byte) (int, error)      { return len(p), nil }
func (silentPort) Close() error                     { return nil }
func (silentPort) SetReadTimeout(time.Duration) error { return nil }
func (silentPort) ResetInputBuffer() error          { return nil }
func (silentPort) Drain() error                     { return nil }
