// Package uart talks to an RT-4D over its programming cable. The radio
// exposes its SPI flash as 1 KB blocks: reads address a block by its
// kilobyte offset, writes address a region by ID and a block within it.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
)

// Protocol constants
const (
	BlockSize    = 1024
	ReadRespSize = 3 + BlockSize + 1
	WriteCmdSize = 3 + BlockSize + 1

	DefaultBaudRate    = 115200
	DefaultReadTimeout = 10 * time.Second

	Ack             = 0x06
	cmdRead         = 0x52
	cmdAddressBook  = 0xA4
	respCapMismatch = 0xA4
	respCapLimit    = 0x4A

	// AddressBookMaxSize is the largest CSV payload the radio accepts.
	AddressBookMaxSize = 29360124
)

var (
	notifyCmd = []byte{0x34, 0x00, 0x00, 0x10, 0x00}
	closeCmd  = []byte{0x34, 0x52, 0x05, 0xEE, 0x79}
)

var (
	ErrTimeout          = errors.New("timed out waiting for radio")
	ErrNoAck            = errors.New("radio did not acknowledge")
	ErrChecksum         = errors.New("checksum mismatch")
	ErrBootloader       = errors.New("radio rejected the read; is it in bootloader mode?")
	ErrCapacityMismatch = errors.New("address book flash capacity mismatch")
	ErrCapacityLimit    = errors.New("address book flash capacity limit reached")
	ErrRegionTooLarge   = errors.New("data larger than region")
)

// Port is the serial connection the radio is reached through.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	Drain() error
}

// ProgressFunc is called after each block with the blocks done and total.
type ProgressFunc func(done, total int)

// Config holds serial connection parameters.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// Radio is an open programming session.
type Radio struct {
	port    Port
	log     *logger.Logger
	metrics *metrics.Collector
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the serial port at 8N1 and returns a session on it.
func Open(cfg Config, log *logger.Logger, m *metrics.Collector) (*Radio, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, err)
	}

	timeout := cfg.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	r := New(port, log, m)
	r.log.Info("Opened serial port", logger.String("port", cfg.Port), logger.Int("baud", baud))
	return r, nil
}

// New wraps an already open port.
func New(port Port, log *logger.Logger, m *metrics.Collector) *Radio {
	if log == nil {
		log = logger.Nop()
	}
	return &Radio{port: port, log: log.WithComponent("uart"), metrics: m}
}

// checksum is the low byte of the sum of every byte but the last.
func checksum(frame []byte) byte {
	var sum byte
	for _, b := range frame[:len(frame)-1] {
		sum += b
	}
	return sum
}

func verify(frame []byte) bool {
	return len(frame) > 0 && checksum(frame) == frame[len(frame)-1]
}

func (r *Radio) send(frame []byte) error {
	if _, err := r.port.Write(frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if err := r.port.Drain(); err != nil {
		return fmt.Errorf("serial drain: %w", err)
	}
	return nil
}

// readFull reads exactly len(buf) bytes. A read that returns nothing means
// the port's read timeout expired.
func (r *Radio) readFull(buf []byte) error {
	got := 0
	for got < len(buf) {
		n, err := r.port.Read(buf[got:])
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w after %d of %d bytes", ErrTimeout, got, len(buf))
		}
		got += n
	}
	return nil
}

func (r *Radio) readAck() (byte, error) {
	var resp [1]byte
	if err := r.readFull(resp[:]); err != nil {
		return 0, err
	}
	return resp[0], nil
}

// Notify announces a programming session. The radio answers with an ACK.
func (r *Radio) Notify() error {
	cmd := append([]byte(nil), notifyCmd...)
	cmd[len(cmd)-1] = checksum(cmd)
	if err := r.send(cmd); err != nil {
		return err
	}
	resp, err := r.readAck()
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if resp != Ack {
		return fmt.Errorf("notify: %w (got 0x%02X)", ErrNoAck, resp)
	}
	r.log.Debug("Radio acknowledged session")
	return nil
}

// Close ends the programming session and closes the port.
func (r *Radio) Close() error {
	sendErr := r.send(closeCmd)
	closeErr := r.port.Close()
	if sendErr != nil {
		return sendErr
	}
	return closeErr
}

// ReadBlock reads the 1 KB flash block at the given kilobyte offset.
func (r *Radio) ReadBlock(kb int) ([]byte, error) {
	cmd := []byte{cmdRead, byte(kb >> 8), byte(kb), 0}
	cmd[3] = checksum(cmd)
	if err := r.send(cmd); err != nil {
		return nil, err
	}

	resp := make([]byte, ReadRespSize)
	if err := r.readFull(resp); err != nil {
		r.metrics.TransferError("read")
		return nil, fmt.Errorf("block 0x%04X: %w", kb, err)
	}
	if resp[0] == 0xFF {
		r.metrics.TransferError("read")
		return nil, fmt.Errorf("block 0x%04X: %w", kb, ErrBootloader)
	}
	if !verify(resp) {
		r.metrics.TransferError("read")
		return nil, fmt.Errorf("block 0x%04X: %w", kb, ErrChecksum)
	}
	r.metrics.BlockRead(BlockSize)
	return resp[3 : 3+BlockSize], nil
}

// ReadRegion reads size bytes starting at a flash address.
func (r *Radio) ReadRegion(ctx context.Context, address uint32, size int, progress ProgressFunc) ([]byte, error) {
	total := blocksFor(size)
	first := int(address / BlockSize)
	skip := int(address % BlockSize)
	if skip != 0 {
		total = blocksFor(size + skip)
	}

	data := make([]byte, 0, total*BlockSize)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, err := r.ReadBlock(first + i)
		if err != nil {
			return nil, err
		}
		data = append(data, block...)
		if progress != nil {
			progress(i+1, total)
		}
	}
	return data[skip : skip+size], nil
}

// writeBlocks sends data to a region, one block per frame. The final
// partial block is padded with 0xFF.
func (r *Radio) writeBlocks(ctx context.Context, id byte, data []byte, progress ProgressFunc) error {
	total := blocksFor(len(data))
	frame := make([]byte, WriteCmdSize)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame[0] = id
		frame[1] = byte(i >> 8)
		frame[2] = byte(i)
		chunk := data[i*BlockSize:]
		if len(chunk) > BlockSize {
			chunk = chunk[:BlockSize]
		}
		n := copy(frame[3:3+BlockSize], chunk)
		for j := 3 + n; j < 3+BlockSize; j++ {
			frame[j] = 0xFF
		}
		frame[WriteCmdSize-1] = checksum(frame)

		if err := r.send(frame); err != nil {
			return err
		}
		resp, err := r.readAck()
		if err != nil {
			r.metrics.TransferError("write")
			return fmt.Errorf("region 0x%02X block %d: %w", id, i, err)
		}
		if resp != Ack {
			r.metrics.TransferError("write")
			return fmt.Errorf("region 0x%02X block %d: %w (got 0x%02X)", id, i, ErrNoAck, resp)
		}
		r.metrics.BlockWritten(BlockSize)
		if progress != nil {
			progress(i+1, total)
		}
	}
	return nil
}

// WriteRegion writes data to the start of a flash region.
func (r *Radio) WriteRegion(ctx context.Context, region SPIRegion, data []byte, progress ProgressFunc) error {
	if len(data) > region.Size {
		return fmt.Errorf("%w: %d bytes for %s (%d max)", ErrRegionTooLarge, len(data), region.Name, region.Size)
	}
	r.log.Debug("Writing region",
		logger.String("region", region.Name),
		logger.Hex("address", region.Address),
		logger.Int("bytes", len(data)))
	return r.writeBlocks(ctx, region.ID, data, progress)
}

// WriteAddressBook uploads a GBK CSV address book. The payload is prefixed
// with its big-endian length including the 4-byte header.
func (r *Radio) WriteAddressBook(ctx context.Context, csv []byte, progress ProgressFunc) error {
	if len(csv) > AddressBookMaxSize {
		r.log.Warn("Address book truncated",
			logger.Int("bytes", len(csv)),
			logger.Int("max", AddressBookMaxSize))
		csv = csv[:AddressBookMaxSize]
	}
	total := len(csv) + 4
	payload := make([]byte, total)
	payload[0] = byte(total >> 24)
	payload[1] = byte(total >> 16)
	payload[2] = byte(total >> 8)
	payload[3] = byte(total)
	copy(payload[4:], csv)

	blocks := blocksFor(total)
	frame := make([]byte, WriteCmdSize)
	for i := 0; i < blocks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame[0] = cmdAddressBook
		frame[1] = byte(i >> 8)
		frame[2] = byte(i)
		n := copy(frame[3:3+BlockSize], payload[i*BlockSize:])
		for j := 3 + n; j < 3+BlockSize; j++ {
			frame[j] = 0xFF
		}
		frame[WriteCmdSize-1] = checksum(frame)

		if err := r.send(frame); err != nil {
			return err
		}
		resp, err := r.readAck()
		if err != nil {
			r.metrics.TransferError("addressbook")
			return fmt.Errorf("address book block %d: %w", i, err)
		}
		switch resp {
		case Ack:
		case respCapMismatch:
			r.metrics.TransferError("addressbook")
			return ErrCapacityMismatch
		case respCapLimit:
			r.metrics.TransferError("addressbook")
			return ErrCapacityLimit
		default:
			r.metrics.TransferError("addressbook")
			return fmt.Errorf("address book block %d: %w (got 0x%02X)", i, ErrNoAck, resp)
		}
		r.metrics.BlockWritten(BlockSize)
		if progress != nil {
			progress(i+1, blocks)
		}
	}
	r.log.Info("Address book written", logger.Int("bytes", len(csv)), logger.Int("blocks", blocks))
	return nil
}

// IsBootloader probes block 0. A radio in its bootloader refuses the read;
// any leftover bytes are discarded.
func (r *Radio) IsBootloader() (bool, error) {
	_, err := r.ReadBlock(0)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, ErrBootloader) || errors.Is(err, ErrChecksum) || errors.Is(err, ErrTimeout) {
		if rerr := r.port.ResetInputBuffer(); rerr != nil {
			return true, fmt.Errorf("reset input: %w", rerr)
		}
		return true, nil
	}
	return false, err
}

// SelectSettingsBank returns the address of the live settings block: the
// first bank carrying the beta41 marker, or bank 0 when neither does.
func (r *Radio) SelectSettingsBank(ctx context.Context) (uint32, error) {
	for _, bank := range []uint32{SettingsBank0, SettingsBank1} {
		marker, err := r.ReadRegion(ctx, bank+uint32(codeplug.Beta41MagicOffset), len(codeplug.Beta41Magic), nil)
		if err != nil {
			return 0, err
		}
		if string(marker) == codeplug.Beta41Magic {
			r.log.Debug("Selected settings bank", logger.Hex("address", bank))
			return bank, nil
		}
	}
	return SettingsBank0, nil
}

// ReadImage reads every codeplug region and assembles them into an image.
func (r *Radio) ReadImage(ctx context.Context, progress ProgressFunc) ([]byte, error) {
	image := make([]byte, codeplug.ImageSize)
	for i := range image {
		image[i] = 0xFF
	}

	bank, err := r.SelectSettingsBank(ctx)
	if err != nil {
		return nil, err
	}

	total := ImageBlocks()
	done := 0
	for _, s := range imageLayout {
		region, err := RegionByName(s.region)
		if err != nil {
			return nil, err
		}
		address := region.Address
		if s.region == "main_settings" {
			address = bank
		}
		base := done
		data, err := r.ReadRegion(ctx, address, s.size, func(n, _ int) {
			if progress != nil {
				progress(base+n, total)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.region, err)
		}
		copy(image[s.offset:], data)
		done += blocksFor(s.size)
	}
	r.log.Info("Read codeplug", logger.Int("blocks", total))
	return image, nil
}

// WriteImage writes every codeplug region of image to the radio. Settings
// always go to bank 0: block writes address region 0x90 and no region ID
// reaches bank 1, whichever bank ReadImage selected.
func (r *Radio) WriteImage(ctx context.Context, image []byte, progress ProgressFunc) error {
	if len(image) != codeplug.ImageSize {
		return fmt.Errorf("%w: got %d bytes, expected %d", codeplug.ErrInvalidImageSize, len(image), codeplug.ImageSize)
	}

	total := ImageBlocks()
	done := 0
	for _, s := range imageLayout {
		region, err := RegionByName(s.region)
		if err != nil {
			return err
		}
		base := done
		err = r.WriteRegion(ctx, region, image[s.offset:s.offset+s.size], func(n, _ int) {
			if progress != nil {
				progress(base+n, total)
			}
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", s.region, err)
		}
		done += blocksFor(s.size)
	}
	r.log.Info("Wrote codeplug", logger.Int("blocks", total))
	return nil
}
