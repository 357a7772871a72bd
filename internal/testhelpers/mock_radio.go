package testhelpers

import (
	"sync"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/messages"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

// FlashSize covers every region the CPS reads or writes.
const FlashSize = 0x0D7000

const nak = 0x15

// MockRadio simulates an RT-4D on the far end of a serial cable. It
// implements uart.Port and answers frames from an in-memory flash.
type MockRadio struct {
	mu sync.Mutex

	flash       []byte
	in          []byte
	out         []byte
	addressBook []byte

	// Bootloader makes every read answer with an erased frame.
	Bootloader bool
	// AddressBookReply overrides the ACK for address book frames.
	AddressBookReply byte
	// DropWrites swallows region writes without acknowledging them.
	DropWrites bool

	Notified bool
	Closed   bool
	Frames   int
}

// NewMockRadio creates a radio with erased flash.
func NewMockRadio() *MockRadio {
	flash := make([]byte, FlashSize)
	for i := range flash {
		flash[i] = 0xFF
	}
	return &MockRadio{flash: flash}
}

// SetFlash copies data into flash at address.
func (m *MockRadio) SetFlash(address uint32, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.flash[address:], data)
}

// Flash returns a copy of size bytes of flash at address.
func (m *MockRadio) Flash(address uint32, size int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.flash[address:int(address)+size]...)
}

// AddressBook returns the address book payload received so far.
func (m *MockRadio) AddressBook() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.addressBook...)
}

// Write accepts command frames from the host.
func (m *MockRadio) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.in = append(m.in, p...)
	for m.handle() {
	}
	return len(p), nil
}

// Read returns queued response bytes. An empty queue reads as a timeout.
func (m *MockRadio) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := copy(p, m.out)
	m.out = m.out[n:]
	return n, nil
}

// Close marks the port closed.
func (m *MockRadio) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

func (m *MockRadio) SetReadTimeout(time.Duration) error { return nil }

func (m *MockRadio) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.out = nil
	return nil
}

func (m *MockRadio) Drain() error { return nil }

// handle consumes one complete frame from the input buffer.
func (m *MockRadio) handle() bool {
	if len(m.in) == 0 {
		return false
	}
	switch cmd := m.in[0]; {
	case cmd == 0x34:
		if len(m.in) < 5 {
			return false
		}
		frame := m.take(5)
		if frame[1] == 0x00 {
			m.Notified = true
			m.out = append(m.out, uart.Ack)
		}
	case cmd == 0x52:
		if len(m.in) < 4 {
			return false
		}
		m.readBlock(m.take(4))
	default:
		if len(m.in) < uart.WriteCmdSize {
			return false
		}
		m.writeBlock(m.take(uart.WriteCmdSize))
	}
	m.Frames++
	return true
}

func (m *MockRadio) take(n int) []byte {
	frame := append([]byte(nil), m.in[:n]...)
	m.in = m.in[n:]
	return frame
}

func (m *MockRadio) readBlock(cmd []byte) {
	resp := make([]byte, uart.ReadRespSize)
	if m.Bootloader {
		for i := range resp {
			resp[i] = 0xFF
		}
		m.out = append(m.out, resp...)
		return
	}
	copy(resp, cmd[:3])
	address := (int(cmd[1])<<8 | int(cmd[2])) * uart.BlockSize
	if address < len(m.flash) {
		copy(resp[3:3+uart.BlockSize], m.flash[address:])
	}
	resp[len(resp)-1] = sum(resp)
	m.out = append(m.out, resp...)
}

func (m *MockRadio) writeBlock(frame []byte) {
	if sum(frame) != frame[len(frame)-1] {
		m.out = append(m.out, nak)
		return
	}
	block := int(frame[1])<<8 | int(frame[2])
	data := frame[3 : 3+uart.BlockSize]

	if frame[0] == 0xA4 {
		m.addressBook = append(m.addressBook, data...)
		if m.AddressBookReply != 0 {
			m.out = append(m.out, m.AddressBookReply)
			return
		}
		m.out = append(m.out, uart.Ack)
		return
	}

	region, ok := regionByID(frame[0])
	if !ok {
		m.out = append(m.out, nak)
		return
	}
	if m.DropWrites {
		return
	}
	offset := block * uart.BlockSize
	if offset < region.Size {
		n := min(uart.BlockSize, region.Size-offset)
		copy(m.flash[int(region.Address)+offset:], data[:n])
	}
	m.out = append(m.out, uart.Ack)
}

func regionByID(id byte) (uart.SPIRegion, bool) {
	for _, r := range uart.SPIRegions {
		if r.ID == id {
			return r, true
		}
	}
	for _, t := range []messages.Type{messages.Draft, messages.Inbox, messages.Outbox} {
		r, err := uart.MessageRegion(t)
		if err == nil && r.ID == id {
			return r, true
		}
	}
	return uart.SPIRegion{}, false
}

func sum(frame []byte) byte {
	var s byte
	for _, b := range frame[:len(frame)-1] {
		s += b
	}
	return s
}
