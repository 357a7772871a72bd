package metrics

import (
	"sort"
	"sync"
)

// Collector counts serial transfer and codec activity. All methods are
// safe on a nil Collector, which records nothing.
type Collector struct {
	mu sync.RWMutex

	// Transfer metrics
	blocksRead     uint64
	blocksWritten  uint64
	bytesRead      uint64
	bytesWritten   uint64
	transferErrors map[string]uint64 // key: operation

	// Session metrics
	activeSessions int

	// Codec metrics
	imagesParsed     uint64
	imagesSerialized uint64
	codecErrors      uint64

	// Address book
	addressBookContacts int64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		transferErrors: make(map[string]uint64),
	}
}

// BlockRead records a block read from the radio
func (c *Collector) BlockRead(bytes int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocksRead++
	c.bytesRead += uint64(bytes)
}

// BlockWritten records a block acknowledged by the radio
func (c *Collector) BlockWritten(bytes int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocksWritten++
	c.bytesWritten += uint64(bytes)
}

// TransferError records a failed block transfer
func (c *Collector) TransferError(op string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transferErrors[op]++
}

// SessionStarted records an open programming session
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.activeSessions++
}

// SessionEnded records a closed programming session
func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeSessions > 0 {
		c.activeSessions--
	}
}

// ImageParsed records a decoded codeplug image
func (c *Collector) ImageParsed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.imagesParsed++
}

// ImageSerialized records an encoded codeplug image
func (c *Collector) ImageSerialized() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.imagesSerialized++
}

// CodecError records a rejected image or model
func (c *Collector) CodecError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.codecErrors++
}

// SetAddressBookContacts records the size of the address book store
func (c *Collector) SetAddressBookContacts(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addressBookContacts = n
}

// Getters for metrics

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	BlocksRead          uint64            `json:"blocks_read"`
	BlocksWritten       uint64            `json:"blocks_written"`
	BytesRead           uint64            `json:"bytes_read"`
	BytesWritten        uint64            `json:"bytes_written"`
	TransferErrors      map[string]uint64 `json:"transfer_errors"`
	ActiveSessions      int               `json:"active_sessions"`
	ImagesParsed        uint64            `json:"images_parsed"`
	ImagesSerialized    uint64            `json:"images_serialized"`
	CodecErrors         uint64            `json:"codec_errors"`
	AddressBookContacts int64             `json:"address_book_contacts"`
}

// Snapshot returns the current values
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{TransferErrors: map[string]uint64{}}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	errs := make(map[string]uint64, len(c.transferErrors))
	for k, v := range c.transferErrors {
		errs[k] = v
	}
	return Snapshot{
		BlocksRead:          c.blocksRead,
		BlocksWritten:       c.blocksWritten,
		BytesRead:           c.bytesRead,
		BytesWritten:        c.bytesWritten,
		TransferErrors:      errs,
		ActiveSessions:      c.activeSessions,
		ImagesParsed:        c.imagesParsed,
		ImagesSerialized:    c.imagesSerialized,
		CodecErrors:         c.codecErrors,
		AddressBookContacts: c.addressBookContacts,
	}
}

// GetTransferErrors returns the error count for one operation
func (c *Collector) GetTransferErrors(op string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transferErrors[op]
}

// errorOps returns the operations with recorded errors in stable order
func (s Snapshot) errorOps() []string {
	ops := make([]string, 0, len(s.TransferErrors))
	for op := range s.TransferErrors {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
