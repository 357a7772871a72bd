// Package errors turns low-level failures into messages a radio operator
// can act on.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapSerialError wraps radio transfer errors with user-friendly context
func WrapSerialError(err error, port string, operation string) error {
	if err == nil {
		return nil
	}

	e := UserFriendlyError{
		Message: fmt.Sprintf("Radio %s failed on %s", operation, port),
		Reason:  extractSerialReason(err),
		Hint:    "Check the programming cable and that the radio is powered on",
		Try:     "rt4d radio ports",
		Err:     err,
	}
	switch {
	case stderrors.Is(err, uart.ErrBootloader):
		e.Hint = "Power cycle the radio without holding PTT to leave bootloader mode"
		e.Try = ""
	case stderrors.Is(err, uart.ErrCapacityMismatch), stderrors.Is(err, uart.ErrCapacityLimit):
		e.Hint = "Reduce the number of contacts or filter the address book by country"
		e.Try = "rt4d addressbook export --country <name>"
	}
	return e
}

// WrapCodeplugError wraps image and model errors with user-friendly context
func WrapCodeplugError(err error, path string) error {
	if err == nil {
		return nil
	}

	e := UserFriendlyError{
		Message: fmt.Sprintf("Codeplug error in %s", path),
		Reason:  extractCodeplugReason(err),
		Err:     err,
	}
	switch {
	case stderrors.Is(err, codeplug.ErrInvalidImageSize):
		e.Hint = fmt.Sprintf("An RT-4D image is exactly %d bytes", codeplug.ImageSize)
		e.Try = "Read a fresh image: rt4d radio read --out radio.4rdmf"
	case stderrors.Is(err, codeplug.ErrPositionCollision), stderrors.Is(err, codeplug.ErrPositionOutOfRange):
		e.Hint = fmt.Sprintf("Channel positions must be unique and between 1 and %d; 0 assigns the next free slot", codeplug.ChannelCount)
	case stderrors.Is(err, codeplug.ErrCapacityExceeded):
		e.Hint = "Remove entries or convert to a layout with room for them"
	case stderrors.Is(err, codeplug.ErrReferenceRange):
		e.Hint = fmt.Sprintf("Beta41 channels can only use encryption keys 1-%d", codeplug.LayoutBeta41.MaxKeyReference()+1)
	case stderrors.Is(err, fs.ErrNotExist):
		e.Hint = "Check the file path"
	}
	return e
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "See rt4d.yaml.example for the available settings",
		Try:     "Environment variables override the file, e.g. RT4D_SERIAL_PORT=/dev/ttyUSB0",
		Err:     err,
	}
}

func extractSerialReason(err error) string {
	switch {
	case stderrors.Is(err, uart.ErrTimeout):
		return "The radio did not answer in time"
	case stderrors.Is(err, uart.ErrNoAck):
		return "The radio rejected a block"
	case stderrors.Is(err, uart.ErrChecksum):
		return "A block arrived corrupted"
	case stderrors.Is(err, uart.ErrBootloader):
		return "The radio is in bootloader mode"
	case stderrors.Is(err, uart.ErrCapacityMismatch):
		return "The radio reported an address book capacity mismatch"
	case stderrors.Is(err, uart.ErrCapacityLimit):
		return "The address book does not fit in the radio's flash"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "no such file") || strings.Contains(errStr, "not found") {
		return "Serial port not found - is the cable plugged in?"
	}
	if strings.Contains(errStr, "permission denied") || strings.Contains(errStr, "busy") {
		return "Serial port is in use or not accessible"
	}
	return "Serial communication failed"
}

func extractCodeplugReason(err error) string {
	switch {
	case stderrors.Is(err, codeplug.ErrInvalidImageSize):
		return "File is not an RT-4D codeplug image"
	case stderrors.Is(err, codeplug.ErrPositionCollision):
		return "Two channels claim the same position"
	case stderrors.Is(err, codeplug.ErrPositionOutOfRange):
		return "A channel position is outside the channel table"
	case stderrors.Is(err, codeplug.ErrCapacityExceeded):
		return "More entries than the radio can store"
	case stderrors.Is(err, codeplug.ErrReferenceRange):
		return "A channel refers to an entry its layout cannot address"
	case stderrors.Is(err, fs.ErrNotExist):
		return "File does not exist"
	}
	return "Codeplug could not be processed"
}
