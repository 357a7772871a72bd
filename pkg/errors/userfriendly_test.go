package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/dbehnke/rt4d-cps/pkg/codeplug"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

func TestUserFriendlyError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      UserFriendlyError
		contains []string
	}{
		{
			name:     "message only",
			err:      UserFriendlyError{Message: "something broke"},
			contains: []string{"something broke"},
		},
		{
			name: "all fields",
			err: UserFriendlyError{
				Message: "read failed",
				Reason:  "timeout",
				Hint:    "check cable",
				Try:     "rt4d radio ports",
				Err:     fmt.Errorf("serial read: timeout"),
			},
			contains: []string{"read failed", "Reason: timeout", "Hint: check cable", "Try: rt4d radio ports", "Details: serial read: timeout"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("Error() = %q, want to contain %q", msg, s)
				}
			}
		})
	}
}

func TestUserFriendlyError_ErrorOmitsEmptyFields(t *testing.T) {
	msg := UserFriendlyError{Message: "msg"}.Error()
	if strings.Contains(msg, "Reason:") || strings.Contains(msg, "Hint:") || strings.Contains(msg, "Try:") || strings.Contains(msg, "Details:") {
		t.Errorf("Error() = %q, should not contain empty fields", msg)
	}
}

func TestWrapNil(t *testing.T) {
	if WrapSerialError(nil, "/dev/ttyUSB0", "read") != nil {
		t.Error("WrapSerialError(nil) should be nil")
	}
	if WrapCodeplugError(nil, "a.4rdmf") != nil {
		t.Error("WrapCodeplugError(nil) should be nil")
	}
	if WrapConfigError(nil, "rt4d.yaml") != nil {
		t.Error("WrapConfigError(nil) should be nil")
	}
}

func TestWrapSerialError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"timeout", fmt.Errorf("block 0x0001: %w", uart.ErrTimeout), "did not answer"},
		{"bootloader", fmt.Errorf("block 0x0000: %w", uart.ErrBootloader), "bootloader mode"},
		{"capacity", uart.ErrCapacityLimit, "does not fit"},
		{"missing port", errors.New("open /dev/ttyUSB9: no such file or directory"), "not found"},
		{"other", errors.New("boom"), "Serial communication failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapSerialError(tt.err, "/dev/ttyUSB0", "read")
			var ufe UserFriendlyError
			if !errors.As(err, &ufe) {
				t.Fatalf("expected UserFriendlyError, got %T", err)
			}
			if !strings.Contains(ufe.Reason, tt.reason) {
				t.Errorf("Reason = %q, want to contain %q", ufe.Reason, tt.reason)
			}
			if !errors.Is(err, tt.err) {
				t.Error("wrapped error should unwrap to the original")
			}
		})
	}
}

func TestWrapCodeplugError(t *testing.T) {
	err := WrapCodeplugError(fmt.Errorf("parse: %w", codeplug.ErrInvalidImageSize), "x.4rdmf")
	if !errors.Is(err, codeplug.ErrInvalidImageSize) {
		t.Fatal("expected ErrInvalidImageSize in chain")
	}
	msg := err.Error()
	if !strings.Contains(msg, "x.4rdmf") || !strings.Contains(msg, "not an RT-4D codeplug") {
		t.Errorf("unexpected message %q", msg)
	}

	msg = WrapCodeplugError(fmt.Errorf("serialize: %w", codeplug.ErrReferenceRange), "x.yaml").Error()
	if !strings.Contains(msg, "keys 1-254") {
		t.Errorf("unexpected message %q", msg)
	}

	_, statErr := os.Stat("/nonexistent/rt4d.4rdmf")
	msg = WrapCodeplugError(statErr, "/nonexistent/rt4d.4rdmf").Error()
	if !strings.Contains(msg, "File does not exist") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestWrapConfigError(t *testing.T) {
	err := WrapConfigError(errors.New("invalid log level"), "rt4d.yaml")
	if !strings.Contains(err.Error(), "rt4d.yaml") {
		t.Errorf("message should name the file: %q", err.Error())
	}
}
