package avr

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// LoadImage fills program memory from a raw little-endian image: byte 2i is
// the low byte of word i, byte 2i+1 the high byte (spec.md §6 / grounded in
// original_source/src/machine.c's load_memory). An image shorter than
// ProgMemSize*2 bytes leaves the remaining words as NOP (0x0000); an image
// that does not fit is an error.
func (m *Machine) LoadImage(data []byte) error {
	capacity := len(m.Flash) * 2
	if len(data) > capacity {
		return errors.Wrapf(ErrLoadFailed, "image is %d bytes, program memory holds %d", len(data), capacity)
	}
	for i := range m.Flash {
		m.Flash[i] = 0
	}
	for i := 0; i+1 < len(data); i += 2 {
		m.Flash[i/2] = uint16(data[i]) | uint16(data[i+1])<<8
	}
	if len(data)%2 == 1 {
		m.Flash[len(data)/2] = uint16(data[len(data)-1])
	}
	return nil
}

// LoadImageFile reads path and loads it as a program image (spec.md §6,
// original_source/src/machine.c's load_memory_from_file). A missing or
// unreadable file is wrapped as ErrLoadFailed.
func (m *Machine) LoadImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrLoadFailed, "open %s: %v", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errors.Wrapf(ErrLoadFailed, "read %s: %v", path, err)
	}
	return m.LoadImage(data)
}
