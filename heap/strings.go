package heap

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// StringHeap is the #Strings heap of null-terminated UTF-8 identifiers.
type StringHeap struct {
	stream

	mu      sync.Mutex
	cache   map[uint32]string
	offsets map[string]uint32
	scanned bool
}

// NewStringHeap creates an empty string heap holding only the leading 0x00 byte.
func NewStringHeap() *StringHeap {
	return LoadStringHeap([]byte{0x00})
}

// LoadStringHeap creates a string heap over a copy of data.
func LoadStringHeap(data []byte) *StringHeap {
	return &StringHeap{
		stream:  newStream(format.StreamStrings, data),
		cache:   make(map[uint32]string),
		offsets: make(map[string]uint32),
	}
}

// GetStringByOffset returns the null-terminated string starting at offset.
//
// Offset 0 is the empty string. An offset may point into the middle of a
// longer entry, in which case the tail of that entry is returned.
func (h *StringHeap) GetStringByOffset(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.cache[offset]; ok {
		return s, nil
	}

	s, err := h.decodeAt(offset)
	if err != nil {
		return "", err
	}
	h.cache[offset] = s

	return s, nil
}

func (h *StringHeap) decodeAt(offset uint32) (string, error) {
	if offset >= h.Size() {
		return "", fmt.Errorf("%w: string offset 0x%x beyond heap size 0x%x",
			errs.ErrMalformedEncoding, offset, h.Size())
	}

	end := bytes.IndexByte(h.data[offset:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at 0x%x", errs.ErrMalformedEncoding, offset)
	}

	return string(h.data[offset : int(offset)+end]), nil
}

// ReadAllStrings scans the heap and caches every entry.
func (h *StringHeap) ReadAllStrings() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.readAllLocked()
}

func (h *StringHeap) readAllLocked() error {
	if h.scanned {
		return nil
	}

	pos := uint32(1)
	for pos < h.Size() {
		s, err := h.decodeAt(pos)
		if err != nil {
			// trailing bytes without a terminator are padding
			if isZeroPadding(h.data[pos:]) {
				break
			}

			return err
		}
		if s != "" {
			h.cache[pos] = s
			if _, ok := h.offsets[s]; !ok {
				h.offsets[s] = pos
			}
		}
		pos += uint32(len(s)) + 1 //nolint:gosec
	}
	h.scanned = true

	return nil
}

// GetStringOffset returns the offset of an entry equal to s, appending s to
// the heap if none exists. The empty string maps to offset 0.
//
// Returns:
//   - uint32: Offset of the entry
//   - error: ErrMalformedEncoding if s contains a NUL byte or the heap is corrupt
func (h *StringHeap) GetStringOffset(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	if strings.IndexByte(s, 0) >= 0 {
		return 0, fmt.Errorf("%w: identifier %q contains NUL", errs.ErrMalformedEncoding, s)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.readAllLocked(); err != nil {
		return 0, err
	}

	if off, ok := h.offsets[s]; ok {
		return off, nil
	}

	offset := h.Size()
	h.data = append(h.data, s...)
	h.data = append(h.data, 0)
	h.cache[offset] = s
	h.offsets[s] = offset

	return offset, nil
}

// ClearCache drops every cached string.
func (h *StringHeap) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.cache)
	clear(h.offsets)
	h.scanned = false
}
