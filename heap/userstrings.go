package heap

import (
	"fmt"
	"sync"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// UserStringHeap is the #US heap of string literals referenced by ldstr.
//
// Each entry is a compressed byte length, UTF-16LE code units and a trailing
// flag byte that is 1 when the string holds characters needing special
// handling (ECMA-335 II.24.2.4).
type UserStringHeap struct {
	stream

	mu      sync.Mutex
	cache   map[uint32]string
	offsets map[string]uint32
}

// NewUserStringHeap creates an empty user string heap.
func NewUserStringHeap() *UserStringHeap {
	return LoadUserStringHeap([]byte{0x00})
}

// LoadUserStringHeap creates a user string heap over a copy of data.
func LoadUserStringHeap(data []byte) *UserStringHeap {
	return &UserStringHeap{
		stream:  newStream(format.StreamUserStrings, data),
		cache:   make(map[uint32]string),
		offsets: make(map[string]uint32),
	}
}

// GetStringByOffset decodes the literal at offset. Offset 0 is "".
func (h *UserStringHeap) GetStringByOffset(offset uint32) (string, error) {
	if offset == 0 {
		return "", nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.cache[offset]; ok {
		return s, nil
	}
	if offset >= h.Size() {
		return "", fmt.Errorf("%w: user string offset 0x%x beyond heap size 0x%x",
			errs.ErrMalformedEncoding, offset, h.Size())
	}

	r := encoding.NewBlobReader(h.data[offset:])
	n, err := r.ReadCompressedUInt32()
	if err != nil {
		return "", err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}

	var s string
	if n > 0 {
		// the last byte is the flag, not part of the UTF-16 payload
		s, err = encoding.DecodeUTF16(raw[:len(raw)-len(raw)%2])
		if err != nil {
			return "", err
		}
	}
	h.cache[offset] = s
	if _, ok := h.offsets[s]; !ok {
		h.offsets[s] = offset
	}

	return s, nil
}

// GetStringOffset returns the offset of a previously seen literal equal to s
// or appends s as a new entry.
func (h *UserStringHeap) GetStringOffset(s string) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off, ok := h.offsets[s]; ok {
		return off, nil
	}

	payload, err := encoding.EncodeUTF16(s)
	if err != nil {
		return 0, err
	}

	offset := h.Size()
	data, err := encoding.AppendCompressedUInt32(h.data, uint32(len(payload)+1)) //nolint:gosec
	if err != nil {
		return 0, err
	}
	data = append(data, payload...)
	h.data = append(data, userStringFlag(payload))
	h.cache[offset] = s
	h.offsets[s] = offset

	return offset, nil
}

// userStringFlag computes the trailing byte of a #US entry.
func userStringFlag(utf16 []byte) byte {
	for i := 0; i+1 < len(utf16); i += 2 {
		lo, hi := utf16[i], utf16[i+1]
		if hi != 0 {
			return 1
		}
		switch {
		case lo >= 0x01 && lo <= 0x08,
			lo >= 0x0E && lo <= 0x1F,
			lo == 0x27, lo == 0x2D, lo == 0x7F:
			return 1
		}
	}

	return 0
}

// ClearCache drops every cached literal.
func (h *UserStringHeap) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.cache)
	clear(h.offsets)
}
