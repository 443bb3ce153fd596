package heap

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
)

// GuidSize is the size of one #GUID entry.
const GuidSize = 16

// GuidHeap is the #GUID heap, addressed by 1-based index.
//
// Values keep the on-disk byte order; uuid.UUID is used as a 16-byte value
// type and its String form is therefore not the mixed-endian CLI notation.
type GuidHeap struct {
	stream

	mu      sync.Mutex
	indices map[uuid.UUID]uint32
}

// NewGuidHeap creates an empty GUID heap.
func NewGuidHeap() *GuidHeap {
	return LoadGuidHeap(nil)
}

// LoadGuidHeap creates a GUID heap over a copy of data.
func LoadGuidHeap(data []byte) *GuidHeap {
	return &GuidHeap{
		stream: newStream(format.StreamGUID, data),
	}
}

// Len returns the number of GUIDs in the heap.
func (h *GuidHeap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.count()
}

func (h *GuidHeap) count() int {
	return len(h.data) / GuidSize
}

// GetGuidByOffset returns the GUID at the 1-based index, occupying bytes
// [(index-1)*16, index*16). Index 0 is the nil GUID.
func (h *GuidHeap) GetGuidByOffset(index uint32) (uuid.UUID, error) {
	if index == 0 {
		return uuid.Nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	end := uint64(index) * GuidSize
	if end > uint64(len(h.data)) {
		return uuid.Nil, fmt.Errorf("%w: GUID index %d beyond heap of %d entries",
			errs.ErrMalformedEncoding, index, h.count())
	}

	return uuid.FromBytes(h.data[end-GuidSize : end])
}

// GetGuidOffset returns the 1-based index of g, appending it if absent. The
// nil GUID maps to index 0.
func (h *GuidHeap) GetGuidOffset(g uuid.UUID) (uint32, error) {
	if g == uuid.Nil {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.indices == nil {
		h.indices = make(map[uuid.UUID]uint32, h.count())
		for i := h.count(); i >= 1; i-- {
			var v uuid.UUID
			copy(v[:], h.data[(i-1)*GuidSize:i*GuidSize])
			h.indices[v] = uint32(i) //nolint:gosec
		}
	}

	if idx, ok := h.indices[g]; ok {
		return idx, nil
	}

	// drop a partial trailing entry so the new GUID lands on a boundary
	h.data = h.data[:h.count()*GuidSize]
	h.data = append(h.data, g[:]...)
	idx := uint32(h.count()) //nolint:gosec
	h.indices[g] = idx

	return idx, nil
}

// ClearCache drops the index lookup table.
func (h *GuidHeap) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.indices = nil
}
