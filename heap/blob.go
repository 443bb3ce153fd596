package heap

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/arloliu/clrmeta/encoding"
	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/internal/hash"
	"github.com/arloliu/clrmeta/internal/pool"
)

const btreeDegree = 16

type blobEntry struct {
	offset uint32
	data   []byte
}

func blobLess(a, b blobEntry) bool {
	return a.offset < b.offset
}

// BlobHeap is the #Blob heap: a sequence of length-prefixed byte blobs.
//
// Offset 0 always denotes the empty blob. Decoded blobs are cached in an
// offset-ordered tree; a content index keyed by xxHash64 lets GetBlobIndex
// reuse byte-identical entries.
type BlobHeap struct {
	stream

	mu      sync.Mutex
	cache   *btree.BTreeG[blobEntry]
	content map[uint64][]uint32
	scanned bool
}

// NewBlobHeap creates an empty blob heap holding only the leading 0x00 byte.
func NewBlobHeap() *BlobHeap {
	return LoadBlobHeap([]byte{0x00})
}

// LoadBlobHeap creates a blob heap over a copy of data.
func LoadBlobHeap(data []byte) *BlobHeap {
	return &BlobHeap{
		stream:  newStream(format.StreamBlob, data),
		cache:   btree.NewG(btreeDegree, blobLess),
		content: make(map[uint64][]uint32),
	}
}

// GetBlob returns the blob stored at offset.
//
// The value is decoded on first access and cached. The returned slice is
// shared with the cache and must not be modified.
//
// Parameters:
//   - offset: Byte offset of the blob's length prefix
//
// Returns:
//   - []byte: Blob contents (empty for offset 0)
//   - error: ErrMalformedEncoding if offset or the encoded length exceed the heap
func (h *BlobHeap) GetBlob(offset uint32) ([]byte, error) {
	if offset == 0 {
		return []byte{}, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.getBlobLocked(offset)
}

func (h *BlobHeap) getBlobLocked(offset uint32) ([]byte, error) {
	if e, ok := h.cache.Get(blobEntry{offset: offset}); ok {
		return e.data, nil
	}

	data, _, err := h.decodeAt(offset)
	if err != nil {
		return nil, err
	}
	h.insertLocked(offset, data)

	return data, nil
}

// decodeAt decodes the blob at offset and returns a private copy of its
// contents plus the total encoded size.
func (h *BlobHeap) decodeAt(offset uint32) ([]byte, int, error) {
	if offset >= h.Size() {
		return nil, 0, fmt.Errorf("%w: blob offset 0x%x beyond heap size 0x%x",
			errs.ErrMalformedEncoding, offset, h.Size())
	}

	length, n, err := encoding.DecodeCompressedUInt32(h.data[offset:])
	if err != nil {
		return nil, 0, fmt.Errorf("blob at 0x%x: %w", offset, err)
	}

	start := int(offset) + n
	end := start + int(length)
	if end > len(h.data) {
		return nil, 0, fmt.Errorf("%w: blob at 0x%x of length %d exceeds heap",
			errs.ErrMalformedEncoding, offset, length)
	}

	out := make([]byte, length)
	copy(out, h.data[start:end])

	return out, end - int(offset), nil
}

func (h *BlobHeap) insertLocked(offset uint32, data []byte) {
	if _, replaced := h.cache.ReplaceOrInsert(blobEntry{offset: offset, data: data}); replaced {
		return
	}
	if len(data) == 0 {
		return
	}
	sum := hash.Sum(data)
	h.content[sum] = append(h.content[sum], offset)
}

// ReadAllBlobs scans the heap from offset 1 and caches every blob.
//
// An empty entry inside the heap is cached and skipped. The scan ends at the
// end of the heap or at an empty entry that is followed only by zero padding.
func (h *BlobHeap) ReadAllBlobs() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.readAllLocked()
}

func (h *BlobHeap) readAllLocked() error {
	if h.scanned {
		return nil
	}

	pos := uint32(1)
	for pos < h.Size() {
		if h.data[pos] == 0 && isZeroPadding(h.data[pos:]) {
			break
		}

		data, n, err := h.decodeAt(pos)
		if err != nil {
			return err
		}
		if !h.cache.Has(blobEntry{offset: pos}) {
			h.insertLocked(pos, data)
		}
		pos += uint32(n) //nolint:gosec
	}
	h.scanned = true

	return nil
}

func isZeroPadding(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}

	return true
}

// GetBlobIndex returns the offset of a blob byte-equal to b, appending b to
// the heap if no such blob exists.
//
// The whole heap is scanned first so that every existing blob participates in
// the lookup. An empty b maps to offset 0.
//
// Returns:
//   - uint32: Offset of the blob
//   - error: scan errors, or ErrEncodingOverflow if b is too long to encode
func (h *BlobHeap) GetBlobIndex(b []byte) (uint32, error) {
	if len(b) == 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.readAllLocked(); err != nil {
		return 0, err
	}

	for _, off := range h.content[hash.Sum(b)] {
		if e, ok := h.cache.Get(blobEntry{offset: off}); ok && bytes.Equal(e.data, b) {
			return off, nil
		}
	}

	offset := h.Size()
	data, err := encoding.AppendCompressedUInt32(h.data, uint32(len(b))) //nolint:gosec
	if err != nil {
		return 0, err
	}
	h.data = append(data, b...)

	owned := make([]byte, len(b))
	copy(owned, b)
	h.insertLocked(offset, owned)

	return offset, nil
}

// Reader returns a BlobReader over the blob at offset.
func (h *BlobHeap) Reader(offset uint32) (*encoding.BlobReader, error) {
	b, err := h.GetBlob(offset)
	if err != nil {
		return nil, err
	}

	return encoding.NewBlobReader(b), nil
}

// Reconstruct rewrites the heap from its cached blobs.
//
// Every blob is re-read, then the heap is rebuilt as a 0x00 byte followed by
// each cached blob in offset order. Gaps are zero filled so every known offset
// keeps its value, and the result is padded to a multiple of 4 bytes.
// Running Reconstruct twice yields identical bytes.
func (h *BlobHeap) Reconstruct() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.readAllLocked(); err != nil {
		return err
	}

	buf := pool.GetHeapBuffer()
	defer pool.PutHeapBuffer(buf)

	_ = buf.WriteByte(0)

	var werr error
	var tmp [4]byte
	h.cache.Ascend(func(e blobEntry) bool {
		if int(e.offset) < buf.Len() {
			werr = fmt.Errorf("%w: blob at 0x%x overlaps previous entry", errs.ErrMalformedEncoding, e.offset)
			return false
		}
		buf.WriteZeros(int(e.offset) - buf.Len())

		prefix, err := encoding.AppendCompressedUInt32(tmp[:0], uint32(len(e.data))) //nolint:gosec
		if err != nil {
			werr = err
			return false
		}
		buf.MustWrite(prefix)
		buf.MustWrite(e.data)

		return true
	})
	if werr != nil {
		return werr
	}
	buf.Align(4)

	h.data = buf.Clone()

	return nil
}

// Len returns the number of cached blobs.
func (h *BlobHeap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.cache.Len()
}

// ClearCache drops every cached blob. It is safe to call at any time.
func (h *BlobHeap) ClearCache() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cache.Clear(false)
	h.content = make(map[uint64][]uint32)
	h.scanned = false
}
