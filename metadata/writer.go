package metadata

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/arloliu/clrmeta/errs"
	"github.com/arloliu/clrmeta/internal/pool"
	"github.com/arloliu/clrmeta/section"
)

// Bytes serializes the metadata directory: the root header, the stream
// headers and every stream at its recorded offset.
//
// Returns:
//   - []byte: The metadata directory
//   - error: ErrStreamOutOfRange if a stream grew past its header since the
//     last Rebuild or two streams overlap
func (m *Metadata) Bytes() ([]byte, error) {
	buf := pool.GetTableBuffer()
	defer pool.PutTableBuffer(buf)

	if err := m.writeInto(buf); err != nil {
		return nil, err
	}

	return buf.Clone(), nil
}

// WriteTo writes the serialized metadata directory to w.
func (m *Metadata) WriteTo(w io.Writer) (int64, error) {
	buf := pool.GetTableBuffer()
	defer pool.PutTableBuffer(buf)

	if err := m.writeInto(buf); err != nil {
		return 0, err
	}

	return buf.WriteTo(w)
}

func (m *Metadata) writeInto(buf *pool.ByteBuffer) error {
	buf.MustWrite(m.header.Bytes())

	streams := slices.Clone(m.header.Streams)
	slices.SortStableFunc(streams, func(a, b section.StreamHeader) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	for _, sh := range streams {
		content, ok := m.streamContent(sh.Name)
		if !ok {
			continue
		}
		if uint64(len(content)) > uint64(sh.Size) {
			return fmt.Errorf("%w: %s holds %d bytes, header allows %d; rebuild the layout first",
				errs.ErrStreamOutOfRange, sh.Name, len(content), sh.Size)
		}
		if int(sh.Offset) < buf.Len() {
			return fmt.Errorf("%w: %s at 0x%x overlaps data ending at 0x%x",
				errs.ErrStreamOutOfRange, sh.Name, sh.Offset, buf.Len())
		}

		buf.WriteZeros(int(sh.Offset) - buf.Len())
		buf.MustWrite(content)
		buf.WriteZeros(int(sh.Size) - len(content))
	}

	return nil
}
