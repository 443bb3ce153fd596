package heap

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const workers = 16

// parallel runs fn on workers goroutines and fails t with the first error.
func parallel(t *testing.T, fn func(i int) error) {
	t.Helper()

	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(i); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
}

func TestBlobHeap_ConcurrentAccess(t *testing.T) {
	h := LoadBlobHeap(sampleBlobHeap())

	parallel(t, func(i int) error {
		if i%2 == 0 {
			b, err := h.GetBlob(1)
			if err != nil {
				return err
			}
			if !bytes.Equal([]byte{0x06, 0x08, 0x01}, b) {
				return fmt.Errorf("blob 1 = %x", b)
			}

			return nil
		}

		want := []byte{0x07, byte(i), byte(i >> 8)}
		off, err := h.GetBlobIndex(want)
		if err != nil {
			return err
		}
		got, err := h.GetBlob(off)
		if err != nil {
			return err
		}
		if !bytes.Equal(want, got) {
			return fmt.Errorf("blob at 0x%x = %x, want %x", off, got, want)
		}

		return nil
	})

	// two blobs and the empty entry at offset 5, plus one per writer
	require.Equal(t, 3+workers/2, h.Len())
}

func TestStringHeap_ConcurrentAccess(t *testing.T) {
	h := LoadStringHeap([]byte("\x00Object\x00System\x00"))

	parallel(t, func(i int) error {
		if i%2 == 0 {
			s, err := h.GetStringByOffset(8)
			if err != nil {
				return err
			}
			if s != "System" {
				return fmt.Errorf("offset 8 = %q", s)
			}

			return nil
		}

		want := fmt.Sprintf("Field%d", i)
		off, err := h.GetStringOffset(want)
		if err != nil {
			return err
		}
		got, err := h.GetStringByOffset(off)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("offset 0x%x = %q, want %q", off, got, want)
		}

		return nil
	})
}

func TestUserStringHeap_ConcurrentAccess(t *testing.T) {
	h := NewUserStringHeap()
	hello, err := h.GetStringOffset("hello")
	require.NoError(t, err)

	parallel(t, func(i int) error {
		if i%2 == 0 {
			s, err := h.GetStringByOffset(hello)
			if err != nil {
				return err
			}
			if s != "hello" {
				return fmt.Errorf("offset 0x%x = %q", hello, s)
			}

			return nil
		}

		want := fmt.Sprintf("message %d", i)
		off, err := h.GetStringOffset(want)
		if err != nil {
			return err
		}
		got, err := h.GetStringByOffset(off)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("offset 0x%x = %q, want %q", off, got, want)
		}

		return nil
	})
}

func TestGuidHeap_ConcurrentAccess(t *testing.T) {
	first := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
	h := LoadGuidHeap(first[:])

	parallel(t, func(i int) error {
		if i%2 == 0 {
			g, err := h.GetGuidByOffset(1)
			if err != nil {
				return err
			}
			if g != first {
				return fmt.Errorf("GUID 1 = %s", g)
			}
			if h.Len() < 1 {
				return fmt.Errorf("heap lost entries: %d", h.Len())
			}

			return nil
		}

		want := uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(i)})
		idx, err := h.GetGuidOffset(want)
		if err != nil {
			return err
		}
		got, err := h.GetGuidByOffset(idx)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("GUID %d = %s, want %s", idx, got, want)
		}

		return nil
	})

	require.Equal(t, 1+workers/2, h.Len())
}
