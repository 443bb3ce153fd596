package snapshot

import (
	"time"

	"github.com/arloliu/clrmeta/compress"
	"github.com/arloliu/clrmeta/format"
	"github.com/arloliu/clrmeta/internal/options"
)

type config struct {
	compression format.CompressionType
	createdAt   time.Time
}

// Option configures Encode.
type Option = options.Option[*config]

// WithCompression selects the payload codec. The default is Zstd.
func WithCompression(compression format.CompressionType) Option {
	return options.New(func(c *config) error {
		if _, err := compress.GetCodec(compression); err != nil {
			return err
		}
		c.compression = compression

		return nil
	})
}

// WithCreatedAt overrides the creation time recorded in the header.
func WithCreatedAt(t time.Time) Option {
	return options.NoError(func(c *config) {
		c.createdAt = t
	})
}
