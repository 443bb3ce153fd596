package metadata

import (
	"errors"

	"go.uber.org/zap"

	"github.com/arloliu/clrmeta/internal/options"
)

// Option configures a Metadata model.
type Option = options.Option[*Metadata]

// WithLogger sets the logger used by Load and Rebuild. The default discards
// everything.
func WithLogger(logger *zap.Logger) Option {
	return options.New(func(m *Metadata) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		m.logger = logger

		return nil
	})
}

// WithStrictReferences controls whether Rebuild fails on a null required
// reference (the default) or writes it as 0.
func WithStrictReferences(strict bool) Option {
	return options.NoError(func(m *Metadata) {
		m.strict = strict
	})
}

// WithBlobReconstruction controls whether Rebuild rewrites the #Blob heap from
// its parsed entries. Enabled by default.
func WithBlobReconstruction(enabled bool) Option {
	return options.NoError(func(m *Metadata) {
		m.reconstructBlobs = enabled
	})
}
