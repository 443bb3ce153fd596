package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arloliu/clrmeta/format"
)

// Config is the mdtool configuration file.
//
//	[log]
//	level = "debug"
//	development = true
//
//	[snapshot]
//	compression = "lz4"
type Config struct {
	Log      LogConfig      `toml:"log"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// LogConfig selects the logger built for the library.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// SnapshotConfig holds the defaults of the snapshot command.
type SnapshotConfig struct {
	Compression string `toml:"compression"`
}

func defaultConfig() Config {
	return Config{
		Log:      LogConfig{Level: "warn"},
		Snapshot: SnapshotConfig{Compression: "zstd"},
	}
}

// loadConfig decodes path over the defaults. Unknown keys are rejected.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return cfg, fmt.Errorf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// buildLogger creates the zap logger described by c, writing to stderr.
func (c LogConfig) buildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

func (c SnapshotConfig) compression() (format.CompressionType, error) {
	ct, ok := format.ParseCompressionType(c.Compression)
	if !ok {
		return 0, fmt.Errorf("unknown compression %q", c.Compression)
	}

	return ct, nil
}
