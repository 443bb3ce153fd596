package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/clrmeta/endian"
	"github.com/arloliu/clrmeta/metadata"
	"github.com/arloliu/clrmeta/section"
	"github.com/arloliu/clrmeta/snapshot"
)

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg    Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mdtool",
		Short: "Inspect and rewrite CLI metadata directories",
		Long: `mdtool reads a CLI (.NET) metadata directory, the block that starts with the
"BSJB" signature, and prints or regenerates its streams.

Examples:
  mdtool info app.meta                         Show the root header and streams
  mdtool tables app.meta                       List present tables and row counts
  mdtool rebuild app.meta --out app.new.meta   Regenerate every stream
  mdtool snapshot app.meta --out app.snap      Store a compressed snapshot`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newInfoCmd(a),
		newTablesCmd(a),
		newRebuildCmd(a),
		newSnapshotCmd(a),
	)

	return root
}

func (a *app) init(*cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	logger, err := cfg.Log.buildLogger()
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}
	a.cfg = cfg
	a.logger = logger

	return nil
}

// readDirectory returns the metadata directory stored in path, unwrapping a
// snapshot when the file starts with the snapshot magic.
func (a *app) readDirectory(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	magic := endian.GetLittleEndianEngine().AppendUint32(nil, section.SnapshotMagic)
	if !bytes.HasPrefix(data, magic) {
		return data, nil
	}

	raw, h, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.logger.Debug("snapshot unwrapped",
		zap.String("path", path),
		zap.Stringer("compression", h.Compression),
		zap.Time("created_at", h.CreatedAtTime()))

	return raw, nil
}

func (a *app) load(path string, opts ...metadata.Option) (*metadata.Metadata, error) {
	data, err := a.readDirectory(path)
	if err != nil {
		return nil, err
	}

	md, err := metadata.Load(data, append([]metadata.Option{metadata.WithLogger(a.logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return md, nil
}
