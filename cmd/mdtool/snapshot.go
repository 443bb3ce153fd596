package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arloliu/clrmeta"
	"github.com/arloliu/clrmeta/snapshot"
)

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		out         string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Rebuild a directory and store it as a compressed snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}

			sc := a.cfg.Snapshot
			if compression != "" {
				sc.Compression = compression
			}
			ct, err := sc.compression()
			if err != nil {
				return err
			}

			md, err := a.load(args[0])
			if err != nil {
				return err
			}
			snap, err := clrmeta.Snapshot(md, snapshot.WithCompression(ct))
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, snap, 0o644); err != nil { //nolint:gosec
				return err
			}

			h, err := snapshot.ReadHeader(snap)
			if err != nil {
				return err
			}
			stats := snapshot.Stats(h)
			a.logger.Info("snapshot written",
				zap.String("path", out),
				zap.Stringer("compression", ct),
				zap.Int64("raw_size", stats.OriginalSize),
				zap.Int64("payload_size", stats.CompressedSize))

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %s, %d -> %d bytes (%.1f%% saved)\n",
				out, ct, stats.OriginalSize, stats.CompressedSize, stats.SpaceSavings())

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().StringVar(&compression, "compression", "", "Payload codec: none, zstd, s2 or lz4 (default from config)")

	return cmd
}
