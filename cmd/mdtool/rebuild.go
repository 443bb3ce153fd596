package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/clrmeta/metadata"
)

func newRebuildCmd(a *app) *cobra.Command {
	var (
		out      string
		lenient  bool
		keepBlob bool
	)

	cmd := &cobra.Command{
		Use:   "rebuild <file>",
		Short: "Regenerate every stream and write the new directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}

			md, err := a.load(args[0],
				metadata.WithStrictReferences(!lenient),
				metadata.WithBlobReconstruction(!keepBlob))
			if err != nil {
				return err
			}

			layout, err := md.Rebuild()
			if err != nil {
				return fmt.Errorf("rebuild %s: %w", args[0], err)
			}
			data, err := md.Bytes()
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil { //nolint:gosec
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d bytes, %d streams\n", out, layout.TotalSize, len(layout.Streams))

			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "Write null required references as 0 instead of failing")
	cmd.Flags().BoolVar(&keepBlob, "keep-blob-heap", false, "Append to the #Blob heap instead of rewriting it")

	return cmd
}
