package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show the metadata root header and stream headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.load(args[0])
			if err != nil {
				return err
			}

			h := md.Header()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version:  %s\n", h.Version)
			fmt.Fprintf(out, "format:   %d.%d\n", h.MajorVersion, h.MinorVersion)
			fmt.Fprintf(out, "flags:    0x%04x\n", h.Flags)
			fmt.Fprintf(out, "streams:  %d\n\n", len(h.Streams))

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOFFSET\tSIZE")
			for _, sh := range h.Streams {
				fmt.Fprintf(w, "%s\t0x%08x\t%d\n", sh.Name, sh.Offset, sh.Size)
			}

			return w.Flush()
		},
	}
}
