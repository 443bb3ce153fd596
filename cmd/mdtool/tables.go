package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arloliu/clrmeta/table"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <file>",
		Short: "List the present tables with row counts and row sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := a.load(args[0])
			if err != nil {
				return err
			}

			th := md.Tables()
			counts := th.RowCounts()
			widths := table.NewWidths(th.HeapOffsetSizes(), &counts)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "heap sizes: 0x%02x  valid: 0x%016x  sorted: 0x%016x\n\n",
				th.HeapOffsetSizes(), th.MaskValid(), th.MaskSorted())

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TAG\tTABLE\tROWS\tROW SIZE\tSORTED")
			for _, tbl := range th.Tables() {
				sorted := th.MaskSorted()&tbl.Type().Mask() != 0
				fmt.Fprintf(w, "0x%02x\t%s\t%d\t%d\t%t\n",
					uint8(tbl.Type()), tbl.Type(), tbl.Len(), widths.RowSize(tbl.Schema()), sorted)
			}

			return w.Flush()
		},
	}
}
