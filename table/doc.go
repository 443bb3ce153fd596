// Package table models the relational metadata tables of a CLI image.
//
// A TablesHeap holds up to 45 tables. Each Table is an ordered list of Rows
// whose Cells follow the table's Schema (ECMA-335 II.22). Cross references
// between rows are materialized as *Row pointers, so inserting or removing
// rows renumbers every reference automatically.
//
// The Reconstructor serializes a (possibly edited) model back into a #~
// stream. It always rebuilds the #Strings heap from scratch and regenerates
// every row from its cells, recomputing heap offsets, row indices and coded
// indices with the widths the final model requires.
package table
