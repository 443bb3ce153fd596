// Command mdtool inspects and rewrites CLI metadata directories.
//
// Usage:
//
//	mdtool info metadata.bin
//	mdtool tables metadata.bin
//	mdtool rebuild metadata.bin --out rebuilt.bin
//	mdtool snapshot metadata.bin --out metadata.snap --compression zstd
//
// Every command also accepts a snapshot file as input.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
