// Command tzxinfo lists the standard-speed data blocks found in a TZX
// tape image, grounded on the retroio tzx package's
// DisplayImageMetadata (list each parsed block with its size).
package main

import (
	"flag"
	"fmt"
	"os"

	"zxspectrum/internal/tape"
)

func main() {
	path := flag.String("in", "", "path to a .tzx tape image")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Usage: tzxinfo -in <file.tzx>")
		os.Exit(1)
	}

	f, err := os.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening tape: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	t, err := tape.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing tape: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d standard-speed data block(s):\n", len(t.Blocks))
	for i, block := range t.Blocks {
		kind := "data"
		if len(block.Data) > 0 && block.Data[0] < 0x80 {
			kind = "header"
		}
		fmt.Printf("#%03d %-6s %5d bytes, pause %dms\n", i+1, kind, len(block.Data), block.PauseMillis)
	}
}
