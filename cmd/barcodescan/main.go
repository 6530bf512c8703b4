// Command barcodescan detects and decodes barcodes in image files, undoing
// mild page curl and bowing before giving up on a symbol.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errNothingFound) {
			fmt.Fprintf(os.Stderr, "barcodescan: %v\n", err)
		}
		os.Exit(1)
	}
}
