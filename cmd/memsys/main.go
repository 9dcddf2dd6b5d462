// Command memsys is the single-binary entrypoint: HTTP server, hook
// handlers, and operator CLI all dispatch through internal/cli.
package main

import (
	"fmt"
	"os"

	"github.com/localmem/memsys/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
