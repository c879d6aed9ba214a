// Command flowengine runs one board to completion. See package cli for the
// command's flags and the backends it wires up.
package main

import (
	"fmt"
	"os"

	"github.com/evalgo/flowengine/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
