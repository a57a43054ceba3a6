// Command mediactl runs mediakit editing operations from the command line.
// Each invocation runs one task in-process and prints its progress; Ctrl-C
// cancels the running task.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
