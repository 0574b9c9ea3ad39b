// Command postal runs libpostal operations from the command line, serves
// them over HTTP, or explores them interactively.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := execute(context.Background(), a, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
