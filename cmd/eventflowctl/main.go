// Command eventflowctl inspects eventflow settings and failure logs.
package main

import (
	"fmt"
	"os"

	"github.com/randalmurphal/eventflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
