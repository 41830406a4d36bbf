// Command uprove normalizes U-expressions and runs normalization
// scenarios.
package main

import (
	"os"

	"github.com/roach88/uprove/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
