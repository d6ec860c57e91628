// Command jackalope manages content repositories stored in SQLite files.
package main

import (
	"os"

	"github.com/damz/jackalope/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
