// Command generic-rest serves a schema-configurable REST store.
package main

import (
	"fmt"
	"os"

	"github.com/sverrirab/generic-rest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
