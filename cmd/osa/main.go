// Command osa is the OSA core runtime's process entrypoint: it wires the
// library packages under internal/ into a running agent (cmd/osa serve)
// and exposes operator subcommands (session, cron, budget) against the
// same on-disk state, grounded on the donor's cobra-based cmd/nexus entrypoint.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	root := buildRootCmd()
	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
