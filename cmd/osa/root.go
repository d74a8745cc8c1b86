package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "osa",
		Short: "OSA core runtime",
		Long: `osa runs the OSA autonomous agent core: a bounded ReAct reasoning
loop, LLM-based task decomposition into parallel sub-agents, a budget
guard, and a cron/heartbeat scheduler, fronted by an HTTP event stream.`,
		Version:      fmt.Sprintf("%s (commit %s)", version, commit),
		SilenceUsage: true,
	}

	root.AddCommand(
		buildServeCmd(),
		buildSessionCmd(),
		buildCronCmd(),
		buildBudgetCmd(),
	)
	return root
}
