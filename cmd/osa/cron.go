package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func buildCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Inspect and reload the cron engine (§4.J)",
	}
	cmd.AddCommand(buildCronListCmd(), buildCronReloadCmd())
	return cmd
}

func buildCronListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured cron jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			if err := app.scheduler.Reload(); err != nil {
				return err
			}
			for _, job := range app.scheduler.Jobs() {
				status := "disabled"
				if job.Enabled {
					status = "enabled"
				}
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n", job.ID, job.Name, job.Schedule, job.Type, status)
			}
			return nil
		},
	}
}

func buildCronReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Re-read CRONS.json and TRIGGERS.json from disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())
			return app.scheduler.Reload()
		},
	}
}
