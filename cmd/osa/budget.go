package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func buildBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect spend against configured limits (§4.F)",
	}
	cmd.AddCommand(buildBudgetStatusCmd())
	return cmd
}

func buildBudgetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print today's and this month's spend against limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			fmt.Printf("daily:   $%.2f / $%.2f\n", app.budget.DailySpend(), app.cfg.DailyBudgetUSD)
			fmt.Printf("monthly: $%.2f / $%.2f\n", app.budget.MonthlySpend(), app.cfg.MonthlyBudgetUSD)
			if app.treasury != nil {
				snap := app.treasury.Snapshot()
				fmt.Printf("treasury balance: $%.2f (reserved $%.2f, available $%.2f)\n", snap.Balance, snap.Reserved, snap.Available)
			}
			return nil
		},
	}
}
