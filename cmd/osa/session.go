package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func buildSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and manage sessions (§4.K)",
	}
	cmd.AddCommand(buildSessionNewCmd(), buildSessionListCmd(), buildSessionShowCmd())
	return cmd
}

func buildSessionNewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			id, err := app.sessions.Create("")
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}

func buildSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			ids, err := listSessionFiles(app.sessionsDir)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func buildSessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's message transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			messages, err := app.sessions.GetMessages(args[0])
			if err != nil {
				return err
			}
			for _, m := range messages {
				fmt.Printf("[%s] %s\n", m.Role, m.Content)
			}
			return nil
		},
	}
}

// listSessionFiles lists every <sessionsDir>/<id>.jsonl transcript,
// matching the flat-file layout internal/sessions.AppendMessage writes.
func listSessionFiles(sessionsDir string) ([]string, error) {
	entries, err := os.ReadDir(sessionsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(ids)
	return ids, nil
}
