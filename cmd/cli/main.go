package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/statuscheck/internal/client"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		apiBase string
		timeout time.Duration
		asJSON  bool
	)

	root := &cobra.Command{
		Use:          "statuscheck",
		Short:        "Client for the status-check API",
		SilenceUsage: true,
	}
	defaultBase := os.Getenv("API_BASE")
	if defaultBase == "" {
		defaultBase = "http://localhost:8080/api"
	}
	root.PersistentFlags().StringVar(&apiBase, "api", defaultBase, "API base URL including prefix (env API_BASE)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON")

	newClient := func() *client.Client {
		c := client.New(apiBase)
		c.HTTP.Timeout = timeout
		return c
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Show service and database health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				h, err := newClient().Health(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, h)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "status=%s database=%s\n", h.Status, h.Database)
				if !h.Healthy() {
					return fmt.Errorf("service unhealthy")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "create <client name>",
			Short: "Record a status check for a client",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				sc, err := newClient().CreateStatusCheck(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, sc)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", sc.ID, sc.Timestamp, sc.ClientName)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List every status check",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := newClient().ListStatusChecks(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "no status checks yet")
					return nil
				}
				for _, sc := range list {
					fmt.Fprintf(out, "%s  %s  %s\n", sc.ID, sc.Timestamp, sc.ClientName)
				}
				return nil
			},
		},
	)
	root.SetContext(context.Background())
	return root
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
