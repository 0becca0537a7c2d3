package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pharmagarde/pharmagarde/internal/platform/discovery"
)

func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find Pharma Garde servers on the local network",
		RunE: func(cmd *cobra.Command, args []string) error {
			wait, _ := cmd.Flags().GetDuration("wait")
			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			services, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				fmt.Println("No server found.")
				return nil
			}
			for _, s := range services {
				fmt.Printf("%-30s %s\n", s.Instance, s.BaseURL())
			}
			fmt.Println("Use --api or GARDE_API_URL to point the client at one of them.")
			return nil
		},
	}
	cmd.Flags().Duration("wait", 3*time.Second, "How long to listen for announcements")
	return cmd
}
