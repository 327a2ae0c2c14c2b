package main

import (
	"fmt"
	"sort"

	"showroom-gateway/internal/maintenance"

	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var (
		tenantID  string
		confirm   bool
		inventory bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete a tenant's conversations, logs, leads and AI state",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			counts, err := maintenance.ResetTenant(cmd.Context(), db, tenantID,
				maintenance.Options{Confirm: confirm, IncludeInventory: inventory}, newLogger())
			if err != nil {
				return err
			}

			tables := make([]string, 0, len(counts))
			for t := range counts {
				tables = append(tables, t)
			}
			sort.Strings(tables)
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %d\n", t, counts[t])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required, the reset cannot be undone")
	cmd.Flags().BoolVar(&inventory, "inventory", false, "also delete vehicles")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}
