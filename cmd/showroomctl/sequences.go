package main

import (
	"fmt"
	"strings"

	"showroom-gateway/internal/database"

	"github.com/spf13/cobra"
)

func syncSequencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-sequences",
		Short: "Reset PostgreSQL id sequences after a bulk import",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			failed, err := database.SyncSequences(db, newLogger())
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("sequence sync failed for %s", strings.Join(failed, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DONE!")
			return nil
		},
	}
}
