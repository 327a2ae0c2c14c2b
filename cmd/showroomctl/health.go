package main

import (
	"fmt"
	"strconv"
	"time"

	"showroom-gateway/internal/health"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Inspect or toggle automated replies for a tenant",
	}
	cmd.AddCommand(healthGetCmd(), healthSetCmd())
	return cmd
}

func healthGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <tenant>",
		Short: "Show the AI health state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			m := health.NewMonitor(db, health.Options{LazyRecover: cfg.AIHealthLazyRecover}, newLogger())
			st, err := m.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tenant:   %s\nenabled:  %t\n", st.TenantID, st.Enabled)
			if st.Reason != "" {
				fmt.Fprintf(out, "reason:   %s\n", st.Reason)
			}
			if st.AutoRecoverAt != nil {
				fmt.Fprintf(out, "recovers: %s\n", st.AutoRecoverAt.Format(time.RFC3339))
			}
			if st.UpdatedBy != "" {
				fmt.Fprintf(out, "by:       %s\n", st.UpdatedBy)
			}
			return nil
		},
	}
}

func healthSetCmd() *cobra.Command {
	var (
		reason       string
		recoverAfter time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set <tenant> <true|false>",
		Short: "Enable or disable automated replies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("enabled must be true or false: %w", err)
			}
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			var at *time.Time
			if !enabled && recoverAfter > 0 {
				t := time.Now().Add(recoverAfter)
				at = &t
			}
			m := health.NewMonitor(db, health.Options{LazyRecover: cfg.AIHealthLazyRecover}, newLogger())
			return m.SetEnabled(cmd.Context(), args[0], enabled, reason, "cli", at)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the state changes")
	cmd.Flags().DurationVar(&recoverAfter, "recover-after", 0, "schedule auto recovery when disabling")
	return cmd
}
