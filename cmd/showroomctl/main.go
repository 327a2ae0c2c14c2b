// Command showroomctl is the operator CLI for the showroom gateway.
package main

import (
	"log/slog"
	"os"

	"showroom-gateway/internal/config"
	"showroom-gateway/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "showroomctl",
	Short:        "Operator tooling for the showroom gateway",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(syncSequencesCmd())
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openDB connects with the same environment the server uses.
func openDB() (*gorm.DB, *config.Config, error) {
	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	return db, cfg, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
