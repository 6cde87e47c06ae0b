package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/mikey/phishguard/internal/di"
)

var flags = &di.CLIFlags{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phish-scan",
	Short: "Score emails for phishing risk and manage trusted senders",
	Long: `phish-scan runs the phishing detectors on a single message and manages
the user trust lists shared with the phishguard daemon.

Without --config the built-in rules and an in-memory trust store are used,
so trust commands only make sense with a config pointing at a persistent store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "config file (defaults are used when empty)")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "log in JSON format")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(trustCmd)
	rootCmd.AddCommand(rulesCmd)
}

// invoke builds the CLI container and runs fn with its dependencies.
func invoke(fn any) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return err
	}
	return dig.RootCause(container.Invoke(fn))
}
