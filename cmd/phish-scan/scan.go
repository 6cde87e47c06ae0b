package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/phishguard/internal/adapters/extract"
	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/core"
)

var (
	scanFile string
	scanJSON string
	failOn   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score one email",
	Long: `scan reads a raw RFC 5322 message (--file, or stdin) or an EmailData JSON
document (--json) and prints the verdict.

  phish-scan scan --file suspicious.eml
  phish-scan scan --json email.json --light --output-json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFile, "file", "", "raw message file (stdin when neither --file nor --json is set)")
	scanCmd.Flags().StringVar(&scanJSON, "json", "", "EmailData JSON file")
	scanCmd.Flags().IntVar(&flags.Threshold, "threshold", 0, "score at or above which the email is flagged (config value when 0)")
	scanCmd.Flags().BoolVar(&flags.Light, "light", false, "run the light check only")
	scanCmd.Flags().BoolVar(&flags.DeepScan, "deep", false, "ask the configured deep scan provider for a second opinion")
	scanCmd.Flags().BoolVar(&flags.JSONOutput, "output-json", false, "print the verdict as JSON")
	scanCmd.Flags().BoolVar(&failOn, "exit-code", false, "exit with status 2 when the email is flagged")
	scanCmd.MarkFlagsMutuallyExclusive("file", "json")
}

func runScan(cmd *cobra.Command, _ []string) error {
	return invoke(func(cli *filter.CliFilter, extractor *extract.Extractor) error {
		email, err := readEmail(cmd.InOrStdin(), extractor)
		if err != nil {
			return err
		}

		verdict, err := cli.ProcessEmail(cmd.Context(), email)
		if err != nil {
			return err
		}
		if failOn && verdict.Flagged {
			os.Exit(2)
		}
		return nil
	})
}

func readEmail(stdin io.Reader, extractor *extract.Extractor) (*core.EmailData, error) {
	if scanJSON != "" {
		data, err := os.ReadFile(scanJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", scanJSON, err)
		}
		var email core.EmailData
		if err := json.Unmarshal(data, &email); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", scanJSON, err)
		}
		return &email, nil
	}

	if scanFile != "" {
		f, err := os.Open(scanFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", scanFile, err)
		}
		defer f.Close()
		return extractor.FromReader(f)
	}

	return extractor.FromReader(stdin)
}
