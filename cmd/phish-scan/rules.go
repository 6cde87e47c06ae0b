package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/phishguard/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with rule documents",
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check that a rule document loads and compiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok %v\n", rs.Source(), rs.Stats())
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
}
