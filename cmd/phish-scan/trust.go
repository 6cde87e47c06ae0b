package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/trust"
	"github.com/mikey/phishguard/internal/whitelist"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "Inspect and edit the trust lists",
}

var trustCheckCmd = &cobra.Command{
	Use:   "check <sender>",
	Short: "Show how a sender resolves",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(m *trust.Manager) {
			d := m.Check(cmd.Context(), args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "trusted=%t source=%s level=%s\n", d.Trusted, d.Source, d.Level)
		})
	},
}

var trustIgnoreCmd = &cobra.Command{
	Use:   "ignore <sender>",
	Short: "Stop warning about a sender",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(m *trust.Manager) error {
			return m.AddIgnoredSender(cmd.Context(), args[0])
		})
	},
}

var trustUnignoreCmd = &cobra.Command{
	Use:   "unignore <sender-or-domain>",
	Short: "Remove an email or domain from every user list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return invoke(func(m *trust.Manager) error {
			return m.RemoveIgnoredSender(cmd.Context(), args[0])
		})
	},
}

var trustClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the ignore list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return invoke(func(m *trust.Manager) error {
			return m.ClearIgnoredSenders(cmd.Context())
		})
	},
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the global base and the user lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return invoke(func(m *trust.Manager, base *whitelist.Base) error {
			lists, err := m.UserLists(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "global emails: %s\n", strings.Join(base.Emails(), ", "))
			fmt.Fprintf(out, "global domains: %s\n", strings.Join(base.Domains(), ", "))
			for _, key := range core.AllListKeys {
				entries := append([]string{}, lists[key]...)
				sort.Strings(entries)
				fmt.Fprintf(out, "%s: %s\n", key, strings.Join(entries, ", "))
			}
			return nil
		})
	},
}

func init() {
	trustCmd.AddCommand(trustCheckCmd, trustIgnoreCmd, trustUnignoreCmd, trustClearCmd, trustListCmd)
}
