package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available adapters",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Available adapters:")
		for _, name := range reg.Names() {
			adapter, err := reg.Get(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  - %s: %s (%s)\n", name, adapter.GetDisplayName(), adapter.GetBaseURL())
		}
		return nil
	},
}
