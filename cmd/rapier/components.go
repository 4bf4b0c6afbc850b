package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recera/rapier/cmd/rapier/internal/ui"
)

func newComponentsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "components <page.html>",
		Short: "List the components a page defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			p, err := openPage(cfg, args[0])
			if err != nil {
				return err
			}

			reg := p.Registry()
			var entries []ui.ComponentEntry
			for _, name := range reg.Names() {
				b, _ := reg.Builder(name)
				entries = append(entries, ui.ComponentEntry{Name: name, Variants: b.VariantNames()})
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.ComponentList(args[0], entries))
			return nil
		},
	}
}
