package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrefixesCommand(ctx *commandContext) *cobra.Command {
	prefixesCmd := &cobra.Command{
		Use:   "prefixes",
		Short: "Manage cartridge prefix destinations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show configured prefix folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.prefixStore()
			if err != nil {
				return err
			}
			prefixes, err := store.Load()
			if err != nil {
				return err
			}
			if len(prefixes) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No prefixes configured. Add one with `photoscan prefixes add <prefix> <folder>`.\n")
				return nil
			}
			rows := make([][]string, 0, len(prefixes))
			for _, prefix := range prefixes.Prefixes() {
				rows = append(rows, []string{prefix, prefixes[prefix]})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Prefix", "Folder"}, rows))
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <prefix> <folder>",
		Short: "Map a cartridge prefix to a destination folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.prefixStore()
			if err != nil {
				return err
			}
			if _, err := store.Add(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prefix %s now writes to %s\n", args[0], args[1])
			return nil
		},
	}

	prefixesCmd.AddCommand(listCmd)
	prefixesCmd.AddCommand(addCmd)
	return prefixesCmd
}
