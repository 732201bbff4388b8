package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var cartridge string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the scan journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.historyStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var records []history.Record
			if cartridge != "" {
				records, err = store.ByCartridge(cmd.Context(), cartridge)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scans recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ScannedAt.Local().Format("2006-01-02 15:04"),
					rec.Cartridge,
					rec.Filename,
					strconv.Itoa(rec.Resolution),
					rec.Format,
					strconv.FormatInt(rec.Bytes, 10),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Scanned", "Cartridge", "File", "DPI", "Format", "Bytes"},
				rows, 4, 6))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent scans to show")
	cmd.Flags().StringVar(&cartridge, "cartridge", "", "Show all scans for one cartridge, e.g. P#003")
	return cmd
}
