package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// runMainMenu is the default entrypoint: a small menu loop matching how the
// tool is used at the scanner, one keypress away from each task.
func runMainMenu(ctx *commandContext, cmd *cobra.Command) error {
	if !stdinIsTerminal() {
		return cmd.Help()
	}

	reader := newLineReader(os.Stdin)
	for {
		fmt.Println()
		fmt.Println("photoscan")
		fmt.Println("  1) Start scanning")
		fmt.Println("  2) Calibrate positions")
		fmt.Println("  3) Settings")
		fmt.Println("  4) History")
		fmt.Println("  5) Exit")

		choice, err := reader.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = runScan(ctx, cmd)
		case "2":
			err = runCalibration(cmd.Context(), ctx, reader)
		case "3":
			err = runSettings(ctx, reader)
		case "4":
			err = runHistoryMenu(ctx, cmd)
		case "5", "q", "":
			return nil
		default:
			fmt.Println("Unknown choice.")
			continue
		}
		if err != nil {
			// Keep the menu alive; the operator fixes the problem and retries.
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func runHistoryMenu(ctx *commandContext, cmd *cobra.Command) error {
	historyCmd := newHistoryCommand(ctx)
	historyCmd.SetContext(cmd.Context())
	historyCmd.SetOut(cmd.OutOrStdout())
	return historyCmd.RunE(historyCmd, nil)
}
