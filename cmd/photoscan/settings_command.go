package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "View and change scan settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettings(ctx, newLineReader(os.Stdin))
		},
	}
}

func runSettings(ctx *commandContext, reader *lineReader) error {
	layoutStore, err := ctx.layoutStore()
	if err != nil {
		return err
	}
	return editSettings(layoutStore, reader)
}

// editSettings loops the settings menu. Every accepted change is saved on
// the spot, so stopping mid-session loses nothing.
func editSettings(layoutStore *layout.Store, reader *lineReader) error {
	doc, err := layoutStore.Load()
	if err != nil {
		return err
	}
	settings := doc.ScanSettings

	for {
		printSettings(settings)
		answer, err := reader.ReadLine("Change [1=resolution, 2=color mode, 3=format, 4=preview, q=done]: ")
		if err != nil {
			return err
		}
		switch answer {
		case "1":
			settings.Resolution, err = pickResolution(reader, settings.Resolution)
		case "2":
			settings.Mode, err = pickMode(reader, settings.Mode)
		case "3":
			settings.Format, err = pickFormat(reader, settings.Format)
		case "4":
			settings.PreviewMode, err = pickPreview(reader, settings.PreviewMode)
		case "q", "Q", "":
			return nil
		default:
			fmt.Println("Unknown choice.")
			continue
		}
		if err != nil {
			return err
		}
		if err := layoutStore.SaveSettings(settings); err != nil {
			return err
		}
		fmt.Println("Saved.")
	}
}

func printSettings(s layout.Settings) {
	fmt.Println(renderTable(
		[]string{"Setting", "Value"},
		[][]string{
			{"Resolution", fmt.Sprintf("%d dpi", s.Resolution)},
			{"Color mode", s.Mode.Description()},
			{"Output format", s.Format.Description()},
			{"Preview", s.PreviewMode.Description()},
		},
	))
}

func pickResolution(reader *lineReader, current int) (int, error) {
	fmt.Println("Resolutions:")
	for i, dpi := range layout.Resolutions {
		marker := " "
		if dpi == current {
			marker = "*"
		}
		fmt.Printf("  %d) %4d dpi %s\n", i+1, dpi, marker)
	}
	answer, err := reader.ReadLine("Pick: ")
	if err != nil {
		return 0, err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(layout.Resolutions) {
		return current, nil
	}
	return layout.Resolutions[idx-1], nil
}

func pickMode(reader *lineReader, current layout.ColorMode) (layout.ColorMode, error) {
	modes := []layout.ColorMode{layout.ModeColor, layout.ModeGray, layout.Mode16BitGray, layout.ModeLineart}
	for i, mode := range modes {
		marker := " "
		if mode == current {
			marker = "*"
		}
		fmt.Printf("  %d) %s %s\n", i+1, mode.Description(), marker)
	}
	answer, err := reader.ReadLine("Pick: ")
	if err != nil {
		return "", err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(modes) {
		return current, nil
	}
	return modes[idx-1], nil
}

func pickFormat(reader *lineReader, current layout.Format) (layout.Format, error) {
	formats := []layout.Format{layout.FormatTIFF, layout.FormatPNG, layout.FormatJPEG}
	for i, format := range formats {
		marker := " "
		if format == current {
			marker = "*"
		}
		fmt.Printf("  %d) %s %s\n", i+1, format.Description(), marker)
	}
	answer, err := reader.ReadLine("Pick: ")
	if err != nil {
		return "", err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(formats) {
		return current, nil
	}
	return formats[idx-1], nil
}

func pickPreview(reader *lineReader, current layout.PreviewMode) (layout.PreviewMode, error) {
	modes := []layout.PreviewMode{layout.PreviewOff, layout.PreviewFullBed, layout.PreviewIndividual}
	for i, mode := range modes {
		marker := " "
		if mode == current {
			marker = "*"
		}
		fmt.Printf("  %d) %s %s\n", i+1, mode.Description(), marker)
	}
	answer, err := reader.ReadLine("Pick: ")
	if err != nil {
		return "", err
	}
	idx, err := strconv.Atoi(answer)
	if err != nil || idx < 1 || idx > len(modes) {
		return current, nil
	}
	return modes[idx-1], nil
}
