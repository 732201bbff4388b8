package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/naming"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/workflow"
)

// consolePrompter implements workflow.Prompter over stdin/stdout. Previews
// cannot be rendered in a terminal, so they are written as PNG files and the
// path is printed.
type consolePrompter struct {
	reader     *lineReader
	previewDir string
}

func newConsolePrompter(reader *lineReader, previewDir string) *consolePrompter {
	return &consolePrompter{reader: reader, previewDir: previewDir}
}

func (p *consolePrompter) AskCartridge() (string, error) {
	return p.reader.ReadLine("Cartridge (e.g. P#12, P# for the next free number, Enter for generic names): ")
}

func (p *consolePrompter) ConfirmSuggestion(c naming.Cartridge, findings []naming.Finding) (bool, error) {
	if len(findings) > 0 {
		rows := make([][]string, 0, len(findings))
		for _, f := range findings {
			rows = append(rows, []string{f.Folder, strings.Join(f.Cartridges, ", ")})
		}
		fmt.Println(renderTable([]string{"Folder", "Cartridges found"}, rows))
	} else {
		fmt.Println("No existing cartridges found in any configured folder.")
	}
	return p.reader.askYesNo(fmt.Sprintf("Use %s?", c), true)
}

func (p *consolePrompter) AddPrefixFolder(prefix string) (string, bool, error) {
	fmt.Printf("No destination folder is configured for prefix %s.\n", prefix)
	folder, err := p.reader.ReadLine("Destination folder (empty to cancel): ")
	if err != nil {
		return "", false, err
	}
	if folder == "" {
		return "", false, nil
	}
	return folder, true, nil
}

func (p *consolePrompter) AfterBatch(result workflow.BatchResult) (workflow.BatchChoice, error) {
	p.printBatch(result)
	for {
		answer, err := p.reader.ReadLine("Continue scanning? [Y=continue, n=exit, p=preview, c=recalibrate]: ")
		if err != nil {
			return workflow.ChoiceExit, err
		}
		switch strings.ToLower(answer) {
		case "", "y", "yes":
			return workflow.ChoiceContinue, nil
		case "n", "no":
			return workflow.ChoiceExit, nil
		case "p":
			return workflow.ChoicePreview, nil
		case "c":
			return workflow.ChoiceRecalibrate, nil
		default:
			fmt.Println("Please answer y, n, p, or c.")
		}
	}
}

func (p *consolePrompter) printBatch(result workflow.BatchResult) {
	if len(result.Completed) > 0 {
		rows := make([][]string, 0, len(result.Completed))
		for _, photo := range result.Completed {
			rows = append(rows, []string{
				strconv.Itoa(photo.Position),
				photo.Filename,
				strconv.Itoa(photo.Bytes),
			})
		}
		fmt.Println(renderTable([]string{"Position", "File", "Bytes"}, rows, 1, 3))
	}
	for _, name := range result.Skipped {
		fmt.Printf("Skipped %s: a file with that name already exists and was left untouched.\n", name)
	}
	if result.Err != nil {
		fmt.Printf("Batch aborted at position %d: %v\n", result.FailedPosition, result.Err)
		fmt.Printf("%d photo(s) were written before the failure. Check the scanner connection and try again.\n", len(result.Completed))
	} else if result.Target.Generic {
		fmt.Printf("Batch complete: %d photo(s) written.\n", len(result.Completed))
	} else {
		fmt.Printf("Batch complete: %d photo(s) written for %s.\n", len(result.Completed), result.Target)
	}
}

func (p *consolePrompter) ShowPreview(img image.Image, label string) {
	name := fmt.Sprintf("preview_%s_%s.png",
		strings.ReplaceAll(strings.ToLower(label), " ", "_"),
		time.Now().Format("150405"))
	path := filepath.Join(p.previewDir, name)

	if err := os.MkdirAll(p.previewDir, 0o755); err != nil {
		fmt.Printf("Preview %s captured but could not be saved: %v\n", label, err)
		return
	}
	file, err := os.Create(path)
	if err != nil {
		fmt.Printf("Preview %s captured but could not be saved: %v\n", label, err)
		return
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		fmt.Printf("Preview %s captured but could not be saved: %v\n", label, err)
		return
	}
	fmt.Printf("Preview %s saved to %s\n", label, path)
}

func (p *consolePrompter) Notify(message string) {
	fmt.Println(message)
}
