package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/calibrate"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/calibrate/calui"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/encode"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/geometry"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/logging"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/scanner"
)

func newCalibrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate",
		Short: "Place photo positions on the scanner bed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibration(cmd.Context(), ctx, newLineReader(os.Stdin))
		},
	}
}

// uiCalibrator lets a scanning session trigger recalibration.
type uiCalibrator struct {
	ctx    *commandContext
	reader *lineReader
}

func (c *uiCalibrator) Calibrate(ctx context.Context) error {
	return runCalibration(ctx, c.ctx, c.reader)
}

func runCalibration(cmdCtx context.Context, ctx *commandContext, reader *lineReader) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	layoutStore, err := ctx.layoutStore()
	if err != nil {
		return err
	}
	doc, err := layoutStore.Load()
	if err != nil {
		return err
	}

	params, err := askCalibrationParams(reader, doc.ScannerBed)
	if err != nil {
		return err
	}

	session, err := calibrate.NewSession(params, doc.Positions)
	if err != nil {
		return err
	}

	preview := captureBedPreview(cmdCtx, ctx, doc.ScannerBed, cfg.Scanner.CalibrationDPI)

	result := calui.Run(session, preview)
	if !result.Saved {
		fmt.Println("Calibration cancelled; previous positions kept.")
		return nil
	}

	if err := layoutStore.SavePositions(doc.ScannerBed, result.Rects); err != nil {
		return fmt.Errorf("save calibration: %w", err)
	}
	for _, warning := range result.Warnings {
		fmt.Printf("Warning: %s\n", warning)
	}
	fmt.Printf("Saved %d position(s) to %s\n", len(result.Rects), layoutStore.Path())
	return nil
}

func askCalibrationParams(reader *lineReader, bed geometry.Bed) (calibrate.Params, error) {
	polaroid, err := reader.askYesNo("Polaroid mode (fixed-size frames)?", true)
	if err != nil {
		return calibrate.Params{}, err
	}
	params := calibrate.Params{Bed: bed}
	if polaroid {
		params.Mode = calibrate.ModePolaroid
		standard, err := reader.askYesNo("Standard 3.5x4.25 inch frames?", true)
		if err != nil {
			return calibrate.Params{}, err
		}
		if !standard {
			width, err := readInches(reader, "Frame width (inches): ")
			if err != nil {
				return calibrate.Params{}, err
			}
			height, err := readInches(reader, "Frame height (inches): ")
			if err != nil {
				return calibrate.Params{}, err
			}
			params.FixedWidthMM = width * geometry.MMPerInch
			params.FixedHeightMM = height * geometry.MMPerInch
		}
		return params, nil
	}

	params.Mode = calibrate.ModeCustom
	answer, err := reader.ReadLine(fmt.Sprintf("How many positions (1-%d)? ", calibrate.MaxPositions))
	if err != nil {
		return calibrate.Params{}, err
	}
	if answer != "" {
		count, err := strconv.Atoi(answer)
		if err != nil || count < 1 || count > calibrate.MaxPositions {
			return calibrate.Params{}, fmt.Errorf("position count must be 1-%d, got %q", calibrate.MaxPositions, answer)
		}
		params.MaxRects = count
	}
	return params, nil
}

func readInches(reader *lineReader, prompt string) (float64, error) {
	answer, err := reader.ReadLine(prompt)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(answer, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("dimension must be a positive number, got %q", answer)
	}
	return value, nil
}

// captureBedPreview grabs a low-resolution scan of the whole bed to trace
// over. Calibration still works without one, so failures only log.
func captureBedPreview(cmdCtx context.Context, ctx *commandContext, bed geometry.Bed, dpi int) image.Image {
	logger := ctx.ensureLogger()

	client, err := ctx.scannerClient()
	if err != nil {
		logger.Warn("calibrating without bed preview", logging.Error(err))
		return nil
	}
	data, err := client.Preview(cmdCtx, scanner.CaptureRequest{
		Rect:       geometry.Rect{WidthMM: bed.WidthMM, HeightMM: bed.HeightMM},
		Resolution: dpi,
		Mode:       layout.ModeColor,
	})
	if err != nil {
		logger.Warn("calibrating without bed preview", logging.Error(err))
		return nil
	}
	img, err := encode.Decode(data)
	if err != nil {
		logger.Warn("calibrating without bed preview", logging.Error(err))
		return nil
	}
	return encode.FitPreview(img, 1200, 1600)
}
