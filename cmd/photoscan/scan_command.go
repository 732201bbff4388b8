package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ibralyousef/polaroid-batch-scanner/internal/deps"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/layout"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/logging"
	"github.com/ibralyousef/polaroid-batch-scanner/internal/workflow"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Start a scanning session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(ctx, cmd)
		},
	}
}

func runScan(ctx *commandContext, cmd *cobra.Command) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.ensureLogger()

	if missing, ok := deps.FirstMissing(deps.Check(deps.ForConfig(cfg))); ok {
		return fmt.Errorf("%s unavailable: %s (%s)", missing.Name, missing.Detail, missing.Description)
	}

	lock, err := workflow.AcquireSessionLock(cfg.LockPath())
	if err != nil {
		if errors.Is(err, workflow.ErrSessionActive) {
			return fmt.Errorf("%w; finish or close the other photoscan before starting a new session", workflow.ErrSessionActive)
		}
		return err
	}
	defer lock.Release()

	client, err := ctx.scannerClient()
	if err != nil {
		return err
	}
	devices, err := client.Init(cmd.Context())
	if err != nil {
		return fmt.Errorf("%w; check that the scanner is connected and powered on", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scanner ready: %s\n", devices[0].Description)

	layoutStore, err := ctx.layoutStore()
	if err != nil {
		return err
	}
	prefixStore, err := ctx.prefixStore()
	if err != nil {
		return err
	}
	historyStore, err := ctx.historyStore()
	if err != nil {
		// History is advisory; scan without it rather than blocking the operator.
		logger.Warn("history journal unavailable", logging.Error(err))
	} else {
		defer historyStore.Close()
	}

	reader := newLineReader(os.Stdin)
	prompter := newConsolePrompter(reader, filepath.Join(cfg.Paths.LogDir, "previews"))

	deps := workflow.Deps{
		Layout:     layoutStore,
		Prefixes:   prefixStore,
		Capturer:   client,
		Prompter:   prompter,
		Calibrator: &uiCalibrator{ctx: ctx, reader: reader},
		Logger:     logger,
	}
	if historyStore != nil {
		deps.Historian = historyStore
	}

	session, err := workflow.NewSession(cfg, deps)
	if err != nil {
		return err
	}

	err = session.Run(cmd.Context())
	if errors.Is(err, layout.ErrNotCalibrated) {
		return fmt.Errorf("%w (run `photoscan calibrate`)", err)
	}
	return err
}
