/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/friendsincode/recruitd/internal/server"
)

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run every engine job once and exit",
	Long: `Run reminders, offer dispatch, reply processing, expiry and pending
rejection mails once, then exit.

Useful from cron when the long-running ticker is not deployed. Exits non-zero
if any job failed.`,
	RunE: runTick,
}

func init() {
	rootCmd.AddCommand(tickCmd)
}

func runTick(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("shutdown cleanup failed")
		}
	}()

	if failed := srv.TickOnce(ctx); failed > 0 {
		return fmt.Errorf("%d job(s) failed", failed)
	}
	logger.Info().Msg("tick complete")
	return nil
}
