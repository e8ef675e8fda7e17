// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dizda/log-bouncer/internal/config"
	"github.com/dizda/log-bouncer/internal/logging"
	"github.com/dizda/log-bouncer/internal/supervisor"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "log-bouncer:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "log-bouncer",
		Short: "Follow a log file, rotate it, and ship its lines downstream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}

			log, err := logging.New(cfg.JSON)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return supervisor.Run(ctx, cfg, log)
		},
	}

	config.BindFlags(cmd.Flags(), v)
	return cmd
}
