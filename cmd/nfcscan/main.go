// Zaparoo NFC
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo NFC.
//
// Zaparoo NFC is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo NFC is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo NFC.  If not, see <http://www.gnu.org/licenses/>.

// Command nfcscan reads tags from any connected reader, and optionally
// writes or clears the next one.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/zaparoo-nfc/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/cli"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	flag.Parse()

	if *flags.Version {
		_, _ = fmt.Printf("zaparoo-nfc v%s\n", cli.AppVersion)
		return nil
	}

	opts, err := flags.Options()
	if err != nil {
		return err
	}

	cfg, err := cli.Setup(
		*flags.ConfigDir, config.BaseDefaults, *flags.Debug,
		[]io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}},
	)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			telemetry.Flush()
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	if *flags.Devices {
		cli.PrintDevices(os.Stdout, cfg, nil)
		return nil
	}

	if w, err := cli.WatchConfig(cfg, *flags.Debug); err != nil {
		log.Warn().Err(err).Msg("config changes will need a restart")
	} else {
		defer func() { _ = w.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, cfg, cli.SupportedReaders, opts, os.Stdout); err != nil {
		log.Error().Err(err).Msg("session failed")
		return err
	}
	return nil
}
