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

// Package cli holds the flag handling and session loop behind the
// nfcscan command.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-nfc/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
)

// AppVersion is set at build time.
var AppVersion = "DEVELOPMENT"

var ErrConflictingFlags = errors.New("only one of -write-text, -write-uri and -clean may be set")

type Flags struct {
	ConfigDir  *string
	WriteText  *string
	WriteURI   *string
	Clean      *bool
	Ultralight *bool
	Once       *bool
	Debug      *bool
	Devices    *bool
	Version    *bool
}

// SetupFlags defines the CLI flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		ConfigDir: fs.String(
			"config-dir",
			defaultConfigDir(),
			"directory holding "+config.CfgFile+" and logs",
		),
		WriteText: fs.String(
			"write-text",
			"",
			"write a text record to the next tag",
		),
		WriteURI: fs.String(
			"write-uri",
			"",
			"write a URI record to the next tag",
		),
		Clean: fs.Bool(
			"clean",
			false,
			"clear the content of the next tag",
		),
		Ultralight: fs.Bool(
			"ultralight",
			false,
			"use the raw Ultralight page window instead of NDEF",
		),
		Once: fs.Bool(
			"once",
			false,
			"exit after the first tag",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		Devices: fs.Bool(
			"devices",
			false,
			"list serial devices and reader drivers, then exit",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// AppName names the config directory under the XDG config home.
const AppName = "zaparoo-nfc"

func defaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Options validates the session flags.
func (f *Flags) Options() (Options, error) {
	opts := Options{
		WriteText:  *f.WriteText,
		Clean:      *f.Clean,
		Ultralight: *f.Ultralight,
		Once:       *f.Once,
	}

	set := 0
	if opts.WriteText != "" {
		set++
	}
	if *f.WriteURI != "" {
		set++
		u, err := url.Parse(*f.WriteURI)
		if err != nil {
			return Options{}, fmt.Errorf("invalid -write-uri: %w", err)
		}
		if opts.Ultralight {
			return Options{}, errors.New("-write-uri cannot be used with -ultralight")
		}
		opts.WriteURI = u
	}
	if opts.Clean {
		set++
	}
	if set > 1 {
		return Options{}, ErrConflictingFlags
	}

	return opts, nil
}

// Setup initializes logging and loads the config from dir. Error
// reporting is started if the config opts in, callers should defer
// telemetry.Close.
//
//nolint:gocritic // config struct copied for immutability
func Setup(dir string, defaults config.Values, debug bool, writers []io.Writer) (*config.Instance, error) {
	if err := helpers.InitLogging(filepath.Join(dir, "logs"), writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(dir, defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	helpers.SetDebug(debug || cfg.DebugLogging())

	reporting, dsn := cfg.ErrorReporting()
	err = telemetry.Init(telemetry.Options{
		Enabled:    reporting,
		DSN:        dsn,
		AppVersion: AppVersion,
	})
	if err != nil {
		log.Warn().Err(err).Msg("error reporting not started")
	}
	log.Info().Str("version", AppVersion).Str("config", cfg.Path()).Msg("zaparoo nfc starting")

	return cfg, nil
}

// WatchConfig keeps the log level in step with the config file while a
// session runs. The -debug flag always wins. Reader mode settings are
// read per tag so they need no extra handling.
func WatchConfig(cfg *config.Instance, debug bool) (*config.Watcher, error) {
	w, err := cfg.Watch(func(err error) {
		if err == nil {
			helpers.SetDebug(debug || cfg.DebugLogging())
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch config: %w", err)
	}
	return w, nil
}
