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

package admin

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/rs/zerolog/log"
)

// ParseConnectionString splits "driver:path" on the first colon.
func ParseConnectionString(s string) (config.ReadersConnect, error) {
	driver, path, ok := strings.Cut(s, ":")
	if !ok || driver == "" {
		return config.ReadersConnect{}, fmt.Errorf("invalid connection string: %q", s)
	}
	return config.ReadersConnect{Driver: driver, Path: path}, nil
}

func findReader(rs []readers.Reader, device config.ReadersConnect) readers.Reader {
	for _, r := range rs {
		if readers.SupportsDriver(r, device) {
			return r
		}
	}
	return nil
}

// connectReaders opens the configured readers, then the detected ones. It
// returns the open readers, how many devices were tried and the open
// failures.
func (a *Admin) connectReaders() (opened []readers.Reader, candidates int, err error) {
	var errs []error
	var connected []string
	seenPaths := make(map[string]string)

	for _, device := range a.cfg.Readers().Connect {
		connStr := device.ConnectionString()
		if device.Path != "" {
			if first, ok := seenPaths[device.Path]; ok {
				log.Warn().Msgf("device path %s configured for multiple readers (%s and %s), ignoring %s",
					device.Path, first, connStr, connStr)
				continue
			}
			seenPaths[device.Path] = connStr
		}

		r := findReader(a.source(a.cfg), device)
		if r == nil {
			log.Warn().Msgf("no backend supports driver: %s", device.Driver)
			continue
		}

		candidates++
		log.Debug().Msgf("connecting to reader: %s", connStr)
		if err := r.Open(device, a.onTag); err != nil {
			errs = append(errs, fmt.Errorf("failed to open %s: %w", connStr, err))
			continue
		}
		log.Info().Msgf("opened reader: %s", connStr)
		opened = append(opened, r)
		connected = append(connected, connStr)
	}

	if !a.cfg.AutoDetect() {
		return opened, candidates, errors.Join(errs...)
	}

	for _, r := range a.source(a.cfg) {
		if !r.Metadata().DefaultAutoDetect {
			continue
		}

		detected := r.Detect(connected)
		if detected == "" {
			continue
		}

		device, err := ParseConnectionString(detected)
		if err != nil {
			log.Error().Err(err).Msg("invalid auto-detect string")
			continue
		}
		if device.Path != "" && slices.ContainsFunc(connected, func(c string) bool {
			return strings.HasSuffix(c, ":"+device.Path)
		}) {
			continue
		}

		candidates++
		if err := r.Open(device, a.onTag); err != nil {
			errs = append(errs, fmt.Errorf("failed to open detected %s: %w", detected, err))
			continue
		}
		log.Info().Msgf("opened auto-detected reader: %s", detected)
		opened = append(opened, r)
		connected = append(connected, detected)
	}

	return opened, candidates, errors.Join(errs...)
}
