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

package cli

import (
	"fmt"
	"io"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// PrintDevices lists the reader drivers and the serial devices auto
// detection would consider.
func PrintDevices(out io.Writer, cfg *config.Instance, serialDevices func() ([]string, error)) {
	_, _ = fmt.Fprintln(out, "Drivers:")
	for _, r := range SupportedReaders(cfg) {
		md := r.Metadata()
		_, _ = fmt.Fprintf(out, "  %-8s auto-detect=%-5t %s\n", md.ID, md.DefaultAutoDetect, md.Description)
	}

	if serialDevices == nil {
		serialDevices = helpers.GetSerialDeviceList
	}
	devices, err := serialDevices()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list serial devices")
		_, _ = fmt.Fprintf(out, "Serial devices: error: %s\n", err)
		return
	}

	_, _ = fmt.Fprintln(out, "Serial devices:")
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(out, "  none")
	}
	for _, d := range devices {
		_, _ = fmt.Fprintf(out, "  %s\n", d)
	}
}
