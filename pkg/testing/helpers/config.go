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

package helpers

import (
	"testing"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// NewTestConfig creates a config backed by an in-memory filesystem. The
// optional mutate func adjusts the defaults before they are written.
func NewTestConfig(t testing.TB, mutate func(*config.Values)) *config.Instance {
	t.Helper()

	defaults := config.BaseDefaults
	defaults.Readers.Connect = nil
	if mutate != nil {
		mutate(&defaults)
	}

	cfg, err := config.NewConfigWithFs(afero.NewMemMapFs(), "/config", defaults)
	require.NoError(t, err)
	return cfg
}
