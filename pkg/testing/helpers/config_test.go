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
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestNewTestConfig(t *testing.T) {
	t.Parallel()

	cfg := NewTestConfig(t, nil)
	assert.True(t, cfg.AutoDetect())
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())

	cfg = NewTestConfig(t, func(v *config.Values) {
		v.Readers.AutoDetect = false
		v.Readers.Mode.Debounce = "1s"
	})
	assert.False(t, cfg.AutoDetect())
	assert.Equal(t, time.Second, cfg.Debounce())
}
