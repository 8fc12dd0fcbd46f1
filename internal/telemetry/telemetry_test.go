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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "system path", in: "/usr/lib/libnfc.so", want: "/usr/lib/libnfc.so"},
		{name: "linux home", in: "/home/alex/.config/zaparoo-nfc/nfc.toml", want: "/home/<user>/.config/zaparoo-nfc/nfc.toml"},
		{name: "mac users", in: "/users/alex/Library/nfc.log", want: "/Users/<user>/Library/nfc.log"},
		{name: "windows", in: "d:\\Users\\Alex\\AppData\\nfc.log", want: "C:\\Users\\<user>\\AppData\\nfc.log"},
		{
			name: "embedded in message",
			in:   "open /home/alex/nfc.toml: permission denied",
			want: "open /home/<user>/nfc.toml: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, scrubPath(tt.in))
		})
	}
}

func TestScrubEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "kiosk-01",
		Message:    "failed to read /home/alex/nfc.toml",
		Extra: map[string]any{
			"uid":    "04a1b2c3d4e5f6",
			"device": "pn532_uart:/dev/ttyUSB0",
			"file":   "/home/alex/logs/nfc.log",
			"count":  3,
		},
		Exception: []sentry.Exception{{
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/alex/src/zaparoo-nfc/pkg/admin/admin.go",
				Filename: "pkg/admin/admin.go",
			}}},
		}},
	}

	got := scrubEvent(event)
	assert.Empty(t, got.ServerName)
	assert.Equal(t, "failed to read /home/<user>/nfc.toml", got.Message)
	assert.Equal(t, "<redacted>", got.Extra["uid"])
	assert.Equal(t, "<redacted>", got.Extra["device"])
	assert.Equal(t, "/home/<user>/logs/nfc.log", got.Extra["file"])
	assert.Equal(t, 3, got.Extra["count"])
	frame := got.Exception[0].Stacktrace.Frames[0]
	assert.Equal(t, "/home/<user>/src/zaparoo-nfc/pkg/admin/admin.go", frame.AbsPath)
	assert.Equal(t, "pkg/admin/admin.go", frame.Filename)
}

//nolint:paralleltest // reads package state
func TestInit_Disabled(t *testing.T) {
	require.NoError(t, Init(Options{DSN: "https://key@example.com/1"}))
	assert.False(t, Enabled())
	Close()
}

//nolint:paralleltest // reads package state
func TestInit_MissingDSN(t *testing.T) {
	err := Init(Options{Enabled: true})
	require.ErrorIs(t, err, ErrNoDSN)
	assert.False(t, Enabled())
}
