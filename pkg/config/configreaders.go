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

package config

import (
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
)

// DefaultDebounce is how long a tag must be absent before the same UID is
// reported again.
const DefaultDebounce = "250ms"

type Readers struct {
	Mode       ReadersMode      `toml:"mode,omitempty"`
	Connect    []ReadersConnect `toml:"connect,omitempty" validate:"dive"`
	AutoDetect bool             `toml:"auto_detect"`
}

// ReadersMode mirrors the reader mode flags: which technologies are
// dispatched, whether backends check tags for NDEF and the re-report window.
type ReadersMode struct {
	Debounce      string   `toml:"debounce,omitempty" validate:"omitempty,duration"`
	Techs         []string `toml:"techs,omitempty" validate:"dive,tech"`
	SkipNdefCheck bool     `toml:"skip_ndef_check,omitempty"`
}

type ReadersConnect struct {
	Driver   string `toml:"driver" validate:"required"`
	Path     string `toml:"path,omitempty"`
	IDSource string `toml:"id_source,omitempty"`
}

func (r ReadersConnect) ConnectionString() string {
	return fmt.Sprintf("%s:%s", r.Driver, r.Path)
}

func (c *Instance) Readers() Readers {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Readers
}

func (c *Instance) AutoDetect() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Readers.AutoDetect
}

func (c *Instance) SetAutoDetect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Readers.AutoDetect = enabled
}

func (c *Instance) SetReaderConnections(rcs []ReadersConnect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Readers.Connect = rcs
}

// ReaderModeTechs returns the technologies discoveries are filtered to. An
// empty list means every technology is accepted.
func (c *Instance) ReaderModeTechs() []tags.Tech {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return tags.ParseTechs(c.vals.Readers.Mode.Techs)
}

func (c *Instance) SkipNdefCheck() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Readers.Mode.SkipNdefCheck
}

// Debounce returns the parsed debounce window, falling back to the
// default when unset.
func (c *Instance) Debounce() time.Duration {
	c.mu.RLock()
	raw := c.vals.Readers.Mode.Debounce
	c.mu.RUnlock()
	if raw == "" {
		raw = DefaultDebounce
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}
