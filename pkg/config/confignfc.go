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

const (
	DefaultLanguage  = "en"
	DefaultStartPage = 4
	DefaultPageCount = 12
)

type Ndef struct {
	Language string `toml:"language" validate:"omitempty,max=63,printascii"`
}

// Ultralight is the page window used by raw Ultralight handlers.
type Ultralight struct {
	StartPage int `toml:"start_page" validate:"gte=0,lte=255"`
	PageCount int `toml:"page_count" validate:"gte=1,lte=256"`
}

func (c *Instance) NdefLanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Ndef.Language == "" {
		return DefaultLanguage
	}
	return c.vals.Ndef.Language
}

func (c *Instance) SetNdefLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Ndef.Language = lang
}

func (c *Instance) Ultralight() Ultralight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Ultralight
}
