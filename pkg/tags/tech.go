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

package tags

import (
	"slices"
	"strings"
)

// Tech is the name of a tag technology, matching the class names used by
// the platform NFC stacks (e.g. "NfcA", "IsoDep", "Ndef").
type Tech string

const (
	TechIsoDep           Tech = "IsoDep"
	TechNfcA             Tech = "NfcA"
	TechNfcB             Tech = "NfcB"
	TechNfcF             Tech = "NfcF"
	TechNfcV             Tech = "NfcV"
	TechNfcBarcode       Tech = "NfcBarcode"
	TechNdef             Tech = "Ndef"
	TechNdefFormatable   Tech = "NdefFormatable"
	TechMifareClassic    Tech = "MifareClassic"
	TechMifareUltralight Tech = "MifareUltralight"
)

// AllTechs lists every known technology in a stable order.
var AllTechs = []Tech{
	TechIsoDep,
	TechNfcA,
	TechNfcB,
	TechNfcF,
	TechNfcV,
	TechNfcBarcode,
	TechNdef,
	TechNdefFormatable,
	TechMifareClassic,
	TechMifareUltralight,
}

const androidTechPrefix = "android.nfc.tech."

// ParseTech resolves a technology name case-insensitively. Fully qualified
// Android class names are accepted too.
func ParseTech(name string) (Tech, bool) {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, androidTechPrefix)
	for _, t := range AllTechs {
		if strings.EqualFold(string(t), name) {
			return t, true
		}
	}
	return "", false
}

// ParseTechs resolves a list of names, dropping unknown entries.
func ParseTechs(names []string) []Tech {
	techs := make([]Tech, 0, len(names))
	for _, n := range names {
		if t, ok := ParseTech(n); ok && !slices.Contains(techs, t) {
			techs = append(techs, t)
		}
	}
	return techs
}

// HasTech reports whether techs contains t.
func HasTech(techs []Tech, t Tech) bool {
	return slices.Contains(techs, t)
}

// Intersects reports whether the two lists share at least one technology.
func Intersects(a, b []Tech) bool {
	for _, t := range a {
		if slices.Contains(b, t) {
			return true
		}
	}
	return false
}

// TechStrings converts a technology list to plain strings, for logging.
func TechStrings(techs []Tech) []string {
	out := make([]string, len(techs))
	for i, t := range techs {
		out[i] = string(t)
	}
	return out
}
