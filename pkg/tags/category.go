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

// Category is the ISO/NFC family a discovered tag most likely belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryISO14443_4A
	CategoryISO14443_4B
	CategoryISO14443_4
	CategoryMifareClassic
	CategoryMifareUltralight
	CategoryISO14443_3A
	CategoryISO14443_3B
	CategoryJISX6319_4
	CategoryISO15693
	CategoryProprietaryOrNDEF
)

var categoryNames = map[Category]string{
	CategoryUnknown:           "UNKNOWN",
	CategoryISO14443_4A:       "ISO_14443_4_A",
	CategoryISO14443_4B:       "ISO_14443_4_B",
	CategoryISO14443_4:        "ISO_14443_4",
	CategoryMifareClassic:     "MIFARE_CLASSIC",
	CategoryMifareUltralight:  "MIFARE_ULTRALIGHT",
	CategoryISO14443_3A:       "ISO_14443_3_A",
	CategoryISO14443_3B:       "ISO_14443_3_B",
	CategoryJISX6319_4:        "JIS_X_6319_4",
	CategoryISO15693:          "ISO_15693",
	CategoryProprietaryOrNDEF: "PROPRIETARY_OR_NDEF",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryUnknown]
}

// Classify picks the single best matching category for a technology list.
// The first matching rule wins; it never fails.
func Classify(techs []Tech) Category {
	if len(techs) == 0 {
		return CategoryUnknown
	}

	switch {
	case HasTech(techs, TechIsoDep):
		switch {
		case HasTech(techs, TechNfcA):
			return CategoryISO14443_4A
		case HasTech(techs, TechNfcB):
			return CategoryISO14443_4B
		default:
			return CategoryISO14443_4
		}
	case HasTech(techs, TechNfcA):
		switch {
		case HasTech(techs, TechMifareClassic):
			return CategoryMifareClassic
		case HasTech(techs, TechMifareUltralight):
			return CategoryMifareUltralight
		default:
			return CategoryISO14443_3A
		}
	case HasTech(techs, TechNfcB):
		return CategoryISO14443_3B
	case HasTech(techs, TechNfcF):
		return CategoryJISX6319_4
	case HasTech(techs, TechNfcV):
		return CategoryISO15693
	default:
		return CategoryProprietaryOrNDEF
	}
}
