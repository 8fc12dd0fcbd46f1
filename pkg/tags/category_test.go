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
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		techs []Tech
		want  Category
	}{
		{name: "empty", techs: nil, want: CategoryUnknown},
		{name: "isodep nfca", techs: []Tech{TechIsoDep, TechNfcA}, want: CategoryISO14443_4A},
		{name: "isodep nfcb", techs: []Tech{TechNfcB, TechIsoDep}, want: CategoryISO14443_4B},
		{name: "isodep only", techs: []Tech{TechIsoDep, TechNdef}, want: CategoryISO14443_4},
		{
			name:  "ultralight",
			techs: []Tech{TechNfcA, TechMifareUltralight, TechNdef},
			want:  CategoryMifareUltralight,
		},
		{name: "classic", techs: []Tech{TechNfcA, TechMifareClassic}, want: CategoryMifareClassic},
		{
			name:  "classic wins over ultralight",
			techs: []Tech{TechMifareUltralight, TechMifareClassic, TechNfcA},
			want:  CategoryMifareClassic,
		},
		{name: "plain nfca", techs: []Tech{TechNfcA}, want: CategoryISO14443_3A},
		{name: "plain nfcb", techs: []Tech{TechNfcB}, want: CategoryISO14443_3B},
		{name: "felica", techs: []Tech{TechNfcF}, want: CategoryJISX6319_4},
		{name: "vicinity", techs: []Tech{TechNfcV, TechNdef}, want: CategoryISO15693},
		{name: "ndef only", techs: []Tech{TechNdef}, want: CategoryProprietaryOrNDEF},
		{name: "barcode", techs: []Tech{TechNfcBarcode}, want: CategoryProprietaryOrNDEF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.techs))
		})
	}
}

func TestCategoryString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ISO_14443_4_A", CategoryISO14443_4A.String())
	assert.Equal(t, "MIFARE_ULTRALIGHT", CategoryMifareUltralight.String())
	assert.Equal(t, "JIS_X_6319_4", CategoryJISX6319_4.String())
	assert.Equal(t, "UNKNOWN", Category(99).String())
}

func TestPropertyClassifyIsoDepAlwaysIso4(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		techs := rapid.SliceOfDistinct(rapid.SampledFrom(AllTechs), func(t Tech) Tech { return t }).
			Draw(t, "techs")
		got := Classify(techs)
		if HasTech(techs, TechIsoDep) {
			switch got {
			case CategoryISO14443_4A, CategoryISO14443_4B, CategoryISO14443_4:
			default:
				t.Fatalf("tag with IsoDep classified as %s", got)
			}
		}
		if len(techs) == 0 && got != CategoryUnknown {
			t.Fatalf("empty tech list classified as %s", got)
		}
	})
}
