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

package ndef

import "github.com/hsanjuan/go-ndef"

// Parser converts a low level representation D into application values.
type Parser[D, R any] interface {
	Parse(data D) ([]R, error)
}

// Preparer converts application values into a low level representation D
// ready to be written to a tag.
type Preparer[D, R any] interface {
	Prepare(values []R) (D, error)
	// CleaningData returns the representation that clears a tag.
	CleaningData() D
}

// Codec pairs a parser with its inverse preparer.
type Codec[D, R any] interface {
	Parser[D, R]
	Preparer[D, R]
}

// MessageCodec is a codec over NDEF messages.
type MessageCodec[R any] = Codec[*ndef.Message, R]
