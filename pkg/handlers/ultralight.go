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

package handlers

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/ultralight"
)

// UltralightTechs are the technologies an Ultralight handler accepts.
var UltralightTechs = []tags.Tech{tags.TechMifareUltralight}

// UltralightHandler stores one string in a raw page window.
type UltralightHandler = TagHandler[[]byte, string]

// NewUltralightHandler creates a handler over the codec's page window.
func NewUltralightHandler(codec *ultralight.TextCodec, listener Listener[string]) *UltralightHandler {
	return newTagHandler[[]byte, string](
		"ultralight", UltralightTechs, codec, ultralightIO{window: codec.Window()}, listener)
}

// ErrNoUltralight is the cause reported when a tag offers no MIFARE
// Ultralight access. The tag may still hold NDEF, so this is a plain
// failure rather than a compliance one.
var ErrNoUltralight = errors.New("no MIFARE Ultralight access")

type ultralightIO struct {
	window ultralight.Window
}

func (u ultralightIO) read(s *session, tag tags.Tag) ([]byte, error) {
	ul, ok := tag.MifareUltralight()
	if !ok {
		return nil, nfcerrors.NewRead(nfcerrors.ReadFailed, "read", ErrNoUltralight)
	}
	if err := s.connect(ul); err != nil {
		return nil, readFailure("connect", err)
	}
	data, err := ultralight.ReadWindow(ul, u.window)
	if err != nil {
		return nil, readFailure("read pages", err)
	}
	return data, nil
}

func (u ultralightIO) write(s *session, tag tags.Tag, data []byte) error {
	ul, ok := tag.MifareUltralight()
	if !ok {
		return nfcerrors.NewWrite(nfcerrors.WriteFailed, "write", ErrNoUltralight)
	}
	if err := s.connect(ul); err != nil {
		return writeFailure("connect", err)
	}
	if len(data) > u.window.Capacity() {
		return nfcerrors.NewWrite(nfcerrors.WriteNotEnoughSpace, "write", fmtSize(len(data), u.window.Capacity()))
	}

	written, err := ultralight.WriteWindow(ul, u.window, data)
	switch {
	case errors.Is(err, ultralight.ErrNotEnoughSpace):
		return nfcerrors.NewWrite(nfcerrors.WriteNotEnoughSpace, "write pages", err)
	case err != nil:
		return writeFailure("write pages", err)
	case written != len(data):
		return nfcerrors.NewWrite(nfcerrors.WriteFailed, "write pages",
			fmt.Errorf("wrote %d of %d bytes", written, len(data)))
	}
	return nil
}

func fmtSize(size, capacity int) error {
	return fmt.Errorf("%d bytes exceeds capacity of %d bytes", size, capacity)
}
