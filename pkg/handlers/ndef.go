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
	"net/url"

	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/hsanjuan/go-ndef"
)

// NdefTechs are the technologies an NDEF handler accepts.
var NdefTechs = []tags.Tech{tags.TechNdef, tags.TechNdefFormatable}

// NdefHandler reads and writes NDEF messages through a message codec.
type NdefHandler[R any] = TagHandler[*ndef.Message, R]

// NewNdefHandler creates a handler for any message codec.
func NewNdefHandler[R any](codec ndefcodec.MessageCodec[R], listener Listener[R]) *NdefHandler[R] {
	return newTagHandler("ndef", NdefTechs, codec, ndefIO{}, listener)
}

// NewTextHandler creates a handler for RTD_TEXT records.
func NewTextHandler(codec *ndefcodec.TextCodec, listener Listener[string]) *NdefHandler[string] {
	return newTagHandler[*ndef.Message, string]("text", NdefTechs, codec, ndefIO{}, listener)
}

// NewURIHandler creates a handler for RTD_URI records.
func NewURIHandler(codec *ndefcodec.URICodec, listener Listener[*url.URL]) *NdefHandler[*url.URL] {
	return newTagHandler[*ndef.Message, *url.URL]("uri", NdefTechs, codec, ndefIO{}, listener)
}

type ndefIO struct{}

func (ndefIO) read(s *session, tag tags.Tag) (*ndef.Message, error) {
	n, hasNdef := tag.Ndef()
	_, hasFormatable := tag.NdefFormatable()
	switch {
	case !hasNdef && !hasFormatable:
		return nil, nfcerrors.NewRead(nfcerrors.ReadNotNdefCompliant, "read", nil)
	case !hasNdef:
		return nil, nfcerrors.NewRead(nfcerrors.ReadNotNdefFormatted, "read", nil)
	}

	if err := s.connect(n); err != nil {
		return nil, readFailure("connect", err)
	}

	msg := n.CachedMessage()
	if msg == nil {
		var err error
		msg, err = n.ReadMessage()
		if err != nil {
			return nil, readFailure("read", err)
		}
	}

	switch {
	case msg == nil:
		return nil, nfcerrors.NewRead(nfcerrors.ReadNdefNull, "read", nil)
	case ndefcodec.IsEmptyMessage(msg):
		return nil, nfcerrors.NewRead(nfcerrors.ReadNdefEmpty, "read", nil)
	}
	return msg, nil
}

func (ndefIO) write(s *session, tag tags.Tag, msg *ndef.Message) error {
	if n, ok := tag.Ndef(); ok {
		if err := s.connect(n); err != nil {
			return writeFailure("connect", err)
		}
		if !n.IsWritable() {
			return nfcerrors.NewWrite(nfcerrors.WriteTagNotWritable, "write", nil)
		}
		size, err := ndefcodec.MessageSize(msg)
		if err != nil {
			return nfcerrors.NewWrite(nfcerrors.WriteFailed, "write", err)
		}
		if size > n.MaxSize() {
			return nfcerrors.NewWrite(nfcerrors.WriteNotEnoughSpace, "write",
				fmtSize(size, n.MaxSize()))
		}
		if err := n.WriteMessage(msg); err != nil {
			if errors.Is(err, tags.ErrReadOnly) {
				return nfcerrors.NewWrite(nfcerrors.WriteTagNotWritable, "write", err)
			}
			return writeFailure("write", err)
		}
		return nil
	}

	if f, ok := tag.NdefFormatable(); ok {
		if err := s.connect(f); err != nil {
			return writeFailure("connect", err)
		}
		if err := f.Format(msg); err != nil {
			return writeFailure("format", err)
		}
		return nil
	}

	return nfcerrors.NewWrite(nfcerrors.WriteNotNdefCompliant, "write", nil)
}
