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

package mqtt

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags/memtag"
	"github.com/hsanjuan/go-ndef"
)

var ErrInvalidUID = errors.New("tag message has no valid uid")

// TagMessage is the JSON description of a virtual tag. Byte fields are
// hex encoded.
type TagMessage struct {
	// Writable defaults to true when omitted.
	Writable   *bool    `json:"writable,omitempty"`
	UID        string   `json:"uid"`
	Ndef       string   `json:"ndef,omitempty"`
	Pages      string   `json:"pages,omitempty"`
	Techs      []string `json:"techs,omitempty"`
	MaxSize    int      `json:"max_size,omitempty"`
	Formatable bool     `json:"formatable,omitempty"`
}

// ParseTagMessage decodes a JSON tag description.
func ParseTagMessage(payload []byte) (TagMessage, error) {
	var m TagMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return TagMessage{}, fmt.Errorf("failed to parse tag message: %w", err)
	}
	return m, nil
}

// Build creates the in-memory tag the message describes. A tag listing
// the Ndef technology without content has a null message.
func (m *TagMessage) Build() (*memtag.Tag, error) {
	uid, err := hex.DecodeString(m.UID)
	if err != nil || len(uid) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUID, m.UID)
	}

	var opts []memtag.Option
	techs := tags.ParseTechs(m.Techs)
	if len(techs) > 0 {
		opts = append(opts, memtag.WithTechs(techs...))
	}

	if m.Ndef != "" || tags.HasTech(techs, tags.TechNdef) {
		msg, err := decodeNdef(m.Ndef)
		if err != nil {
			return nil, err
		}
		writable := m.Writable == nil || *m.Writable
		maxSize := m.MaxSize
		if maxSize <= 0 {
			maxSize = memtag.DefaultMaxSize
		}
		opts = append(opts, memtag.WithNdef(msg, writable, maxSize))
	}

	if m.Formatable || tags.HasTech(techs, tags.TechNdefFormatable) {
		opts = append(opts, memtag.WithFormatable())
	}

	if m.Pages != "" {
		pages, err := hex.DecodeString(m.Pages)
		if err != nil {
			return nil, fmt.Errorf("invalid pages hex: %w", err)
		}
		opts = append(opts, memtag.WithPages(pages))
	}

	return memtag.New(uid, opts...), nil
}

func decodeNdef(s string) (*ndef.Message, error) {
	if s == "" {
		return nil, nil //nolint:nilnil // a null message is valid tag content
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ndef hex: %w", err)
	}
	msg, err := ndefcodec.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Describe captures the current content of a tag, used to publish the
// result of writes.
func Describe(t *memtag.Tag) (TagMessage, error) {
	m := TagMessage{
		UID:   hex.EncodeToString(t.ID()),
		Techs: tags.TechStrings(t.Techs()),
	}
	if msg := t.Message(); msg != nil {
		raw, err := ndefcodec.Marshal(msg)
		if err != nil {
			return TagMessage{}, err
		}
		m.Ndef = hex.EncodeToString(raw)
	}
	if pages := t.Pages(); len(pages) > 0 {
		m.Pages = hex.EncodeToString(pages)
	}
	return m, nil
}
