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

package pcsc

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
	"github.com/rs/zerolog/log"
)

var (
	apduGetUID = []byte{0xFF, 0xCA, 0x00, 0x00, 0x00}
	swSuccess  = []byte{0x90, 0x00}
)

// transmit sends an APDU and strips the status word, failing on anything
// but 90 00.
func transmit(card ScardCard, apdu []byte) ([]byte, error) {
	res, err := card.Transmit(apdu)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tags.ErrIO, err)
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("%w: short response % X", tags.ErrIO, res)
	}
	sw := res[len(res)-2:]
	if sw[0] != swSuccess[0] || sw[1] != swSuccess[1] {
		return nil, fmt.Errorf("%w: status word %X", tags.ErrIO, sw)
	}
	return res[:len(res)-2], nil
}

func readUID(card ScardCard) ([]byte, error) {
	uid, err := transmit(card, apduGetUID)
	if err != nil {
		return nil, err
	}
	if len(uid) == 0 {
		return nil, errors.New("empty UID")
	}
	return uid, nil
}

// pageTech is MifareUltralight over the reader's storage card APDUs.
type pageTech struct {
	card      ScardCard
	connected atomic.Bool
}

func (p *pageTech) Connect() error {
	p.connected.Store(true)
	return nil
}

func (p *pageTech) Close() error {
	p.connected.Store(false)
	return nil
}

func (p *pageTech) IsConnected() bool {
	return p.connected.Load()
}

func (p *pageTech) ReadPages(page int) ([]byte, error) {
	if !p.IsConnected() {
		return nil, tags.ErrNotConnected
	}
	data, err := transmit(p.card, []byte{0xFF, 0xB0, 0x00, byte(page), tags.UltralightReadSize})
	if err != nil {
		return nil, fmt.Errorf("read binary page %d: %w", page, err)
	}
	if len(data) < tags.UltralightReadSize {
		return nil, fmt.Errorf("%w: read %d bytes at page %d", tags.ErrIO, len(data), page)
	}
	return data[:tags.UltralightReadSize], nil
}

func (p *pageTech) WritePage(page int, data []byte) error {
	if !p.IsConnected() {
		return tags.ErrNotConnected
	}
	if len(data) != tags.UltralightPageSize {
		return fmt.Errorf("page write needs %d bytes, got %d", tags.UltralightPageSize, len(data))
	}
	apdu := append([]byte{0xFF, 0xD6, 0x00, byte(page), tags.UltralightPageSize}, data...)
	if _, err := transmit(p.card, apdu); err != nil {
		return fmt.Errorf("update binary page %d: %w", page, err)
	}
	return nil
}

// pcscTag is the handle for one card presence.
type pcscTag struct {
	ndef       tags.Ndef
	formatable tags.NdefFormatable
	pages      *pageTech
	id         []byte
	techs      []tags.Tech
}

func (t *pcscTag) ID() []byte {
	return slices.Clone(t.id)
}

func (t *pcscTag) Techs() []tags.Tech {
	return slices.Clone(t.techs)
}

func (t *pcscTag) Ndef() (tags.Ndef, bool) {
	return t.ndef, t.ndef != nil
}

func (t *pcscTag) NdefFormatable() (tags.NdefFormatable, bool) {
	return t.formatable, t.formatable != nil
}

func (t *pcscTag) MifareUltralight() (tags.MifareUltralight, bool) {
	return t.pages, t.pages != nil
}

// newTag builds the tag handle for a connected card. Type 2 cards are
// checked for NDEF unless skipNdef is set.
func newTag(card ScardCard, uid []byte, info CardInfo, skipNdef bool) *pcscTag {
	t := &pcscTag{id: uid, techs: slices.Clone(info.Techs)}
	if !tags.HasTech(info.Techs, tags.TechMifareUltralight) {
		return t
	}

	t.pages = &pageTech{card: card}
	if skipNdef {
		return t
	}

	_ = t.pages.Connect()
	n, f, err := type2.Detect(t.pages, info.DataAreaSize)
	_ = t.pages.Close()
	if err != nil {
		log.Debug().Err(err).Msg("card has no usable NDEF area")
		return t
	}

	switch {
	case n != nil:
		t.ndef = n
		t.techs = append(t.techs, tags.TechNdef)
	case f != nil:
		t.formatable = f
		t.techs = append(t.techs, tags.TechNdefFormatable)
	}
	return t
}
