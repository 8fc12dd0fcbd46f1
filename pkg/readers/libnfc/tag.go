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

package libnfc

import (
	"fmt"
	"slices"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
	"github.com/rs/zerolog/log"
)

// pageTech is MifareUltralight over freefare's single page commands.
type pageTech struct {
	card      PageCard
	mu        syncutil.Mutex
	connected bool
}

func (p *pageTech) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return nil
	}
	if err := p.card.Connect(); err != nil {
		return fmt.Errorf("%w: connect: %w", tags.ErrIO, err)
	}
	p.connected = true
	return nil
}

func (p *pageTech) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return nil
	}
	p.connected = false
	if err := p.card.Disconnect(); err != nil {
		return fmt.Errorf("%w: disconnect: %w", tags.ErrIO, err)
	}
	return nil
}

func (p *pageTech) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// ReadPages issues one READ per page, freefare does not expose the four
// page burst.
func (p *pageTech) ReadPages(page int) ([]byte, error) {
	if !p.IsConnected() {
		return nil, tags.ErrNotConnected
	}
	data := make([]byte, 0, tags.UltralightReadSize)
	for i := range tags.UltralightPagesPerRead {
		buf, err := p.card.ReadPage(byte(page + i))
		if err != nil {
			return nil, fmt.Errorf("%w: read page %d: %w", tags.ErrIO, page+i, err)
		}
		data = append(data, buf[:]...)
	}
	return data, nil
}

func (p *pageTech) WritePage(page int, data []byte) error {
	if !p.IsConnected() {
		return tags.ErrNotConnected
	}
	if len(data) != tags.UltralightPageSize {
		return fmt.Errorf("page write needs %d bytes, got %d", tags.UltralightPageSize, len(data))
	}
	var buf [4]byte
	copy(buf[:], data)
	if err := p.card.WritePage(byte(page), buf); err != nil {
		return fmt.Errorf("%w: write page %d: %w", tags.ErrIO, page, err)
	}
	return nil
}

type libnfcTag struct {
	ndef       tags.Ndef
	formatable tags.NdefFormatable
	pages      *pageTech
	id         []byte
	techs      []tags.Tech
}

func (t *libnfcTag) ID() []byte {
	return slices.Clone(t.id)
}

func (t *libnfcTag) Techs() []tags.Tech {
	return slices.Clone(t.techs)
}

func (t *libnfcTag) Ndef() (tags.Ndef, bool) {
	return t.ndef, t.ndef != nil
}

func (t *libnfcTag) NdefFormatable() (tags.NdefFormatable, bool) {
	return t.formatable, t.formatable != nil
}

func (t *libnfcTag) MifareUltralight() (tags.MifareUltralight, bool) {
	return t.pages, t.pages != nil
}

func newTag(card Card, skipNdef bool) *libnfcTag {
	t := &libnfcTag{id: slices.Clone(card.UID), techs: slices.Clone(card.Techs)}
	if card.Pages == nil {
		return t
	}

	t.pages = &pageTech{card: card.Pages}
	if skipNdef {
		return t
	}

	if err := t.pages.Connect(); err != nil {
		log.Debug().Err(err).Msg("unable to connect for NDEF detection")
		return t
	}
	n, f, err := type2.Detect(t.pages, card.DataAreaSize)
	if closeErr := t.pages.Close(); closeErr != nil {
		log.Debug().Err(closeErr).Msg("error closing after NDEF detection")
	}
	if err != nil {
		log.Debug().Err(err).Msg("tag has no usable NDEF area")
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
