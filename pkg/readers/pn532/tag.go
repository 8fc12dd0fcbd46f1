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

package pn532

import (
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
	"github.com/rs/zerolog/log"
)

// techsFor maps the chip's tag type to the technologies it exposes.
func techsFor(tagType pn532.TagType) []tags.Tech {
	switch tagType {
	case pn532.TagTypeNTAG:
		return []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight}
	case pn532.TagTypeMIFARE:
		return []tags.Tech{tags.TechNfcA, tags.TechMifareClassic}
	case pn532.TagTypeFeliCa:
		return []tags.Tech{tags.TechNfcF}
	case pn532.TagTypeUnknown, pn532.TagTypeAny:
		return []tags.Tech{tags.TechNfcA}
	default:
		return []tags.Tech{tags.TechNfcA}
	}
}

func detectedUID(detected *pn532.DetectedTag) []byte {
	if len(detected.UIDBytes) > 0 {
		return slices.Clone(detected.UIDBytes)
	}
	uid, err := hex.DecodeString(detected.UID)
	if err != nil {
		log.Debug().Err(err).Msgf("undecodable tag UID: %q", detected.UID)
		return nil
	}
	return uid
}

// pageTech is MifareUltralight over the chip's NTAG block commands.
type pageTech struct {
	ctx       context.Context
	blocks    BlockIO
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
	data := make([]byte, 0, tags.UltralightReadSize)
	for i := range tags.UltralightPagesPerRead {
		block, err := p.blocks.ReadBlock(p.ctx, uint8(page+i))
		if err != nil {
			return nil, fmt.Errorf("%w: read block %d: %w", tags.ErrIO, page+i, err)
		}
		if len(block) < tags.UltralightPageSize {
			return nil, fmt.Errorf("%w: short block %d", tags.ErrIO, page+i)
		}
		data = append(data, block[:tags.UltralightPageSize]...)
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
	if err := p.blocks.WriteBlock(p.ctx, uint8(page), data); err != nil {
		return fmt.Errorf("%w: write block %d: %w", tags.ErrIO, page, err)
	}
	return nil
}

type pn532Tag struct {
	ndef       tags.Ndef
	formatable tags.NdefFormatable
	pages      *pageTech
	id         []byte
	techs      []tags.Tech
}

func (t *pn532Tag) ID() []byte {
	return slices.Clone(t.id)
}

func (t *pn532Tag) Techs() []tags.Tech {
	return slices.Clone(t.techs)
}

func (t *pn532Tag) Ndef() (tags.Ndef, bool) {
	return t.ndef, t.ndef != nil
}

func (t *pn532Tag) NdefFormatable() (tags.NdefFormatable, bool) {
	return t.formatable, t.formatable != nil
}

func (t *pn532Tag) MifareUltralight() (tags.MifareUltralight, bool) {
	return t.pages, t.pages != nil
}

// newTag builds the handle for a detection. blocks may be nil when the
// tag could not be selected for I/O, the tag is then classified only.
func newTag(ctx context.Context, detected *pn532.DetectedTag, blocks BlockIO, skipNdef bool) *pn532Tag {
	t := &pn532Tag{id: detectedUID(detected), techs: techsFor(detected.Type)}
	if blocks == nil || detected.Type != pn532.TagTypeNTAG {
		return t
	}

	t.pages = &pageTech{ctx: ctx, blocks: blocks}
	if skipNdef {
		return t
	}

	_ = t.pages.Connect()
	n, f, err := type2.Detect(t.pages, type2.SizeUltralight)
	_ = t.pages.Close()
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
