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

// Package type2 implements the NFC Forum Type 2 Tag memory layout on top
// of raw Ultralight page access. Backends use it to expose Ndef and
// NdefFormatable technologies for NTAG and Ultralight cards.
//
// Layout: pages 0-2 hold the UID and static lock bytes, page 3 the
// capability container and the data area starts at page 4.
package type2

import (
	"errors"
	"fmt"

	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/hsanjuan/go-ndef"
	"github.com/rs/zerolog/log"
)

const (
	// CCPage is the page holding the capability container.
	CCPage = 3
	// DataStartPage is the first page of the data area.
	DataStartPage = 4

	// CCMagic marks a tag as NDEF formatted.
	CCMagic = 0xE1
	// CCVersion is mapping version 1.0.
	CCVersion = 0x10
	// AccessReadWrite is the access byte of a writable tag.
	AccessReadWrite = 0x00
	// AccessReadOnly is the access byte of a locked tag.
	AccessReadOnly = 0x0F
)

// Data area sizes of common tags, in bytes.
const (
	SizeUltralight = 48
	SizeNTAG213    = 144
	SizeNTAG215    = 496
	SizeNTAG216    = 872
)

var (
	ErrNotFormatted = errors.New("tag has no NDEF capability container")
	ErrInvalidCC    = errors.New("invalid capability container")
	ErrMessageSize  = errors.New("NDEF message does not fit data area")
)

// CapabilityContainer is the four byte CC stored at page 3.
type CapabilityContainer struct {
	Magic   byte
	Version byte
	Size    byte
	Access  byte
}

// NewCC builds a writable capability container for a data area.
func NewCC(dataAreaSize int) CapabilityContainer {
	return CapabilityContainer{
		Magic:   CCMagic,
		Version: CCVersion,
		Size:    byte(min(dataAreaSize/8, 0xFF)),
		Access:  AccessReadWrite,
	}
}

// ParseCC decodes the CC from the page 3 bytes.
func ParseCC(page []byte) (CapabilityContainer, error) {
	if len(page) < tags.UltralightPageSize {
		return CapabilityContainer{}, fmt.Errorf("%w: %d bytes", ErrInvalidCC, len(page))
	}
	cc := CapabilityContainer{
		Magic:   page[0],
		Version: page[1],
		Size:    page[2],
		Access:  page[3],
	}
	if cc.IsBlank() {
		return cc, ErrNotFormatted
	}
	if cc.Magic != CCMagic {
		return cc, fmt.Errorf("%w: magic %#02x", ErrInvalidCC, cc.Magic)
	}
	if cc.Version>>4 != CCVersion>>4 {
		return cc, fmt.Errorf("%w: unsupported version %#02x", ErrInvalidCC, cc.Version)
	}
	return cc, nil
}

// IsBlank reports whether the CC is unwritten.
func (cc CapabilityContainer) IsBlank() bool {
	return cc == CapabilityContainer{}
}

// Bytes encodes the CC as one page.
func (cc CapabilityContainer) Bytes() []byte {
	return []byte{cc.Magic, cc.Version, cc.Size, cc.Access}
}

// DataAreaSize is the data area size in bytes.
func (cc CapabilityContainer) DataAreaSize() int {
	return int(cc.Size) * 8
}

// Writable reports whether the write access nibble grants access.
func (cc CapabilityContainer) Writable() bool {
	return cc.Access&0x0F == AccessReadWrite
}

// MaxNDEFSize is the largest NDEF message the data area can hold once
// the TLV header and terminator are accounted for.
func (cc CapabilityContainer) MaxNDEFSize() int {
	return MaxMessageSize(cc.DataAreaSize())
}

// MaxMessageSize returns the NDEF capacity of a data area.
func MaxMessageSize(dataAreaSize int) int {
	short := dataAreaSize - ndefcodec.TLVOverhead(0)
	if short < 0xFF {
		return max(short, 0)
	}
	return dataAreaSize - ndefcodec.TLVOverhead(0xFF)
}

// Detect inspects a connected tag and returns the technologies its
// memory supports. Exactly one of the returned values is non-nil when
// err is nil.
func Detect(ul tags.MifareUltralight, defaultSize int) (tags.Ndef, tags.NdefFormatable, error) {
	head, err := ul.ReadPages(0)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header pages: %w", err)
	}
	if len(head) < tags.UltralightReadSize {
		return nil, nil, fmt.Errorf("short header read: %d bytes", len(head))
	}

	cc, err := ParseCC(head[CCPage*tags.UltralightPageSize:])
	switch {
	case errors.Is(err, ErrNotFormatted):
		return nil, NewFormatable(ul, defaultSize), nil
	case err != nil:
		return nil, nil, err
	}

	n := NewNdef(ul, cc)
	msg, err := n.ReadMessage()
	if err != nil {
		log.Debug().Err(err).Msg("no cached NDEF message")
	} else {
		n.cached = msg
	}
	return n, nil, nil
}

// readDataArea reads size bytes starting at DataStartPage.
func readDataArea(ul tags.MifareUltralight, size int) ([]byte, error) {
	data := make([]byte, 0, size+tags.UltralightReadSize)
	for page := DataStartPage; len(data) < size; page += tags.UltralightPagesPerRead {
		burst, err := ul.ReadPages(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", page, err)
		}
		data = append(data, burst...)
	}
	return data[:size], nil
}

// writeDataArea writes data from DataStartPage, zero padding the last page.
func writeDataArea(ul tags.MifareUltralight, data []byte) error {
	for off := 0; off < len(data); off += tags.UltralightPageSize {
		page := make([]byte, tags.UltralightPageSize)
		copy(page, data[off:])
		p := DataStartPage + off/tags.UltralightPageSize
		if err := ul.WritePage(p, page); err != nil {
			return fmt.Errorf("failed to write page %d: %w", p, err)
		}
	}
	return nil
}

func writeMessage(ul tags.MifareUltralight, dataAreaSize int, msg *ndef.Message) error {
	framed, err := ndefcodec.BuildTLV(msg)
	if err != nil {
		return err
	}
	if len(framed) > dataAreaSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrMessageSize, len(framed), dataAreaSize)
	}
	return writeDataArea(ul, framed)
}

func parseDataArea(data []byte) (*ndef.Message, error) {
	msg, err := ndefcodec.ParseTLV(data)
	if errors.Is(err, ndefcodec.ErrNoNDEF) {
		return nil, nil //nolint:nilnil // an absent message is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse data area: %w", err)
	}
	return msg, nil
}
