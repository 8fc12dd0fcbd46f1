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
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
	"github.com/rs/zerolog/log"
)

// PageCard is the page level access freefare gives Ultralight and NTAG
// tags. freefare.UltralightTag satisfies it.
type PageCard interface {
	Connect() error
	Disconnect() error
	ReadPage(page byte) ([4]byte, error)
	WritePage(page byte, data [4]byte) error
}

// Card is one target found in the field.
type Card struct {
	// Pages is nil unless the card is an Ultralight or NTAG.
	Pages PageCard
	UID   []byte
	Techs []tags.Tech
	// DataAreaSize is the Type 2 size used if the card is blank.
	DataAreaSize int
}

// Device is an opened libnfc device.
type Device interface {
	// Cards lists the targets currently in the field.
	Cards() ([]Card, error)
	String() string
	Connection() string
	Close() error
}

// DeviceOpener opens a libnfc connection string. An empty string lets
// libnfc pick the first device it finds.
type DeviceOpener func(connStr string) (Device, error)

func openNFCDevice(connStr string) (Device, error) {
	pnd, err := nfc.Open(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open nfc device: %w", err)
	}
	if err := pnd.InitiatorInit(); err != nil {
		if closeErr := pnd.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing device after failed init")
		}
		return nil, fmt.Errorf("failed to init initiator: %w", err)
	}
	return &nfcDevice{pnd: pnd}, nil
}

type nfcDevice struct {
	pnd nfc.Device
}

func (d *nfcDevice) Cards() ([]Card, error) {
	found, err := freefare.GetTags(d.pnd)
	if err != nil {
		if errors.Is(err, nfc.Error(nfc.EIO)) {
			return nil, fmt.Errorf("%w: %w", ErrDeviceLost, err)
		}
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}

	cards := make([]Card, 0, len(found))
	for _, ft := range found {
		uid, err := hex.DecodeString(ft.UID())
		if err != nil || len(uid) == 0 {
			log.Warn().Msgf("unable to decode tag UID: %q", ft.UID())
			continue
		}

		card := Card{UID: uid}
		switch t := ft.(type) {
		case freefare.UltralightTag:
			card.Techs = []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight}
			card.Pages = t
			if t.Type() == freefare.UltralightC {
				card.DataAreaSize = type2.SizeNTAG213
			}
		case freefare.ClassicTag:
			card.Techs = []tags.Tech{tags.TechNfcA, tags.TechMifareClassic}
		case freefare.DESFireTag:
			card.Techs = []tags.Tech{tags.TechNfcA, tags.TechIsoDep}
		default:
			card.Techs = []tags.Tech{tags.TechNfcA}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (d *nfcDevice) String() string {
	return d.pnd.String()
}

func (d *nfcDevice) Connection() string {
	return d.pnd.Connection()
}

func (d *nfcDevice) Close() error {
	if err := d.pnd.Close(); err != nil {
		return fmt.Errorf("failed to close nfc device: %w", err)
	}
	return nil
}
