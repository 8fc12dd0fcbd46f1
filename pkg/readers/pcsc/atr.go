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
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
)

// Standard byte values from the PC/SC part 3 storage card ATR.
const (
	std14443AMax = 0x03
	std14443BMin = 0x05
	std14443BMax = 0x07
	std15693Min  = 0x09
	std15693Max  = 0x0C
	stdFeliCa    = 0x11
)

// Card name low bytes from the PC/SC part 3 registry.
const (
	cardClassic1K   = 0x01
	cardClassic4K   = 0x02
	cardUltralight  = 0x03
	cardMini        = 0x04
	cardUltralightC = 0x05
	cardPlus2KSL1   = 0x06
	cardPlus4KSL1   = 0x07
	cardPlus2KSL2   = 0x0A
	cardPlus4KSL2   = 0x0B
	cardDESFire     = 0x26
)

// CardInfo is what the ATR reveals about the card in the field.
type CardInfo struct {
	Techs []tags.Tech
	// DataAreaSize is the Type 2 data area assumed when formatting.
	DataAreaSize int
}

// ParseATR maps an ATR to the technologies the card supports.
func ParseATR(atr []byte) CardInfo {
	hist := historicalBytes(atr)
	if std, name, ok := storageCard(hist); ok {
		return storageCardInfo(std, name)
	}
	if hasT1Protocol(atr) {
		return CardInfo{Techs: []tags.Tech{tags.TechNfcA, tags.TechIsoDep}}
	}
	return CardInfo{}
}

func storageCardInfo(std, name byte) CardInfo {
	switch {
	case std == stdFeliCa:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcF}}
	case std >= std15693Min && std <= std15693Max:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcV}}
	case std >= std14443BMin && std <= std14443BMax:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcB}}
	case std > std14443AMax:
		return CardInfo{}
	}

	switch name {
	case cardUltralight:
		return CardInfo{
			Techs:        []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight},
			DataAreaSize: type2.SizeUltralight,
		}
	case cardUltralightC:
		return CardInfo{
			Techs:        []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight},
			DataAreaSize: type2.SizeNTAG213,
		}
	case cardClassic1K, cardClassic4K, cardMini,
		cardPlus2KSL1, cardPlus4KSL1, cardPlus2KSL2, cardPlus4KSL2:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcA, tags.TechMifareClassic}}
	case cardDESFire:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcA, tags.TechIsoDep}}
	default:
		return CardInfo{Techs: []tags.Tech{tags.TechNfcA}}
	}
}

// storageCard finds the "80 4F 0C A0 00 00 03 06 SS NN NN" block in the
// historical bytes and returns the standard byte and card name low byte.
func storageCard(hist []byte) (std, name byte, ok bool) {
	for i := 0; i+10 < len(hist); i++ {
		if hist[i] == 0x80 && hist[i+1] == 0x4F &&
			hist[i+3] == 0xA0 && hist[i+4] == 0x00 && hist[i+5] == 0x00 &&
			hist[i+6] == 0x03 && hist[i+7] == 0x06 {
			return hist[i+8], hist[i+10], true
		}
	}
	return 0, 0, false
}

// historicalBytes skips TS, T0 and the interface bytes.
func historicalBytes(atr []byte) []byte {
	if len(atr) < 2 || (atr[0] != 0x3B && atr[0] != 0x3F) {
		return nil
	}
	count := int(atr[1] & 0x0F)
	pos := 2
	td := atr[1]
	for {
		for _, bit := range []byte{0x10, 0x20, 0x40} {
			if td&bit != 0 {
				pos++
			}
		}
		if td&0x80 == 0 {
			break
		}
		if pos >= len(atr) {
			return nil
		}
		td = atr[pos]
		pos++
	}
	if pos >= len(atr) {
		return nil
	}
	end := min(pos+count, len(atr))
	return atr[pos:end]
}

// hasT1Protocol reports whether any TDi byte announces T=1, which
// contactless readers use for ISO 14443-4 cards.
func hasT1Protocol(atr []byte) bool {
	if len(atr) < 2 || (atr[0] != 0x3B && atr[0] != 0x3F) {
		return false
	}
	pos := 2
	td := atr[1]
	for td&0x80 != 0 {
		for _, bit := range []byte{0x10, 0x20, 0x40} {
			if td&bit != 0 {
				pos++
			}
		}
		if pos >= len(atr) {
			return false
		}
		td = atr[pos]
		pos++
		if td&0x0F == 0x01 {
			return true
		}
	}
	return false
}
