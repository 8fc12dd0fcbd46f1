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

package type2

import (
	"fmt"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/hsanjuan/go-ndef"
)

// Ndef is the Ndef technology of a formatted Type 2 tag. It shares the
// connection of the underlying page technology.
type Ndef struct {
	tags.MifareUltralight
	cached *ndef.Message
	cc     CapabilityContainer
}

var _ tags.Ndef = (*Ndef)(nil)

func NewNdef(ul tags.MifareUltralight, cc CapabilityContainer) *Ndef {
	return &Ndef{MifareUltralight: ul, cc: cc}
}

// CapabilityContainer returns the CC read at discovery.
func (n *Ndef) CapabilityContainer() CapabilityContainer {
	return n.cc
}

func (n *Ndef) CachedMessage() *ndef.Message {
	return n.cached
}

// ReadMessage reads the data area and decodes its NDEF TLV. A data area
// without an NDEF TLV reads as a nil message.
func (n *Ndef) ReadMessage() (*ndef.Message, error) {
	data, err := readDataArea(n.MifareUltralight, n.cc.DataAreaSize())
	if err != nil {
		return nil, err
	}
	return parseDataArea(data)
}

func (n *Ndef) IsWritable() bool {
	return n.cc.Writable()
}

func (n *Ndef) MaxSize() int {
	return n.cc.MaxNDEFSize()
}

func (n *Ndef) WriteMessage(msg *ndef.Message) error {
	if !n.IsWritable() {
		return tags.ErrReadOnly
	}
	if err := writeMessage(n.MifareUltralight, n.cc.DataAreaSize(), msg); err != nil {
		return err
	}
	n.cached = msg
	return nil
}

// Formatable is the NdefFormatable technology of a blank Type 2 tag.
type Formatable struct {
	tags.MifareUltralight
	dataAreaSize int
}

var _ tags.NdefFormatable = (*Formatable)(nil)

func NewFormatable(ul tags.MifareUltralight, dataAreaSize int) *Formatable {
	if dataAreaSize <= 0 {
		dataAreaSize = SizeUltralight
	}
	return &Formatable{MifareUltralight: ul, dataAreaSize: dataAreaSize}
}

// Format writes a capability container and then msg.
func (f *Formatable) Format(msg *ndef.Message) error {
	cc := NewCC(f.dataAreaSize)
	if err := f.WritePage(CCPage, cc.Bytes()); err != nil {
		return fmt.Errorf("failed to write capability container: %w", err)
	}
	return writeMessage(f.MifareUltralight, cc.DataAreaSize(), msg)
}
