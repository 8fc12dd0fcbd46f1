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

// Package ndef converts between go-ndef messages and application values
// (text, URIs) and implements the Type 2 TLV framing used to store NDEF
// messages in raw tag memory.
package ndef

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	TLVNull       byte = 0x00
	TLVLockCtrl   byte = 0x01
	TLVMemoryCtrl byte = 0x02
	TLVNdef       byte = 0x03
	TLVTerminator byte = 0xFE

	// maxTLVLength is the largest value length expressible in 3-byte format.
	maxTLVLength = 0xFFFF
)

var (
	// NdefEnd is the terminator TLV.
	NdefEnd = []byte{TLVTerminator}

	// ErrNoNDEF is returned when no NDEF TLV is found.
	ErrNoNDEF = errors.New("no NDEF record found")
	// ErrInvalidNDEF is returned when the TLV framing is invalid.
	ErrInvalidNDEF = errors.New("invalid NDEF format")
	// ErrPayloadTooLarge is returned when a message exceeds the TLV limit.
	ErrPayloadTooLarge = errors.New("NDEF record too large for Type 2 tag format")
)

// CalculateNDEFHeader returns the NDEF TLV header for a payload.
func CalculateNDEFHeader(payload []byte) ([]byte, error) {
	length := len(payload)

	// Short format (length < 255)
	if length < 0xFF {
		return []byte{TLVNdef, byte(length)}, nil
	}

	// Long format (length >= 255)
	// NFCForum-TS-Type-2-Tag_1.1.pdf Page 9
	if length > maxTLVLength {
		return nil, ErrPayloadTooLarge
	}

	header := []byte{TLVNdef, 0xFF}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, uint16(length)); err != nil {
		return nil, fmt.Errorf("failed to write NDEF length header: %w", err)
	}

	return append(header, buf.Bytes()...), nil
}

// WrapTLV frames a marshalled message as NDEF TLV followed by a terminator.
func WrapTLV(payload []byte) ([]byte, error) {
	header, err := CalculateNDEFHeader(payload)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(header)+len(payload)+1)
	result = append(result, header...)
	result = append(result, payload...)
	result = append(result, NdefEnd...)

	return result, nil
}

// TLVOverhead returns the framing bytes WrapTLV adds for a payload size.
func TLVOverhead(payloadLen int) int {
	if payloadLen < 0xFF {
		return 3
	}
	return 5
}
