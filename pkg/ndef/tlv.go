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

package ndef

import (
	"encoding/binary"
	"fmt"
)

// ExtractNDEFPayload walks the TLV blocks of a Type 2 data area and returns
// the value of the first NDEF TLV. Lock and memory control TLVs are
// skipped, NULL TLVs are padding and a terminator ends the search.
func ExtractNDEFPayload(data []byte) ([]byte, error) {
	offset := 0
	for offset < len(data) {
		tlvType := data[offset]
		switch tlvType {
		case TLVNull:
			offset++
			continue
		case TLVTerminator:
			return nil, ErrNoNDEF
		}

		length, headerLen, err := readTLVLength(data, offset)
		if err != nil {
			return nil, err
		}

		start := offset + headerLen
		end := start + length
		if end > len(data) {
			return nil, fmt.Errorf("%w: TLV at offset %d overruns data area", ErrInvalidNDEF, offset)
		}

		if tlvType == TLVNdef {
			return data[start:end], nil
		}

		offset = end
	}

	return nil, ErrNoNDEF
}

// readTLVLength decodes the length field of the TLV at offset, returning
// the value length and the size of the type+length header.
func readTLVLength(data []byte, offset int) (length, headerLen int, err error) {
	if offset+1 >= len(data) {
		return 0, 0, fmt.Errorf("%w: truncated TLV at offset %d", ErrInvalidNDEF, offset)
	}

	// Short format
	if data[offset+1] != 0xFF {
		return int(data[offset+1]), 2, nil
	}

	// Long format
	if offset+4 > len(data) {
		return 0, 0, fmt.Errorf("%w: truncated long TLV at offset %d", ErrInvalidNDEF, offset)
	}
	return int(binary.BigEndian.Uint16(data[offset+2 : offset+4])), 4, nil
}
