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
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
)

const (
	// RTDText is the well-known record type for text records.
	RTDText = "T"
	// RTDURI is the well-known record type for URI records.
	RTDURI = "U"
)

// rawPayload carries record payload bytes verbatim.
type rawPayload struct {
	typ  string
	data []byte
}

func (p *rawPayload) String() string {
	return hex.EncodeToString(p.data)
}

func (p *rawPayload) Type() string {
	return p.typ
}

func (p *rawPayload) Marshal() []byte {
	return p.data
}

func (p *rawPayload) Len() int {
	return len(p.data)
}

func (p *rawPayload) Unmarshal(buf []byte) {
	p.data = append([]byte(nil), buf...)
}

// NewRecord builds a record from raw payload bytes.
func NewRecord(tnf byte, typ string, payload []byte) *ndef.Record {
	return ndef.NewRecord(tnf, typ, "", &rawPayload{typ: typ, data: payload})
}

// NewEmptyMessage returns a message holding one TNF_EMPTY record. Writing
// it clears the content of a tag without unformatting it.
func NewEmptyMessage() *ndef.Message {
	return ndef.NewMessageFromRecords(NewRecord(ndef.Empty, "", nil))
}

// IsEmptyMessage reports whether msg has no records or only TNF_EMPTY ones.
// A nil message is not empty, it is absent.
func IsEmptyMessage(msg *ndef.Message) bool {
	if msg == nil {
		return false
	}
	for _, rec := range msg.Records {
		if rec != nil && rec.TNF() != ndef.Empty {
			return false
		}
	}
	return true
}

// IsWellKnown reports whether rec is a well-known record of type typ.
func IsWellKnown(rec *ndef.Record, typ string) bool {
	return rec != nil && rec.TNF() == ndef.NFCForumWellKnownType && rec.Type() == typ
}

// PayloadBytes extracts the raw payload bytes of a record. The bytes are
// taken from the record's wire encoding so malformed payloads are returned
// verbatim instead of being interpreted.
func PayloadBytes(rec *ndef.Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}
	wire, err := rec.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF record: %w", err)
	}
	return recordPayload(wire)
}

const (
	flagCF = 0x20
	flagSR = 0x10
	flagIL = 0x08
)

// recordPayload walks the chunks of one encoded record and concatenates
// their payloads.
func recordPayload(wire []byte) ([]byte, error) {
	var payload []byte
	offset := 0
	for {
		if offset+2 > len(wire) {
			return nil, fmt.Errorf("%w: truncated record header", ErrInvalidNDEF)
		}
		flags := wire[offset]
		typeLen := int(wire[offset+1])
		offset += 2

		var payloadLen int
		if flags&flagSR != 0 {
			if offset+1 > len(wire) {
				return nil, fmt.Errorf("%w: truncated payload length", ErrInvalidNDEF)
			}
			payloadLen = int(wire[offset])
			offset++
		} else {
			if offset+4 > len(wire) {
				return nil, fmt.Errorf("%w: truncated payload length", ErrInvalidNDEF)
			}
			payloadLen = int(binary.BigEndian.Uint32(wire[offset : offset+4]))
			offset += 4
		}

		idLen := 0
		if flags&flagIL != 0 {
			if offset+1 > len(wire) {
				return nil, fmt.Errorf("%w: truncated id length", ErrInvalidNDEF)
			}
			idLen = int(wire[offset])
			offset++
		}

		start := offset + typeLen + idLen
		end := start + payloadLen
		if end > len(wire) || end < start {
			return nil, fmt.Errorf("%w: payload overruns record", ErrInvalidNDEF)
		}
		payload = append(payload, wire[start:end]...)
		offset = end

		if flags&flagCF == 0 || offset >= len(wire) {
			return payload, nil
		}
	}
}

// MessageSize returns the marshalled length of msg.
func MessageSize(msg *ndef.Message) (int, error) {
	b, err := Marshal(msg)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// Marshal encodes msg to wire bytes.
func Marshal(msg *ndef.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.New("nil NDEF message")
	}
	b, err := msg.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal NDEF message: %w", err)
	}
	return b, nil
}

// Unmarshal decodes wire bytes into a message.
func Unmarshal(data []byte) (*ndef.Message, error) {
	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("failed to parse NDEF message: %w", err)
	}
	return msg, nil
}

// ParseTLV extracts and decodes the NDEF message stored in a Type 2 data
// area. A zero length NDEF TLV yields a message with no records.
func ParseTLV(data []byte) (*ndef.Message, error) {
	payload, err := ExtractNDEFPayload(data)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return &ndef.Message{}, nil
	}
	return Unmarshal(payload)
}

// BuildTLV marshals msg and frames it for a Type 2 data area.
func BuildTLV(msg *ndef.Message) ([]byte, error) {
	payload, err := Marshal(msg)
	if err != nil {
		return nil, err
	}
	return WrapTLV(payload)
}
