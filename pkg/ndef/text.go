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
	"errors"
	"fmt"

	"github.com/hsanjuan/go-ndef"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/unicode"
)

const (
	// DefaultLanguage is used when no language code is configured.
	DefaultLanguage = "en"
	// MalformedRecord replaces the text of a record that could not be
	// decoded, so one bad record does not hide the others.
	MalformedRecord = "<malformed text record>"

	textUTF16Flag  = 0x80
	textLangMask   = 0x3F
	maxLanguageLen = textLangMask
)

var (
	ErrLanguageTooLong = errors.New("language code longer than 63 bytes")
	ErrNoValues        = errors.New("no values to prepare")
)

// TextCodec reads and writes RTD_TEXT records.
type TextCodec struct {
	language string
}

// NewTextCodec returns a text codec writing records tagged with language.
// An empty language falls back to DefaultLanguage.
func NewTextCodec(language string) (*TextCodec, error) {
	if language == "" {
		language = DefaultLanguage
	}
	if len(language) > maxLanguageLen {
		return nil, fmt.Errorf("%w: %q", ErrLanguageTooLong, language)
	}
	return &TextCodec{language: language}, nil
}

// Language returns the language code used for prepared records.
func (c *TextCodec) Language() string {
	return c.language
}

// Parse decodes every text record in msg. Other record types are skipped.
func (*TextCodec) Parse(msg *ndef.Message) ([]string, error) {
	if msg == nil {
		return nil, errors.New("nil NDEF message")
	}

	result := make([]string, 0, len(msg.Records))
	for i, rec := range msg.Records {
		if !IsWellKnown(rec, RTDText) {
			continue
		}

		payload, err := PayloadBytes(rec)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("unable to read text record payload")
			result = append(result, MalformedRecord)
			continue
		}

		text, _, err := DecodeTextPayload(payload)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("malformed text record")
			result = append(result, MalformedRecord)
			continue
		}
		result = append(result, text)
	}

	return result, nil
}

// Prepare builds one text record per value, all in one message.
func (c *TextCodec) Prepare(values []string) (*ndef.Message, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}

	records := make([]*ndef.Record, 0, len(values))
	for _, v := range values {
		records = append(records, NewRecord(ndef.NFCForumWellKnownType, RTDText, EncodeTextPayload(v, c.language)))
	}
	return ndef.NewMessageFromRecords(records...), nil
}

// CleaningData returns a single empty record message.
func (*TextCodec) CleaningData() *ndef.Message {
	return NewEmptyMessage()
}

// EncodeTextPayload builds a UTF-8 text record payload.
func EncodeTextPayload(text, language string) []byte {
	payload := make([]byte, 0, 1+len(language)+len(text))
	payload = append(payload, byte(len(language))&textLangMask)
	payload = append(payload, language...)
	payload = append(payload, text...)
	return payload
}

// DecodeTextPayload decodes a text record payload into its text and
// language code.
func DecodeTextPayload(payload []byte) (text, language string, err error) {
	if len(payload) < 1 {
		return "", "", errors.New("text payload too short")
	}

	// First byte contains status
	status := payload[0]
	langLen := int(status & textLangMask)

	if len(payload) < 1+langLen {
		return "", "", fmt.Errorf("language length %d exceeds payload of %d bytes", langLen, len(payload))
	}

	language = string(payload[1 : 1+langLen])
	body := payload[1+langLen:]

	if status&textUTF16Flag == 0 {
		return string(body), language, nil
	}

	decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(body)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode UTF-16 text: %w", err)
	}
	return string(decoded), language, nil
}
