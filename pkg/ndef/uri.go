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
	"net/url"
	"strings"

	"github.com/hsanjuan/go-ndef"
	"github.com/rs/zerolog/log"
)

// URI prefixes as defined in NFC Forum URI RTD
var uriPrefixes = []string{
	"",
	"http://www.",
	"https://www.",
	"http://",
	"https://",
	"tel:",
	"mailto:",
	"ftp://anonymous:anonymous@",
	"ftp://ftp.",
	"ftps://",
	"sftp://",
	"smb://",
	"nfs://",
	"ftp://",
	"dav://",
	"news:",
	"telnet://",
	"imap:",
	"rtsp://",
	"urn:",
	"pop:",
	"sip:",
	"sips:",
	"tftp:",
	"btspp://",
	"btl2cap://",
	"btgoep://",
	"tcpobex://",
	"irdaobex://",
	"file://",
	"urn:epc:id:",
	"urn:epc:tag:",
	"urn:epc:pat:",
	"urn:epc:raw:",
	"urn:epc:",
	"urn:nfc:",
}

// URICodec reads and writes RTD_URI records.
type URICodec struct{}

func NewURICodec() *URICodec {
	return &URICodec{}
}

// Parse decodes every URI record in msg. Records with an unknown prefix
// code or an unparsable URI are skipped.
func (*URICodec) Parse(msg *ndef.Message) ([]*url.URL, error) {
	if msg == nil {
		return nil, errors.New("nil NDEF message")
	}

	result := make([]*url.URL, 0, len(msg.Records))
	for i, rec := range msg.Records {
		if !IsWellKnown(rec, RTDURI) {
			continue
		}

		payload, err := PayloadBytes(rec)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("unable to read URI record payload")
			continue
		}

		raw, err := DecodeURIPayload(payload)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("malformed URI record")
			continue
		}

		u, err := url.Parse(raw)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Msg("unparsable URI in record")
			continue
		}
		result = append(result, u)
	}

	return result, nil
}

// Prepare builds one URI record per value. Values that cannot be encoded
// are logged and skipped.
func (*URICodec) Prepare(values []*url.URL) (*ndef.Message, error) {
	records := make([]*ndef.Record, 0, len(values))
	for i, u := range values {
		if u == nil || u.String() == "" {
			log.Warn().Int("index", i).Msg("skipping empty URI")
			continue
		}
		records = append(records, NewRecord(ndef.NFCForumWellKnownType, RTDURI, EncodeURIPayload(u.String())))
	}

	if len(records) == 0 {
		return nil, ErrNoValues
	}
	return ndef.NewMessageFromRecords(records...), nil
}

// CleaningData returns a single empty record message.
func (*URICodec) CleaningData() *ndef.Message {
	return NewEmptyMessage()
}

// EncodeURIPayload abbreviates the longest known prefix of uri.
func EncodeURIPayload(uri string) []byte {
	code := 0
	for i, prefix := range uriPrefixes {
		if prefix != "" && strings.HasPrefix(uri, prefix) && len(prefix) > len(uriPrefixes[code]) {
			code = i
		}
	}

	rest := uri[len(uriPrefixes[code]):]
	payload := make([]byte, 0, 1+len(rest))
	payload = append(payload, byte(code))
	payload = append(payload, rest...)
	return payload
}

// DecodeURIPayload expands a URI record payload.
func DecodeURIPayload(payload []byte) (string, error) {
	if len(payload) < 1 {
		return "", errors.New("URI payload too short")
	}

	prefixCode := int(payload[0])
	if prefixCode >= len(uriPrefixes) {
		return "", fmt.Errorf("invalid URI prefix code: %d", prefixCode)
	}

	return uriPrefixes[prefixCode] + string(payload[1:]), nil
}
