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

// Package tags defines the tag handle and technology objects exposed by
// reader backends, and classifies tags by their technology lists.
//
// A Tag is only valid for the duration of one discovery callback. Backends
// keep the physical card selected until the callback returns, after which
// any technology object obtained from the tag must not be used.
package tags

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/hsanjuan/go-ndef"
)

const (
	// UltralightPageSize is the size of one MIFARE Ultralight page.
	UltralightPageSize = 4
	// UltralightPagesPerRead is the number of pages returned by one READ.
	UltralightPagesPerRead = 4
	// UltralightReadSize is the number of bytes returned by ReadPages.
	UltralightReadSize = UltralightPageSize * UltralightPagesPerRead
)

var (
	// ErrTagLost is returned by technology objects when the tag left the
	// field during an operation.
	ErrTagLost = errors.New("tag was lost")
	// ErrIO marks a transport failure while talking to the tag. Backends
	// wrap reader errors with it.
	ErrIO = errors.New("tag I/O error")
	// ErrNotConnected is returned when I/O is attempted before Connect.
	ErrNotConnected = errors.New("technology not connected")
	// ErrReadOnly is returned when writing to a tag locked read-only.
	ErrReadOnly = errors.New("tag is read-only")
)

// Tag is the opaque handle a backend creates for each discovery event.
type Tag interface {
	// ID returns the tag's anti-collision identifier.
	ID() []byte
	// Techs returns the technologies the tag supports.
	Techs() []Tech
	Ndef() (Ndef, bool)
	NdefFormatable() (NdefFormatable, bool)
	MifareUltralight() (MifareUltralight, bool)
}

// Connection is the I/O lifecycle shared by every technology object.
type Connection interface {
	Connect() error
	Close() error
	IsConnected() bool
}

// Ndef gives access to an NDEF formatted tag.
type Ndef interface {
	Connection
	// CachedMessage returns the message read at discovery time, if any.
	CachedMessage() *ndef.Message
	ReadMessage() (*ndef.Message, error)
	IsWritable() bool
	// MaxSize is the largest marshalled message the tag can hold.
	MaxSize() int
	WriteMessage(msg *ndef.Message) error
}

// NdefFormatable gives access to a tag that can be initialised with NDEF.
type NdefFormatable interface {
	Connection
	Format(msg *ndef.Message) error
}

// MifareUltralight gives page level access to Ultralight/NTAG memory.
type MifareUltralight interface {
	Connection
	// ReadPages reads four consecutive pages (16 bytes) starting at page.
	ReadPages(page int) ([]byte, error)
	// WritePage writes one 4 byte page.
	WritePage(page int, data []byte) error
}

// IsIOError reports whether err came from the radio link rather than
// from the data on the tag.
func IsIOError(err error) bool {
	return errors.Is(err, ErrTagLost) || errors.Is(err, ErrIO) || errors.Is(err, ErrNotConnected)
}

// UID returns the tag identifier as an upper case hex string.
func UID(t Tag) string {
	if t == nil {
		return ""
	}
	return strings.ToUpper(hex.EncodeToString(t.ID()))
}
