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

// Package ultralight stores a single length-prefixed UTF-8 string in a
// fixed window of MIFARE Ultralight pages, bypassing NDEF entirely.
//
// The window layout is [1 byte length][UTF-8 bytes][zero padding]. This
// framing is specific to this library, it is not a tag-level standard.
package ultralight

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
)

const (
	// MaxStringLength is the largest encoding a 1 byte prefix can describe.
	MaxStringLength = 0xFF
	// lengthPrefixSize is the number of bytes reserved for the prefix.
	lengthPrefixSize = 1
	// minNetCapacity is the smallest usable window after the prefix.
	minNetCapacity = 2
	// maxPage is the highest page address of the READ/WRITE commands.
	maxPage = 0xFF
)

var (
	ErrLengthExceeded = errors.New("string length exceeded")
	ErrParse          = errors.New("unable to parse page data")
	ErrInvalidWindow  = errors.New("invalid page window")
	ErrNotEnoughSpace = errors.New("not enough space in page window")
)

// Window is the range of pages the codec reads and writes.
type Window struct {
	StartPage int
	PageCount int
}

// NewWindow validates a page window.
func NewWindow(startPage, pageCount int) (Window, error) {
	w := Window{StartPage: startPage, PageCount: pageCount}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate checks the window fits the page address space and leaves room
// for at least two bytes after the length prefix.
func (w Window) Validate() error {
	switch {
	case w.StartPage < 0 || w.StartPage > maxPage:
		return fmt.Errorf("%w: start page %d", ErrInvalidWindow, w.StartPage)
	case w.PageCount < 1:
		return fmt.Errorf("%w: page count %d", ErrInvalidWindow, w.PageCount)
	case w.StartPage+w.PageCount-1 > maxPage:
		return fmt.Errorf("%w: pages %d-%d beyond address space",
			ErrInvalidWindow, w.StartPage, w.StartPage+w.PageCount-1)
	case w.NetCapacity() < minNetCapacity:
		return fmt.Errorf("%w: net capacity %d", ErrInvalidWindow, w.NetCapacity())
	}
	return nil
}

// Capacity is the size of the window in bytes.
func (w Window) Capacity() int {
	return w.PageCount * tags.UltralightPageSize
}

// NetCapacity is the space left for string bytes.
func (w Window) NetCapacity() int {
	return w.Capacity() - lengthPrefixSize
}

// MaxLength is the longest UTF-8 encoding the window accepts.
func (w Window) MaxLength() int {
	return min(MaxStringLength, w.NetCapacity())
}

// TextCodec converts between a page window and a single string.
type TextCodec struct {
	window Window
}

func NewTextCodec(window Window) (*TextCodec, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return &TextCodec{window: window}, nil
}

// Window returns the configured page window.
func (c *TextCodec) Window() Window {
	return c.window
}

// Prepare encodes exactly one string as [length][UTF-8 bytes].
func (c *TextCodec) Prepare(values []string) ([]byte, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("expected exactly one string, got %d", len(values))
	}

	encoded := []byte(values[0])
	if len(encoded) > MaxStringLength {
		return nil, fmt.Errorf("%w: %d bytes is over the %d byte prefix limit",
			ErrLengthExceeded, len(encoded), MaxStringLength)
	}
	if len(encoded) > c.window.NetCapacity() {
		return nil, fmt.Errorf("%w: %d bytes does not fit a %d byte window",
			ErrLengthExceeded, len(encoded), c.window.NetCapacity())
	}

	buf := make([]byte, 0, lengthPrefixSize+len(encoded))
	buf = append(buf, byte(len(encoded)))
	buf = append(buf, encoded...)
	return buf, nil
}

// Parse decodes a page window back into a single string.
func (c *TextCodec) Parse(data []byte) ([]string, error) {
	if len(data) < lengthPrefixSize {
		return nil, fmt.Errorf("%w: no length byte", ErrParse)
	}

	length := int(data[0]) & 0xFF
	if length == 0 {
		return []string{""}, nil
	}

	if length > len(data)-lengthPrefixSize {
		return nil, fmt.Errorf("%w: length %d exceeds %d available bytes",
			ErrParse, length, len(data)-lengthPrefixSize)
	}
	if length > c.window.MaxLength() {
		return nil, fmt.Errorf("%w: length %d exceeds window maximum %d",
			ErrParse, length, c.window.MaxLength())
	}

	body := data[lengthPrefixSize : lengthPrefixSize+length]
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: invalid UTF-8", ErrParse)
	}
	return []string{string(body)}, nil
}

// CleaningData is a zero length string, which parses back to "".
func (*TextCodec) CleaningData() []byte {
	return []byte{0x00}
}
