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

package ultralight

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags/memtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWindowValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		window  Window
		wantErr bool
	}{
		{name: "default", window: Window{StartPage: 4, PageCount: 12}},
		{name: "single page", window: Window{StartPage: 4, PageCount: 1}},
		{name: "no pages", window: Window{StartPage: 4, PageCount: 0}, wantErr: true},
		{name: "negative start", window: Window{StartPage: -1, PageCount: 4}, wantErr: true},
		{name: "past address space", window: Window{StartPage: 250, PageCount: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.window.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestWindowCapacity(t *testing.T) {
	t.Parallel()

	w := Window{StartPage: 4, PageCount: 12}
	assert.Equal(t, 48, w.Capacity())
	assert.Equal(t, 47, w.NetCapacity())
	assert.Equal(t, 47, w.MaxLength())

	big := Window{StartPage: 4, PageCount: 200}
	assert.Equal(t, MaxStringLength, big.MaxLength())
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	codec, err := NewTextCodec(Window{StartPage: 4, PageCount: 12})
	require.NoError(t, err)

	data, err := codec.Prepare([]string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 'h', 'i'}, data)

	_, err = codec.Prepare([]string{strings.Repeat("x", 48)})
	require.ErrorIs(t, err, ErrLengthExceeded)

	_, err = codec.Prepare([]string{"a", "b"})
	require.Error(t, err)
	_, err = codec.Prepare(nil)
	require.Error(t, err)
}

func TestPrepare_OverPrefixLimit(t *testing.T) {
	t.Parallel()

	codec, err := NewTextCodec(Window{StartPage: 4, PageCount: 100})
	require.NoError(t, err)

	_, err = codec.Prepare([]string{strings.Repeat("x", 255)})
	require.NoError(t, err)
	_, err = codec.Prepare([]string{strings.Repeat("x", 256)})
	require.ErrorIs(t, err, ErrLengthExceeded)
}

func TestParse(t *testing.T) {
	t.Parallel()

	codec, err := NewTextCodec(Window{StartPage: 4, PageCount: 4})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		want    []string
		wantErr bool
	}{
		{name: "empty string", data: []byte{0x00, 0xFF, 0xFF}, want: []string{""}},
		{name: "text with padding", data: []byte{0x03, 'a', 'b', 'c', 0x00, 0x00}, want: []string{"abc"}},
		{name: "no data", data: nil, wantErr: true},
		{name: "length overrun", data: []byte{0x05, 'a', 'b'}, wantErr: true},
		{name: "over window maximum", data: append([]byte{0x10}, make([]byte, 16)...), wantErr: true},
		{name: "invalid utf8", data: []byte{0x02, 0xC3, 0x28}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := codec.Parse(tt.data)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleaningDataParsesEmpty(t *testing.T) {
	t.Parallel()

	codec, err := NewTextCodec(Window{StartPage: 4, PageCount: 4})
	require.NoError(t, err)
	got, err := codec.Parse(codec.CleaningData())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, got)
}

func TestReadWriteWindow(t *testing.T) {
	t.Parallel()

	w := Window{StartPage: 4, PageCount: 6}
	tag := memtag.New([]byte{0x04}, memtag.WithPages(make([]byte, 64)))
	ul, ok := tag.MifareUltralight()
	require.True(t, ok)
	require.NoError(t, ul.Connect())

	codec, err := NewTextCodec(w)
	require.NoError(t, err)
	data, err := codec.Prepare([]string{"zaparoo"})
	require.NoError(t, err)

	n, err := WriteWindow(ul, w, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, 2, tag.PageWrites())

	raw, err := ReadWindow(ul, w)
	require.NoError(t, err)
	require.Len(t, raw, w.Capacity())

	got, err := codec.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"zaparoo"}, got)
}

func TestWriteWindow_NotEnoughSpace(t *testing.T) {
	t.Parallel()

	w := Window{StartPage: 4, PageCount: 1}
	tag := memtag.New([]byte{0x04}, memtag.WithPages(make([]byte, 64)))
	ul, _ := tag.MifareUltralight()
	require.NoError(t, ul.Connect())

	n, err := WriteWindow(ul, w, []byte{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, ErrNotEnoughSpace)
	assert.Equal(t, 4, n)
}

func TestPropertyRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		pages := rapid.IntRange(1, 70).Draw(t, "pages")
		w := Window{StartPage: 4, PageCount: pages}
		codec, err := NewTextCodec(w)
		if err != nil {
			t.Skip("window too small")
		}

		s := rapid.StringOfN(rapid.Rune(), 0, w.MaxLength(), w.MaxLength()).Draw(t, "text")
		if !utf8.ValidString(s) {
			t.Skip("invalid utf8")
		}

		tag := memtag.New([]byte{0x04}, memtag.WithPages(make([]byte, (4+pages+4)*4)))
		ul, _ := tag.MifareUltralight()
		if err := ul.Connect(); err != nil {
			t.Fatalf("connect: %v", err)
		}

		data, err := codec.Prepare([]string{s})
		if err != nil {
			t.Fatalf("prepare %q: %v", s, err)
		}
		if _, err := WriteWindow(ul, w, data); err != nil {
			t.Fatalf("write: %v", err)
		}
		raw, err := ReadWindow(ul, w)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got, err := codec.Parse(raw)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if len(got) != 1 || got[0] != s {
			t.Fatalf("round trip mismatch: %q != %q", got, s)
		}
	})
}
