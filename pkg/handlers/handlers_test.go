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

package handlers

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags/memtag"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/testing/mocks"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/ultralight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recorder captures listener callbacks in order.
type recorder[R any] struct {
	reads     [][]R
	readErrs  []error
	writeErrs []error
	writes    int
	mu        sync.Mutex
}

func (r *recorder[R]) listener() ListenerFuncs[R] {
	return ListenerFuncs[R]{
		Read: func(values []R) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reads = append(r.reads, values)
		},
		ReadError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.readErrs = append(r.readErrs, err)
		},
		Write: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.writes++
		},
		WriteError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.writeErrs = append(r.writeErrs, err)
		},
	}
}

func textHandler(t *testing.T, rec *recorder[string]) *NdefHandler[string] {
	t.Helper()
	return NewTextHandler(newTextCodec(t), rec.listener())
}

func newTextCodec(t *testing.T) *ndefcodec.TextCodec {
	t.Helper()
	codec, err := ndefcodec.NewTextCodec("en")
	require.NoError(t, err)
	return codec
}

func TestSlot(t *testing.T) {
	t.Parallel()

	var s Slot[[]byte]
	assert.False(t, s.Has())
	_, ok := s.Take()
	assert.False(t, ok)

	s.Set([]byte{1})
	s.Set([]byte{2})
	assert.True(t, s.Has())
	got, ok := s.Take()
	require.True(t, ok)
	assert.Equal(t, []byte{2}, got)
	assert.False(t, s.Has())

	s.Set([]byte{3})
	s.Clear()
	assert.False(t, s.Has())
}

func TestNdefRead_States(t *testing.T) {
	t.Parallel()

	codec := newTextCodec(t)
	hello, err := codec.Prepare([]string{"hello"})
	require.NoError(t, err)

	tests := []struct {
		wantErr error
		tag     *memtag.Tag
		name    string
		want    []string
	}{
		{
			name:    "not compliant",
			tag:     memtag.New([]byte{1}, memtag.WithTechs(tags.TechNfcA, tags.TechNdef)),
			wantErr: nfcerrors.ErrReadNotCompliant,
		},
		{
			name:    "not formatted",
			tag:     memtag.New([]byte{1}, memtag.WithFormatable()),
			wantErr: nfcerrors.ErrNotNdefFormatted,
		},
		{
			name:    "null message",
			tag:     memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100)),
			wantErr: nfcerrors.ErrNdefNull,
		},
		{
			name:    "empty message",
			tag:     memtag.New([]byte{1}, memtag.WithNdef(ndefcodec.NewEmptyMessage(), true, 100)),
			wantErr: nfcerrors.ErrNdefEmpty,
		},
		{
			name: "text",
			tag:  memtag.New([]byte{1}, memtag.WithNdef(hello, true, 100)),
			want: []string{"hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &recorder[string]{}
			h := textHandler(t, rec)
			h.Handle(context.Background(), tt.tag)

			if tt.wantErr != nil {
				require.Len(t, rec.readErrs, 1)
				require.ErrorIs(t, rec.readErrs[0], tt.wantErr)
				assert.Empty(t, rec.reads)
			} else {
				require.Empty(t, rec.readErrs)
				require.Len(t, rec.reads, 1)
				assert.Equal(t, tt.want, rec.reads[0])
			}
			assert.False(t, tt.tag.AnyConnected())
		})
	}
}

func TestNdefRead_IOErrors(t *testing.T) {
	t.Parallel()

	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100),
		memtag.WithFaults(memtag.Faults{Read: tags.ErrTagLost}))
	rec := &recorder[string]{}
	textHandler(t, rec).Handle(context.Background(), tag)

	require.Len(t, rec.readErrs, 1)
	require.ErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadIO)
	require.ErrorIs(t, rec.readErrs[0], tags.ErrTagLost)
	assert.False(t, tag.AnyConnected())

	other := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100),
		memtag.WithFaults(memtag.Faults{Connect: errors.New("weird")}))
	rec = &recorder[string]{}
	textHandler(t, rec).Handle(context.Background(), other)
	require.Len(t, rec.readErrs, 1)
	require.ErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadFailed)
}

func TestNdefRead_CloseErrorReportedAfterResult(t *testing.T) {
	t.Parallel()

	codec := newTextCodec(t)
	msg, err := codec.Prepare([]string{"kept"})
	require.NoError(t, err)

	tag := memtag.New([]byte{1}, memtag.WithNdef(msg, true, 100),
		memtag.WithFaults(memtag.Faults{Close: errors.New("close failed")}))

	var order []string
	h := NewTextHandler(codec, ListenerFuncs[string]{
		Read:      func([]string) { order = append(order, "read") },
		ReadError: func(err error) { order = append(order, err.Error()) },
	})
	h.Handle(context.Background(), tag)

	require.Len(t, order, 2)
	assert.Equal(t, "read", order[0])
	assert.Contains(t, order[1], nfcerrors.ReadClose.String())
}

func TestNdefRead_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100),
		memtag.WithFaults(memtag.Faults{Panic: "driver exploded"}))
	rec := &recorder[string]{}
	textHandler(t, rec).Handle(context.Background(), tag)

	require.Len(t, rec.readErrs, 1)
	require.ErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadFailed)
	assert.False(t, tag.AnyConnected())
}

func TestNdefWrite(t *testing.T) {
	t.Parallel()

	codec := newTextCodec(t)
	rec := &recorder[string]{}
	h := NewTextHandler(codec, rec.listener())
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100))

	require.NoError(t, h.PrepareWrite([]string{"written"}))
	assert.True(t, h.HasPreparedData())
	h.Handle(context.Background(), tag)

	assert.Equal(t, 1, rec.writes)
	assert.Empty(t, rec.writeErrs)
	assert.False(t, h.HasPreparedData())
	assert.Equal(t, 1, tag.Writes())

	got, err := codec.Parse(tag.Message())
	require.NoError(t, err)
	assert.Equal(t, []string{"written"}, got)

	// with nothing staged the next discovery reads
	h.Handle(context.Background(), tag)
	require.Len(t, rec.reads, 1)
	assert.Equal(t, []string{"written"}, rec.reads[0])
}

func TestNdefWrite_CloseErrorReportedAfterResult(t *testing.T) {
	t.Parallel()

	codec := newTextCodec(t)
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100),
		memtag.WithFaults(memtag.Faults{Close: errors.New("close failed")}))

	var order []string
	var closeErr error
	h := NewTextHandler(codec, ListenerFuncs[string]{
		Write: func() { order = append(order, "write") },
		WriteError: func(err error) {
			order = append(order, "error")
			closeErr = err
		},
	})

	require.NoError(t, h.PrepareWrite([]string{"kept"}))
	h.Handle(context.Background(), tag)

	assert.Equal(t, []string{"write", "error"}, order)
	require.ErrorIs(t, closeErr, nfcerrors.ErrWriteClose)
	assert.False(t, h.HasPreparedData())
	assert.Equal(t, 1, tag.Writes())
}

func TestNdefWrite_ReadOnly(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := textHandler(t, rec)
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, false, 100))

	require.NoError(t, h.PrepareWrite([]string{"nope"}))
	h.Handle(context.Background(), tag)

	require.Len(t, rec.writeErrs, 1)
	require.ErrorIs(t, rec.writeErrs[0], nfcerrors.ErrTagNotWritable)
	assert.Equal(t, 0, rec.writes)
	assert.Equal(t, 0, tag.Writes())
	assert.False(t, h.HasPreparedData())
	assert.False(t, tag.AnyConnected())
}

func TestNdefWrite_NotEnoughSpace(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := textHandler(t, rec)
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 8))

	require.NoError(t, h.PrepareWrite([]string{strings.Repeat("x", 32)}))
	h.Handle(context.Background(), tag)

	require.Len(t, rec.writeErrs, 1)
	require.ErrorIs(t, rec.writeErrs[0], nfcerrors.ErrNotEnoughSpace)
	assert.Equal(t, 0, tag.Writes())
	assert.False(t, h.HasPreparedData())
}

func TestNdefWrite_Formats(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := textHandler(t, rec)
	tag := memtag.New([]byte{1}, memtag.WithFormatable())

	h.PrepareClean()
	h.Handle(context.Background(), tag)

	assert.Equal(t, 1, rec.writes)
	assert.Equal(t, 1, tag.Formats())
	assert.True(t, ndefcodec.IsEmptyMessage(tag.Message()))
}

func TestNdefWrite_NotCompliant(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := textHandler(t, rec)
	tag := memtag.New([]byte{1}, memtag.WithTechs(tags.TechNfcA))

	require.NoError(t, h.PrepareWrite([]string{"x"}))
	h.Handle(context.Background(), tag)

	require.Len(t, rec.writeErrs, 1)
	require.ErrorIs(t, rec.writeErrs[0], nfcerrors.ErrWriteNotCompliant)
	assert.False(t, h.HasPreparedData())
}

func TestNdefWrite_IOErrorClearsSlot(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := textHandler(t, rec)
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100),
		memtag.WithFaults(memtag.Faults{Write: tags.ErrTagLost}))

	require.NoError(t, h.PrepareWrite([]string{"x"}))
	h.Handle(context.Background(), tag)

	require.Len(t, rec.writeErrs, 1)
	require.ErrorIs(t, rec.writeErrs[0], nfcerrors.ErrWriteIO)
	assert.False(t, h.HasPreparedData())
	assert.False(t, tag.AnyConnected())
}

func TestWrite_NoData(t *testing.T) {
	t.Parallel()

	h := textHandler(t, &recorder[string]{})
	err := h.Write(context.Background(), memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100)))
	require.ErrorIs(t, err, nfcerrors.ErrNoDataToWrite)
}

func TestRead_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := textHandler(t, &recorder[string]{})
	_, err := h.Read(ctx, memtag.New([]byte{1}))
	require.ErrorIs(t, err, context.Canceled)
}

func TestURIHandler_WithMockListener(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("https://zaparoo.org/docs")
	require.NoError(t, err)

	listener := &mocks.MockListener[*url.URL]{}
	listener.On("OnWrite").Return().Once()
	listener.On("OnRead", mock.MatchedBy(func(values []*url.URL) bool {
		return len(values) == 1 && values[0].String() == u.String()
	})).Return().Once()

	h := NewURIHandler(ndefcodec.NewURICodec(), listener)
	tag := memtag.New([]byte{1}, memtag.WithNdef(nil, true, 100))

	require.NoError(t, h.PrepareWrite([]*url.URL{u}))
	h.Handle(context.Background(), tag)
	h.Handle(context.Background(), tag)

	listener.AssertExpectations(t)
}

func TestHandlerIdentity(t *testing.T) {
	t.Parallel()

	a := textHandler(t, &recorder[string]{})
	b := textHandler(t, &recorder[string]{})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, NdefTechs, a.SupportedTechs())

	assert.True(t, a.Enabled())
	a.SetEnabled(false)
	assert.False(t, a.Enabled())
}

func ultralightHandler(t *testing.T, rec *recorder[string], pages int) *UltralightHandler {
	t.Helper()
	codec, err := ultralight.NewTextCodec(ultralight.Window{StartPage: 4, PageCount: pages})
	require.NoError(t, err)
	return NewUltralightHandler(codec, rec.listener())
}

func TestUltralightHandler_RoundTrip(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := ultralightHandler(t, rec, 8)
	tag := memtag.New([]byte{4}, memtag.WithPages(make([]byte, 64)))

	require.NoError(t, h.PrepareWrite([]string{"game:snes/mario"}))
	h.Handle(context.Background(), tag)
	require.Equal(t, 1, rec.writes)
	assert.False(t, h.HasPreparedData())

	h.Handle(context.Background(), tag)
	require.Len(t, rec.reads, 1)
	assert.Equal(t, []string{"game:snes/mario"}, rec.reads[0])
	assert.False(t, tag.AnyConnected())
}

func TestUltralightHandler_Clean(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := ultralightHandler(t, rec, 4)
	pages := make([]byte, 64)
	copy(pages[16:], []byte{0x03, 'a', 'b', 'c'})
	tag := memtag.New([]byte{4}, memtag.WithPages(pages))

	h.PrepareClean()
	h.Handle(context.Background(), tag)
	h.Handle(context.Background(), tag)

	require.Len(t, rec.reads, 1)
	assert.Equal(t, []string{""}, rec.reads[0])
}

func TestUltralightHandler_PrepareTooLong(t *testing.T) {
	t.Parallel()

	h := ultralightHandler(t, &recorder[string]{}, 2)
	err := h.PrepareWrite([]string{strings.Repeat("x", 8)})
	require.ErrorIs(t, err, ultralight.ErrLengthExceeded)
	assert.False(t, h.HasPreparedData())
}

func TestUltralightHandler_ReadIOError(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := ultralightHandler(t, rec, 4)
	tag := memtag.New([]byte{4}, memtag.WithPages(make([]byte, 64)),
		memtag.WithFaults(memtag.Faults{Read: tags.ErrTagLost}))

	h.Handle(context.Background(), tag)
	require.Len(t, rec.readErrs, 1)
	require.ErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadIO)
}

func TestUltralightHandler_NoUltralightAccess(t *testing.T) {
	t.Parallel()

	rec := &recorder[string]{}
	h := ultralightHandler(t, rec, 4)
	tag := memtag.New([]byte{4}, memtag.WithNdef(nil, true, 100))

	h.Handle(context.Background(), tag)
	require.Len(t, rec.readErrs, 1)
	require.ErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadFailed)
	require.ErrorIs(t, rec.readErrs[0], ErrNoUltralight)
	assert.NotErrorIs(t, rec.readErrs[0], nfcerrors.ErrReadNotCompliant)

	require.NoError(t, h.PrepareWrite([]string{"x"}))
	h.Handle(context.Background(), tag)
	require.Len(t, rec.writeErrs, 1)
	require.ErrorIs(t, rec.writeErrs[0], nfcerrors.ErrWriteFailed)
	require.ErrorIs(t, rec.writeErrs[0], ErrNoUltralight)
	assert.Equal(t, 0, tag.Writes())
}
