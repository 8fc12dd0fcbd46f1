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

// Package handlers turns a discovered tag into parsed values or a
// completed write. A handler owns a codec, a single prepared-data slot,
// the technologies it accepts and a listener that receives every outcome.
//
// Handlers never return raw tag errors to listeners: every failure is
// translated into the nfcerrors taxonomies at the handler boundary,
// including panics raised by technology objects.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler is the type-erased view the admin dispatches to.
type Handler interface {
	ID() string
	SupportedTechs() []tags.Tech
	Enabled() bool
	SetEnabled(enabled bool)
	HasPreparedData() bool
	// Handle writes staged data if any, otherwise reads, and reports the
	// outcome to the listener.
	Handle(ctx context.Context, tag tags.Tag)
}

// tagIO performs the technology specific part of a read or write. Any
// connection it opens goes through the session so it is always closed.
type tagIO[D any] interface {
	read(s *session, tag tags.Tag) (D, error)
	write(s *session, tag tags.Tag, data D) error
}

// TagHandler is the generic handler shared by the NDEF and Ultralight
// variants. D is the raw tag representation and R the application value.
type TagHandler[D, R any] struct {
	codec    ndefcodec.Codec[D, R]
	io       tagIO[D]
	listener Listener[R]
	id       string
	name     string
	techs    []tags.Tech
	slot     Slot[D]
	disabled atomic.Bool
}

var _ Handler = (*TagHandler[[]byte, string])(nil)

func newTagHandler[D, R any](
	name string,
	techs []tags.Tech,
	codec ndefcodec.Codec[D, R],
	io tagIO[D],
	listener Listener[R],
) *TagHandler[D, R] {
	if listener == nil {
		listener = nopListener[R]{}
	}
	return &TagHandler[D, R]{
		id:       uuid.New().String(),
		name:     name,
		techs:    slices.Clone(techs),
		codec:    codec,
		io:       io,
		listener: listener,
	}
}

func (h *TagHandler[D, R]) ID() string {
	return h.id
}

func (h *TagHandler[D, R]) String() string {
	return fmt.Sprintf("%s handler %s", h.name, h.id)
}

func (h *TagHandler[D, R]) SupportedTechs() []tags.Tech {
	return slices.Clone(h.techs)
}

func (h *TagHandler[D, R]) Enabled() bool {
	return !h.disabled.Load()
}

func (h *TagHandler[D, R]) SetEnabled(enabled bool) {
	h.disabled.Store(!enabled)
}

func (h *TagHandler[D, R]) HasPreparedData() bool {
	return h.slot.Has()
}

// PrepareWrite encodes values and stages them for the next tag. Any
// previously staged data is replaced.
func (h *TagHandler[D, R]) PrepareWrite(values []R) error {
	data, err := h.codec.Prepare(values)
	if err != nil {
		return fmt.Errorf("failed to prepare write: %w", err)
	}
	h.slot.Set(data)
	return nil
}

// PrepareClean stages the codec's cleaning data.
func (h *TagHandler[D, R]) PrepareClean() {
	h.slot.Set(h.codec.CleaningData())
}

// ClearPrepared drops any staged data.
func (h *TagHandler[D, R]) ClearPrepared() {
	h.slot.Clear()
}

func (h *TagHandler[D, R]) Handle(ctx context.Context, tag tags.Tag) {
	if err := ctx.Err(); err != nil {
		log.Debug().Err(err).Str("handler", h.id).Msg("skipping handler, context done")
		return
	}

	if h.HasPreparedData() {
		err, closeErr := h.write(tag)
		if err != nil {
			log.Warn().Err(err).Str("handler", h.id).Str("uid", tags.UID(tag)).Msg("tag write failed")
			h.listener.OnWriteError(err)
		} else {
			log.Info().Str("handler", h.id).Str("uid", tags.UID(tag)).Msg("wrote tag")
			h.listener.OnWrite()
		}
		if closeErr != nil {
			h.listener.OnWriteError(closeErr)
		}
		return
	}

	values, err, closeErr := h.read(tag)
	if err != nil {
		if nfcerrors.IsPossiblyEmpty(err) {
			log.Debug().Err(err).Str("handler", h.id).Msg("tag is possibly empty")
		} else {
			log.Warn().Err(err).Str("handler", h.id).Str("uid", tags.UID(tag)).Msg("tag read failed")
		}
		h.listener.OnReadError(err)
	} else {
		log.Debug().Str("handler", h.id).Int("values", len(values)).Msg("read tag")
		h.listener.OnRead(values)
	}
	if closeErr != nil {
		h.listener.OnReadError(closeErr)
	}
}

// Read reads and parses the tag without notifying the listener. A close
// failure after a successful read is returned alongside the values.
func (h *TagHandler[D, R]) Read(ctx context.Context, tag tags.Tag) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values, err, closeErr := h.read(tag)
	return values, errors.Join(err, closeErr)
}

// Write writes the staged data without notifying the listener. The slot
// is empty afterwards whatever the outcome.
func (h *TagHandler[D, R]) Write(ctx context.Context, tag tags.Tag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err, closeErr := h.write(tag)
	return errors.Join(err, closeErr)
}

//nolint:revive,staticcheck // the close error is deliberately separate
func (h *TagHandler[D, R]) read(tag tags.Tag) (values []R, err, closeErr error) {
	s := &session{}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("handler", h.id).Msg("recovered from panic during tag read")
			values = nil
			err = nfcerrors.NewRead(nfcerrors.ReadFailed, "read", fmt.Errorf("panic: %v", r))
		}
	}()
	defer func() {
		if cerr := s.close(); cerr != nil {
			closeErr = nfcerrors.NewRead(nfcerrors.ReadClose, "close", cerr)
		}
	}()

	data, err := h.io.read(s, tag)
	if err != nil {
		return nil, err, nil
	}

	values, err = h.codec.Parse(data)
	if err != nil {
		return nil, nfcerrors.NewRead(nfcerrors.ReadFailed, "parse", err), nil
	}
	return values, nil, nil
}

//nolint:revive,staticcheck // the close error is deliberately separate
func (h *TagHandler[D, R]) write(tag tags.Tag) (err, closeErr error) {
	data, ok := h.slot.Take()
	if !ok {
		return nfcerrors.NewWrite(nfcerrors.WriteNoDataToWrite, "write", nil), nil
	}

	s := &session{}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("handler", h.id).Msg("recovered from panic during tag write")
			err = nfcerrors.NewWrite(nfcerrors.WriteFailed, "write", fmt.Errorf("panic: %v", r))
		}
	}()
	defer func() {
		if cerr := s.close(); cerr != nil {
			closeErr = nfcerrors.NewWrite(nfcerrors.WriteClose, "close", cerr)
		}
	}()

	return h.io.write(s, tag, data), nil
}

// session tracks the technology connection opened during one attempt.
type session struct {
	conn tags.Connection
}

func (s *session) connect(c tags.Connection) error {
	if err := c.Connect(); err != nil {
		return err
	}
	s.conn = c
	return nil
}

func (s *session) close() error {
	if s.conn == nil {
		return nil
	}
	c := s.conn
	s.conn = nil
	return c.Close()
}

func readFailure(op string, err error) error {
	if tags.IsIOError(err) {
		return nfcerrors.NewRead(nfcerrors.ReadIO, op, err)
	}
	return nfcerrors.NewRead(nfcerrors.ReadFailed, op, err)
}

func writeFailure(op string, err error) error {
	if tags.IsIOError(err) {
		return nfcerrors.NewWrite(nfcerrors.WriteIO, op, err)
	}
	return nfcerrors.NewWrite(nfcerrors.WriteFailed, op, err)
}
