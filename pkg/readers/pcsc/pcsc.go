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

// Package pcsc is the reader backend for PC/SC contactless readers such as
// the ACR122U. Storage cards (Ultralight, NTAG) get page access through
// the reader's READ BINARY and UPDATE BINARY pseudo APDUs, and NDEF on top
// of that through the Type 2 layer.
package pcsc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ebfe/scard"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DriverID       = "pcsc"
	pollInterval   = 250 * time.Millisecond
	// errLogInterval limits repeated status change errors in the log.
	errLogInterval = 30 * time.Second
)

// Reader name prefixes picked up by auto detection.
var detectPrefixes = []string{"ACS ACR122", "ACS ACR1252", "ACS ACR1552"}

type Reader struct {
	ctx            ScardContext
	cfg            *config.Instance
	onTag          readers.TagCallback
	contextFactory ScardContextFactory
	device         config.ReadersConnect
	name           string
	errLog         rate.Sometimes
	wg             sync.WaitGroup
	mu             syncutil.RWMutex // protects polling
	polling        bool
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:            cfg,
		contextFactory: DefaultScardContextFactory,
		errLog:         rate.Sometimes{First: 1, Interval: errLogInterval},
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:                DriverID,
		DefaultEnabled:    true,
		DefaultAutoDetect: true,
		Description:       "NFC reader via PC/SC",
	}
}

func (*Reader) IDs() []string {
	return []string{DriverID, "acr122pcsc", "acr122_pcsc"}
}

func (r *Reader) Open(device config.ReadersConnect, onTag readers.TagCallback) error {
	if !readers.SupportsDriver(r, device) {
		return errors.New("invalid reader id: " + device.Driver)
	}

	if r.ctx == nil {
		ctx, err := r.contextFactory()
		if err != nil {
			return fmt.Errorf("failed to establish scard context: %w", err)
		}
		r.ctx = ctx
	}

	rls, err := r.ctx.ListReaders()
	if err != nil {
		return fmt.Errorf("failed to list scard readers: %w", err)
	}

	if !slices.Contains(rls, device.Path) {
		return errors.New("reader not found: " + device.Path)
	}

	r.device = device
	r.name = device.Path
	r.onTag = onTag
	r.mu.Lock()
	r.polling = true
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.poll(r.ctx)
	}()

	return nil
}

func (r *Reader) isPolling() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.polling
}

func (r *Reader) stopPolling() {
	r.mu.Lock()
	r.polling = false
	r.mu.Unlock()
}

func (r *Reader) poll(ctx ScardContext) {
	for r.isPolling() {
		rls, err := ctx.ListReaders()
		if err != nil {
			log.Debug().Msgf("error listing pcsc readers: %s", err)
			r.stopPolling()
			return
		}

		if !slices.Contains(rls, r.name) {
			log.Debug().Msgf("reader not found: %s", r.name)
			r.stopPolling()
			return
		}

		rs := []scard.ReaderState{{
			Reader:       r.name,
			CurrentState: scard.StateUnaware,
		}}

		err = ctx.GetStatusChange(rs, pollInterval)
		if err != nil {
			r.errLog.Do(func() {
				log.Debug().Err(err).Msg("error getting status change")
			})
			continue
		}

		if rs[0].EventState&scard.StatePresent == 0 {
			continue
		}

		card, err := ctx.Connect(r.name, scard.ShareShared, scard.ProtocolAny)
		if err != nil {
			log.Debug().Msgf("error connecting to reader: %s", err)
			continue
		}

		r.dispatch(card)

		if err := card.Disconnect(scard.ResetCard); err != nil {
			log.Debug().Err(err).Msg("error disconnecting card")
		}

		r.waitForRemoval(ctx)
	}
}

// dispatch identifies the card in the field and hands it to the callback.
// The card stays connected until the callback returns.
func (r *Reader) dispatch(card ScardCard) {
	status, err := card.Status()
	if err != nil {
		log.Debug().Msgf("error getting status: %s", err)
		return
	}
	log.Debug().Msgf("status: %v", hex.EncodeToString(status.Atr))

	uid, err := readUID(card)
	if err != nil {
		log.Debug().Err(err).Msg("error reading UID")
		r.onTag(nil)
		return
	}

	skipNdef := r.cfg != nil && r.cfg.SkipNdefCheck()
	tag := newTag(card, uid, ParseATR(status.Atr), skipNdef)
	log.Debug().Str("uid", hex.EncodeToString(uid)).Strs("techs", tags.TechStrings(tag.Techs())).Msg("card detected")

	r.onTag(tag)
}

func (r *Reader) waitForRemoval(ctx ScardContext) {
	for r.isPolling() {
		rs := []scard.ReaderState{{
			Reader:       r.name,
			CurrentState: scard.StatePresent,
		}}

		err := ctx.GetStatusChange(rs, pollInterval)
		if err != nil {
			log.Debug().Msgf("error getting status change: %s", err)
			return
		}

		if rs[0].EventState&scard.StatePresent == 0 {
			return
		}
	}
}

func (r *Reader) Close() error {
	r.stopPolling()
	r.wg.Wait()
	if r.ctx != nil {
		err := r.ctx.Release()
		r.ctx = nil
		if err != nil {
			return fmt.Errorf("failed to release scard context: %w", err)
		}
	}
	return nil
}

var detectErrorOnce sync.Once

func (r *Reader) Detect(connected []string) string {
	ctx, err := r.contextFactory()
	if err != nil {
		return ""
	}
	defer func(ctx ScardContext) {
		if releaseErr := ctx.Release(); releaseErr != nil {
			log.Warn().Err(releaseErr).Msg("error releasing pcsc context")
		}
	}(ctx)

	rs, err := ctx.ListReaders()
	if err != nil {
		detectErrorOnce.Do(func() {
			log.Trace().Err(err).Msg("listing pcsc readers")
		})
		return ""
	}

	for _, name := range rs {
		if slices.Contains(connected, DriverID+":"+name) {
			continue
		}
		for _, prefix := range detectPrefixes {
			if strings.HasPrefix(name, prefix) {
				log.Trace().Msgf("pcsc reader found: %s", name)
				return DriverID + ":" + name
			}
		}
	}

	return ""
}

func (r *Reader) Device() string {
	return r.device.ConnectionString()
}

func (r *Reader) Connected() bool {
	return r.isPolling()
}

func (r *Reader) Info() string {
	return r.name
}

func (*Reader) Capabilities() []readers.Capability {
	return []readers.Capability{readers.CapabilityWrite, readers.CapabilityRemovable}
}

func (r *Reader) ReaderID() string {
	return readers.GenerateReaderID(r.Metadata().ID, r.name)
}
