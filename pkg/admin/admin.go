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

// Package admin is the adapter the application talks to. It opens reader
// backends, tracks the adapter state and routes every discovered tag to
// the registered handlers on a single dispatch goroutine.
//
// Stop must not be called from a handler or listener running on the
// dispatch loop: closing a backend waits for its polling goroutine, which
// may be waiting for that same loop.
package admin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/handlers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrNotStarted = errors.New("admin is not started")

// ReaderSource returns fresh, unopened backend instances, one per
// supported driver. It is called once per reader to open.
type ReaderSource func(cfg *config.Instance) []readers.Reader

type Admin struct {
	ctx      context.Context
	cfg      *config.Instance
	source   ReaderSource
	listener StateListener
	broker   *Broker
	looper   *Looper
	cancel   context.CancelFunc
	handlers []handlers.Handler
	readers  []readers.Reader
	mu       syncutil.RWMutex
	state    State
	disabled atomic.Bool
}

// New creates a stopped admin. listener may be nil.
func New(cfg *config.Instance, source ReaderSource, listener StateListener) *Admin {
	if listener == nil {
		listener = StateListenerFuncs{}
	}
	return &Admin{
		cfg:      cfg,
		source:   source,
		listener: listener,
		broker:   NewBroker(),
	}
}

func (a *Admin) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Admin) setState(s State) {
	a.mu.Lock()
	changed := a.state != s
	a.state = s
	a.mu.Unlock()
	if !changed {
		return
	}
	log.Info().Msgf("adapter state: %s", s)
	a.listener.OnStateChanged(s)
	a.broker.Publish(Event{Kind: EventStateChanged, State: s})
}

func (a *Admin) reportError(err error) {
	log.Warn().Err(err).Msg("adapter error")
	a.listener.OnError(err)
	a.broker.Publish(Event{Kind: EventError, Err: err})
}

// Enabled reports whether discoveries are dispatched.
func (a *Admin) Enabled() bool {
	return !a.disabled.Load()
}

// SetEnabled mirrors the system NFC switch. While disabled, discoveries
// are dropped and reported as ADAPTER_DISABLED.
func (a *Admin) SetEnabled(enabled bool) {
	a.disabled.Store(!enabled)
	log.Info().Bool("enabled", enabled).Msg("adapter enabled changed")
}

// Register adds a handler. Handlers are invoked in registration order.
func (a *Admin) Register(h handlers.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if slices.ContainsFunc(a.handlers, func(x handlers.Handler) bool { return x.ID() == h.ID() }) {
		return
	}
	a.handlers = append(a.handlers, h)
	log.Debug().Str("handler", h.ID()).Msg("registered handler")
}

// Unregister removes the handler with the given ID.
func (a *Admin) Unregister(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = slices.DeleteFunc(a.handlers, func(h handlers.Handler) bool {
		return h.ID() == id
	})
}

func (a *Admin) Handlers() []handlers.Handler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.handlers)
}

// Readers returns the backends opened by Start.
func (a *Admin) Readers() []readers.Reader {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.readers)
}

func (a *Admin) Subscribe(bufferSize int) (events <-chan Event, id int) {
	return a.broker.Subscribe(bufferSize)
}

func (a *Admin) Unsubscribe(id int) {
	a.broker.Unsubscribe(id)
}

func (a *Admin) currentLooper() *Looper {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.looper
}

// Post runs fn on the dispatch loop without waiting, so it is ordered
// with discoveries. Staging a write this way guarantees the next tag
// sees it.
func (a *Admin) Post(fn func()) error {
	l := a.currentLooper()
	if l == nil {
		return ErrNotStarted
	}
	return l.Post(fn)
}

// Do runs fn on the dispatch loop and waits for it.
func (a *Admin) Do(fn func()) error {
	l := a.currentLooper()
	if l == nil {
		return ErrNotStarted
	}
	return l.Run(fn)
}

// Start enables reader mode: it opens every configured reader and, when
// auto detection is on, every detected one. The context bounds the
// lifetime of handler work, not the call itself.
func (a *Admin) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.looper != nil {
		a.mu.Unlock()
		return nil
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.looper = NewLooper()
	a.mu.Unlock()

	a.setState(StateTurningOn)

	opened, candidates, err := a.connectReaders()
	switch {
	case candidates == 0:
		a.shutdown(nil)
		a.setState(StateNotAvailable)
		adminErr := nfcerrors.NewAdmin(nfcerrors.AdminAdapterUnavailable, "start", nil)
		a.reportError(adminErr)
		return adminErr
	case len(opened) == 0:
		a.shutdown(nil)
		a.setState(StateOff)
		adminErr := nfcerrors.NewAdmin(nfcerrors.AdminReaderModeEnable, "start", err)
		a.reportError(adminErr)
		return adminErr
	case err != nil:
		log.Warn().Err(err).Msg("some readers failed to open")
	}

	a.mu.Lock()
	a.readers = opened
	a.mu.Unlock()

	a.setState(StateOn)
	return nil
}

// Stop disables reader mode. Every reader is closed, concurrently, before
// the dispatch loop is stopped.
func (a *Admin) Stop() error {
	a.mu.Lock()
	if a.looper == nil {
		a.mu.Unlock()
		return nil
	}
	rs := a.readers
	a.readers = nil
	a.mu.Unlock()

	a.setState(StateTurningOff)

	err := a.shutdown(rs)
	a.setState(StateOff)
	if err != nil {
		adminErr := nfcerrors.NewAdmin(nfcerrors.AdminReaderModeDisable, "stop", err)
		a.reportError(adminErr)
		return adminErr
	}
	return nil
}

// Close stops the admin and closes every subscription.
func (a *Admin) Close() error {
	err := a.Stop()
	a.broker.Close()
	return err
}

func (a *Admin) shutdown(rs []readers.Reader) error {
	a.mu.RLock()
	cancel := a.cancel
	a.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	var eg errgroup.Group
	for _, r := range rs {
		eg.Go(func() error {
			if err := r.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", r.Device(), err)
			}
			return nil
		})
	}
	err := eg.Wait()

	a.mu.Lock()
	l := a.looper
	a.looper = nil
	a.cancel = nil
	a.mu.Unlock()
	if l != nil {
		l.Stop()
	}
	return err
}

// onTag is the callback given to every backend. It runs on the backend's
// polling goroutine and blocks until dispatch has finished.
func (a *Admin) onTag(tag tags.Tag) {
	if !a.Enabled() {
		log.Debug().Str("uid", tags.UID(tag)).Msg("adapter disabled, dropping discovery")
		a.reportError(nfcerrors.NewAdmin(nfcerrors.AdminAdapterDisabled, "discover", nil))
		return
	}

	a.mu.RLock()
	l := a.looper
	ctx := a.ctx
	a.mu.RUnlock()
	if l == nil {
		return
	}

	if err := l.Run(func() { a.dispatch(ctx, tag) }); err != nil {
		log.Debug().Err(err).Msg("discovery not dispatched")
	}
}

// dispatch runs on the looper.
func (a *Admin) dispatch(ctx context.Context, tag tags.Tag) {
	if tag == nil {
		a.reportError(nfcerrors.NewAdmin(nfcerrors.AdminTagNotFound, "discover", nil))
		return
	}

	techs := tag.Techs()
	uid := tags.UID(tag)

	if filter := a.cfg.ReaderModeTechs(); len(filter) > 0 && !tags.Intersects(filter, techs) {
		log.Debug().Str("uid", uid).Strs("techs", tags.TechStrings(techs)).
			Msg("tag filtered out by reader mode")
		return
	}

	category := tags.Classify(techs)
	log.Info().Str("uid", uid).Str("category", category.String()).
		Strs("techs", tags.TechStrings(techs)).Msg("tag discovered")
	a.broker.Publish(Event{
		Kind:     EventTagDiscovered,
		UID:      uid,
		Techs:    techs,
		Category: category,
	})
	if tl, ok := a.listener.(TagListener); ok {
		tl.OnTagDiscovered(uid, category)
	}

	for _, h := range a.Handlers() {
		if !h.Enabled() || !tags.Intersects(h.SupportedTechs(), techs) {
			continue
		}
		runHandler(ctx, h, tag)
	}
}

func runHandler(ctx context.Context, h handlers.Handler, tag tags.Tag) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("handler", h.ID()).Msg("recovered from panic in handler")
		}
	}()
	h.Handle(ctx, tag)
}
