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

package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/admin"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/handlers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/nfcerrors"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers/libnfc"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers/mqtt"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers/pcsc"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers/pn532"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/ultralight"
	"github.com/rs/zerolog/log"
)

// Options describes one scanning session. At most one of WriteText,
// WriteURI and Clean is set.
type Options struct {
	WriteURI   *url.URL
	WriteText  string
	Clean      bool
	Ultralight bool
	Once       bool
}

func (o Options) writing() bool {
	return o.WriteText != "" || o.WriteURI != nil || o.Clean
}

// SupportedReaders returns one fresh instance of every backend.
func SupportedReaders(cfg *config.Instance) []readers.Reader {
	return []readers.Reader{
		pcsc.NewReader(cfg),
		pn532.NewReader(cfg),
		libnfc.NewReader(cfg),
		mqtt.NewReader(cfg),
	}
}

// printer serializes listener output and signals the end of the session.
type printer struct {
	out  io.Writer
	done chan struct{}
	once sync.Once
	mu   syncutil.Mutex
	// which outcomes end the session
	finishOnRead  bool
	finishOnWrite bool
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *printer) finish() {
	p.once.Do(func() { close(p.done) })
}

func listenerFor[R any](p *printer, label string, format func(R) string) handlers.ListenerFuncs[R] {
	return handlers.ListenerFuncs[R]{
		Read: func(values []R) {
			for _, v := range values {
				p.printf("%s: %s\n", label, format(v))
			}
			if p.finishOnRead {
				p.finish()
			}
		},
		ReadError: func(err error) {
			if nfcerrors.IsPossiblyEmpty(err) {
				p.printf("%s: tag is empty (%s)\n", label, err)
			} else {
				p.printf("%s: read error: %s\n", label, err)
			}
			if p.finishOnRead {
				p.finish()
			}
		},
		Write: func() {
			p.printf("%s: tag written\n", label)
			if p.finishOnWrite {
				p.finish()
			}
		},
		WriteError: func(err error) {
			p.printf("%s: write error: %s\n", label, err)
			if p.finishOnWrite {
				p.finish()
			}
		},
	}
}

func identity(s string) string { return s }

// buildHandlers creates the handlers for the session. The returned stage
// func queues the requested write.
func buildHandlers(cfg *config.Instance, opts Options, p *printer) ([]handlers.Handler, func() error, error) {
	textCodec, err := ndefcodec.NewTextCodec(cfg.NdefLanguage())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ndef language: %w", err)
	}
	text := handlers.NewTextHandler(textCodec, listenerFor(p, "text", identity))
	uri := handlers.NewURIHandler(ndefcodec.NewURICodec(),
		listenerFor(p, "uri", func(u *url.URL) string { return u.String() }))

	if !opts.Ultralight {
		stage := func() error {
			switch {
			case opts.WriteText != "":
				return text.PrepareWrite([]string{opts.WriteText})
			case opts.WriteURI != nil:
				return uri.PrepareWrite([]*url.URL{opts.WriteURI})
			case opts.Clean:
				text.PrepareClean()
			}
			return nil
		}
		return []handlers.Handler{text, uri}, stage, nil
	}

	ulCfg := cfg.Ultralight()
	window, err := ultralight.NewWindow(ulCfg.StartPage, ulCfg.PageCount)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ultralight window: %w", err)
	}
	ulCodec, err := ultralight.NewTextCodec(window)
	if err != nil {
		return nil, nil, err
	}
	ul := handlers.NewUltralightHandler(ulCodec, listenerFor(p, "ultralight", identity))
	stage := func() error {
		switch {
		case opts.WriteText != "":
			return ul.PrepareWrite([]string{opts.WriteText})
		case opts.Clean:
			ul.PrepareClean()
		}
		return nil
	}
	return []handlers.Handler{ul}, stage, nil
}

// Run scans tags until ctx is done. Write sessions end after the first
// write attempt, read sessions after the first read when opts.Once is set.
func Run(ctx context.Context, cfg *config.Instance, source admin.ReaderSource, opts Options, out io.Writer) error {
	p := &printer{
		out:           out,
		done:          make(chan struct{}),
		finishOnRead:  opts.Once && !opts.writing(),
		finishOnWrite: opts.writing(),
	}

	hs, stage, err := buildHandlers(cfg, opts, p)
	if err != nil {
		return err
	}

	adm := admin.New(cfg, source, admin.StateListenerFuncs{
		StateChanged: func(s admin.State) {
			log.Debug().Msgf("adapter state changed: %s", s)
		},
		Error: func(err error) {
			p.printf("adapter: %s\n", err)
		},
	})
	for _, h := range hs {
		adm.Register(h)
	}

	if err := adm.Start(ctx); err != nil {
		_ = adm.Close()
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := adm.Close(); err != nil {
			log.Warn().Err(err).Msg("error stopping adapter")
		}
	}()

	for _, r := range adm.Readers() {
		p.printf("reader: %s (%s)\n", r.Device(), r.Info())
	}

	var stageErr error
	if err := adm.Do(func() { stageErr = stage() }); err != nil {
		return fmt.Errorf("failed to stage write: %w", err)
	}
	if stageErr != nil {
		return stageErr
	}
	if opts.writing() {
		p.printf("waiting for a tag to write...\n")
	} else {
		p.printf("waiting for tags...\n")
	}

	select {
	case <-ctx.Done():
	case <-p.done:
	}
	return nil
}
