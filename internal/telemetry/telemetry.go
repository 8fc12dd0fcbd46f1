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

// Package telemetry forwards error level log events to a Sentry project
// when the user opts in. Paths and tag identifiers are scrubbed first.
package telemetry

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers"
	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

var ErrNoDSN = errors.New("error reporting enabled without a DSN")

var (
	mu      sync.Mutex
	enabled bool
	writer  *sentryzerolog.Writer

	homePathRe    = regexp.MustCompile(`(?i)/home/[^/]+/`)
	usersPathRe   = regexp.MustCompile(`(?i)/Users/[^/]+/`)
	windowsUserRe = regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`)
)

// redactedFields are log fields that identify a physical card or host.
var redactedFields = []string{"uid", "device", "path"}

// Options configures Init.
type Options struct {
	DSN        string
	AppVersion string
	Enabled    bool
}

// Init starts reporting if opts.Enabled is set. The global logger gains a
// Sentry sink for error, fatal and panic levels.
func Init(opts Options) error {
	if !opts.Enabled {
		log.Debug().Msg("error reporting disabled")
		return nil
	}
	if opts.DSN == "" {
		return ErrNoDSN
	}

	mu.Lock()
	defer mu.Unlock()

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          "zaparoo-nfc@" + opts.AppVersion,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		MaxBreadcrumbs:   0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	writer, err = sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:       []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout: flushTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry log writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(helpers.LogWriter(), writer)).
		With().Timestamp().Caller().Logger()

	enabled = true
	log.Info().Msg("error reporting enabled")
	return nil
}

// Close flushes anything pending. It is a no-op when reporting is off and
// safe to call more than once.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	_ = writer.Close()
	sentry.Flush(flushTimeout)
	enabled = false
}

// Flush waits for pending events, for use before os.Exit.
func Flush() {
	if !Enabled() {
		return
	}
	sentry.Flush(flushTimeout)
}

func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

func scrubEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	event.Message = scrubPath(event.Message)

	for i := range event.Exception {
		st := event.Exception[i].Stacktrace
		if st == nil {
			continue
		}
		for j := range st.Frames {
			st.Frames[j].AbsPath = scrubPath(st.Frames[j].AbsPath)
			st.Frames[j].Filename = scrubPath(st.Frames[j].Filename)
		}
	}

	for _, k := range redactedFields {
		if _, ok := event.Extra[k]; ok {
			event.Extra[k] = "<redacted>"
		}
	}
	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = scrubPath(s)
		}
	}

	return event
}

// scrubPath replaces the user name in home directory paths.
func scrubPath(path string) string {
	if path == "" {
		return path
	}
	path = homePathRe.ReplaceAllString(path, "/home/<user>/")
	path = usersPathRe.ReplaceAllString(path, "/Users/<user>/")
	return windowsUserRe.ReplaceAllString(path, "C:\\Users\\<user>\\")
}
