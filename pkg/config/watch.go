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

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

var ErrWatchUnsupported = errors.New("config watching needs the OS filesystem")

// Watcher reloads an Instance when its file changes on disk.
type Watcher struct {
	fsw      *fsnotify.Watcher
	cfg      *Instance
	onReload func(error)
	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Watch starts reloading the config whenever its file is written or
// replaced. onReload, if set, receives the result of each reload. A
// failed reload keeps the previous values.
func (c *Instance) Watch(onReload func(error)) (*Watcher, error) {
	if _, ok := c.filesystem().(*afero.OsFs); !ok {
		return nil, ErrWatchUnsupported
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, editors often save by rename.
	path := c.Path()
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fsw:      fsw,
		cfg:      c,
		onReload: onReload,
		stop:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop(filepath.Clean(path))

	log.Debug().Str("path", path).Msg("watching config file")
	return w, nil
}

// Close stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stop)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	if err != nil {
		return fmt.Errorf("failed to close config watcher: %w", err)
	}
	return nil
}

func (w *Watcher) loop(path string) {
	defer w.wg.Done()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	err := w.cfg.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to reload config, keeping previous values")
	} else {
		log.Info().Msg("config reloaded")
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
