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

package admin

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var ErrLooperStopped = errors.New("looper is stopped")

const looperQueueSize = 32

// Looper runs posted functions one at a time, in order, on a single
// goroutine. It is the only goroutine that touches handlers during
// dispatch.
type Looper struct {
	tasks    chan func()
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewLooper starts the loop goroutine.
func NewLooper() *Looper {
	l := &Looper{
		tasks: make(chan func(), looperQueueSize),
		done:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.loop()
	return l
}

func (l *Looper) loop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (*Looper) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Msg("recovered from panic in looper task")
		}
	}()
	fn()
}

// Post queues fn without waiting for it to run. It blocks while the
// queue is full.
func (l *Looper) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrLooperStopped
	default:
	}
	select {
	case l.tasks <- fn:
		return nil
	case <-l.done:
		return ErrLooperStopped
	}
}

// Run queues fn and waits until it has finished. It must not be called
// from a function already running on the looper.
func (l *Looper) Run(fn func()) error {
	finished := make(chan struct{})
	err := l.Post(func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// the task may be running, the tag must stay valid until it ends
		l.wg.Wait()
		select {
		case <-finished:
			return nil
		default:
			return ErrLooperStopped
		}
	}
}

// Stop ends the loop after the task in progress and waits for the
// goroutine to exit. Queued tasks are dropped.
func (l *Looper) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
