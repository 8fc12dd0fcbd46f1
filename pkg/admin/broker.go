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
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/rs/zerolog/log"
)

type EventKind int

const (
	EventStateChanged EventKind = iota + 1
	EventTagDiscovered
	EventError
)

// Event is a notification fanned out to subscribers.
type Event struct {
	Err      error
	UID      string
	Techs    []tags.Tech
	Kind     EventKind
	State    State
	Category tags.Category
}

// Broker fans events out to subscribers without ever blocking the
// publisher. Slow subscribers lose events.
type Broker struct {
	subscribers map[int]chan Event
	mu          syncutil.RWMutex
	nextID      int
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int]chan Event),
	}
}

func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Int("kind", int(ev.Kind)).
				Msg("subscriber channel full, dropping event")
		}
	}
}

// Subscribe registers a subscriber. The channel is closed on Unsubscribe
// or when the broker is closed; subscribing to a closed broker returns an
// already closed channel.
func (b *Broker) Subscribe(bufferSize int) (events <-chan Event, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan Event, bufferSize)
	if b.closed {
		close(ch)
		return ch, id
	}
	b.subscribers[id] = ch

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Msg("new subscriber registered")

	return ch, id
}

func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Close closes every subscriber channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]chan Event)
	b.closed = true
}
