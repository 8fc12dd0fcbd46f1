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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	ch, id := b.Subscribe(4)
	ch2, id2 := b.Subscribe(4)
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, id2)

	b.Publish(Event{Kind: EventStateChanged, State: StateOn})
	ev := <-ch
	assert.Equal(t, StateOn, ev.State)
	ev = <-ch2
	assert.Equal(t, EventStateChanged, ev.Kind)

	b.Unsubscribe(id)
	_, ok := <-ch
	assert.False(t, ok)

	// unknown ids are ignored
	b.Unsubscribe(99)
}

func TestBroker_DropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	ch, _ := b.Subscribe(1)

	b.Publish(Event{Kind: EventStateChanged, State: StateTurningOn})
	b.Publish(Event{Kind: EventStateChanged, State: StateOn})

	ev := <-ch
	assert.Equal(t, StateTurningOn, ev.State)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestBroker_Close(t *testing.T) {
	t.Parallel()

	b := NewBroker()
	ch, _ := b.Subscribe(1)
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := b.Subscribe(1)
	_, ok = <-late
	require.False(t, ok)

	// publishing after close is a no-op
	b.Publish(Event{Kind: EventError})
}
