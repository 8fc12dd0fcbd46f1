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

import "github.com/ZaparooProject/zaparoo-nfc/pkg/tags"

// State is the adapter state reported to listeners.
type State int

const (
	StateUndefined State = iota
	StateOff
	StateTurningOn
	StateOn
	StateTurningOff
	// StateNotAvailable means no reader backend could be found.
	StateNotAvailable
)

var stateNames = map[State]string{
	StateUndefined:    "undefined",
	StateOff:          "off",
	StateTurningOn:    "turning on",
	StateOn:           "on",
	StateTurningOff:   "turning off",
	StateNotAvailable: "not available",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// StateListener receives adapter state changes and admin errors. Calls
// come from whichever goroutine caused them: Start/Stop callers for state
// changes, the dispatch loop or backend goroutines for errors.
type StateListener interface {
	OnStateChanged(state State)
	OnError(err error)
}

// TagListener is optionally implemented by a StateListener that wants to
// hear about accepted discoveries. It is called on the dispatch loop
// before any handler runs, for tags that pass the reader mode filter.
type TagListener interface {
	OnTagDiscovered(uid string, category tags.Category)
}

// StateListenerFuncs adapts plain functions to StateListener and
// TagListener. Nil fields are ignored.
type StateListenerFuncs struct {
	StateChanged  func(state State)
	Error         func(err error)
	TagDiscovered func(uid string, category tags.Category)
}

func (l StateListenerFuncs) OnStateChanged(state State) {
	if l.StateChanged != nil {
		l.StateChanged(state)
	}
}

func (l StateListenerFuncs) OnError(err error) {
	if l.Error != nil {
		l.Error(err)
	}
}

func (l StateListenerFuncs) OnTagDiscovered(uid string, category tags.Category) {
	if l.TagDiscovered != nil {
		l.TagDiscovered(uid, category)
	}
}
