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

package handlers

// Listener receives the outcome of every read or write a handler performs.
// Callbacks run on the admin's dispatch goroutine.
type Listener[R any] interface {
	OnRead(values []R)
	OnReadError(err error)
	OnWrite()
	OnWriteError(err error)
}

// ListenerFuncs adapts plain functions to a Listener. Nil fields are
// ignored.
type ListenerFuncs[R any] struct {
	Read       func(values []R)
	ReadError  func(err error)
	Write      func()
	WriteError func(err error)
}

func (l ListenerFuncs[R]) OnRead(values []R) {
	if l.Read != nil {
		l.Read(values)
	}
}

func (l ListenerFuncs[R]) OnReadError(err error) {
	if l.ReadError != nil {
		l.ReadError(err)
	}
}

func (l ListenerFuncs[R]) OnWrite() {
	if l.Write != nil {
		l.Write()
	}
}

func (l ListenerFuncs[R]) OnWriteError(err error) {
	if l.WriteError != nil {
		l.WriteError(err)
	}
}

type nopListener[R any] struct{}

func (nopListener[R]) OnRead([]R)        {}
func (nopListener[R]) OnReadError(error)  {}
func (nopListener[R]) OnWrite()           {}
func (nopListener[R]) OnWriteError(error) {}
