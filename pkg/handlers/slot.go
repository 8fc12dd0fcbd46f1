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

import "github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"

// Slot holds at most one staged value. Set overwrites, Take consumes.
type Slot[D any] struct {
	data D
	mu   syncutil.Mutex
	set  bool
}

func (s *Slot[D]) Set(data D) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.set = true
}

// Take returns the staged value and empties the slot.
func (s *Slot[D]) Take() (D, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data, s.set
	var zero D
	s.data = zero
	s.set = false
	return data, ok
}

func (s *Slot[D]) Has() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

func (s *Slot[D]) Clear() {
	s.Take()
}
