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

package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockListener is a testify mock of handlers.Listener.
type MockListener[R any] struct {
	mock.Mock
}

func (m *MockListener[R]) OnRead(values []R) {
	m.Called(values)
}

func (m *MockListener[R]) OnReadError(err error) {
	m.Called(err)
}

func (m *MockListener[R]) OnWrite() {
	m.Called()
}

func (m *MockListener[R]) OnWriteError(err error) {
	m.Called(err)
}

