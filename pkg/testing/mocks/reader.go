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
	"fmt"
	"sync"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/stretchr/testify/mock"
)

// MockReader is a testify mock of readers.Reader. A successful Open keeps
// the callback so tests can present tags with Present.
type MockReader struct {
	mock.Mock
	onTag readers.TagCallback
	mu    sync.Mutex
}

func (m *MockReader) Metadata() readers.DriverMetadata {
	args := m.Called()
	if metadata, ok := args.Get(0).(readers.DriverMetadata); ok {
		return metadata
	}
	return readers.DriverMetadata{}
}

func (m *MockReader) IDs() []string {
	args := m.Called()
	if ids, ok := args.Get(0).([]string); ok {
		return ids
	}
	return []string{}
}

func (m *MockReader) Open(device config.ReadersConnect, onTag readers.TagCallback) error {
	args := m.Called(device, onTag)
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	m.mu.Lock()
	m.onTag = onTag
	m.mu.Unlock()
	return nil
}

func (m *MockReader) Close() error {
	args := m.Called()
	m.mu.Lock()
	m.onTag = nil
	m.mu.Unlock()
	if err := args.Error(0); err != nil {
		return fmt.Errorf("mock operation failed: %w", err)
	}
	return nil
}

func (m *MockReader) Detect(connected []string) string {
	args := m.Called(connected)
	return args.String(0)
}

func (m *MockReader) Device() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockReader) Connected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockReader) Info() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockReader) ReaderID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockReader) Capabilities() []readers.Capability {
	args := m.Called()
	if capabilities, ok := args.Get(0).([]readers.Capability); ok {
		return capabilities
	}
	return []readers.Capability{}
}

// Present delivers tag to the callback given to Open, as the backend's
// polling goroutine would. It reports false if the reader is not open.
func (m *MockReader) Present(tag tags.Tag) bool {
	m.mu.Lock()
	onTag := m.onTag
	m.mu.Unlock()
	if onTag == nil {
		return false
	}
	onTag(tag)
	return true
}

func NewMockReader() *MockReader {
	m := &MockReader{}
	// Close may or may not be called depending on how the test ends
	m.On("Close").Return(nil).Maybe()
	return m
}

// SetupBasicMock stubs the metadata calls for a reader handling driverID.
func (m *MockReader) SetupBasicMock(driverID string) {
	m.On("Metadata").Return(readers.DriverMetadata{
		ID:                driverID,
		DefaultEnabled:    true,
		DefaultAutoDetect: true,
		Description:       "Mock Reader for Testing",
	}).Maybe()
	m.On("IDs").Return([]string{driverID}).Maybe()
	m.On("Connected").Return(true).Maybe()
	m.On("Device").Return(driverID + ":test").Maybe()
	m.On("Info").Return("Mock Reader Test Device").Maybe()
	m.On("ReaderID").Return(driverID + "-test").Maybe()
	m.On("Capabilities").Return([]readers.Capability{readers.CapabilityWrite}).Maybe()
}
