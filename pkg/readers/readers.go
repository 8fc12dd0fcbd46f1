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

// Package readers defines the backend contract. A backend plays the role
// of the operating system NFC stack: it polls hardware (or a broker) for
// tags, builds a tags.Tag for each discovery and hands it to the admin.
package readers

import (
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"slices"
	"strings"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
)

type Capability string

const (
	// CapabilityWrite means tags can be written through this reader.
	CapabilityWrite Capability = "write"
	// CapabilityRemovable means tags are presented and removed by hand.
	CapabilityRemovable Capability = "removable"
)

type DriverMetadata struct {
	ID                string
	Description       string
	DefaultEnabled    bool
	DefaultAutoDetect bool
}

// TagCallback receives each discovered tag. It blocks until every handler
// has finished with the tag, the backend keeps the card selected until it
// returns. A nil tag reports a discovery that produced no usable handle.
type TagCallback func(tag tags.Tag)

type Reader interface {
	// Metadata returns static configuration for this driver.
	Metadata() DriverMetadata
	// IDs returns the device string prefixes supported by this reader.
	IDs() []string
	// Open any necessary connections to the device and start polling.
	// Discovered tags are passed to onTag from the polling goroutine.
	Open(device config.ReadersConnect, onTag TagCallback) error
	// Close any open connections to the device and stop polling.
	Close() error
	// Detect attempts to search for a connected device and returns the device
	// connection string. If no device is found, an empty string is returned.
	// Takes a list of currently connected device strings.
	Detect(connected []string) string
	// Device returns the device connection string.
	Device() string
	// Connected returns true if the device is connected and active.
	Connected() bool
	// Info returns a string with information about the connected device.
	Info() string
	// ReaderID returns a stable identifier for this reader instance.
	ReaderID() string
	Capabilities() []Capability
}

// HasCapability checks if a reader has a specific capability.
func HasCapability(r Reader, capability Capability) bool {
	return slices.Contains(r.Capabilities(), capability)
}

// SupportsDriver reports whether device names one of the reader's IDs.
func SupportsDriver(r Reader, device config.ReadersConnect) bool {
	return slices.Contains(r.IDs(), device.Driver)
}

// GenerateReaderID creates a deterministic reader ID of the form
// "{driver}-{hash}", hash being 8 lowercase base32 characters of the
// SHA-256 of the normalised driver and path.
func GenerateReaderID(driverName, stablePath string) string {
	driver := strings.ToLower(driverName)
	path := strings.ToLower(strings.ReplaceAll(stablePath, "\\", "/"))

	sum := sha256.Sum256([]byte(driver + "\x00" + path))
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:5])

	return fmt.Sprintf("%s-%s", driver, strings.ToLower(encoded))
}
