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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/detection"
	"github.com/ZaparooProject/go-pn532/transport/i2c"
	"github.com/ZaparooProject/go-pn532/transport/spi"
	"github.com/ZaparooProject/go-pn532/transport/uart"
)

// ErrNoBlockAccess is returned when a detected tag does not support
// block level reads and writes.
var ErrNoBlockAccess = errors.New("tag has no block access")

// BlockIO is block level access to a selected tag. For NTAG a block is
// one 4 byte page.
type BlockIO interface {
	ReadBlock(ctx context.Context, block uint8) ([]byte, error)
	WriteBlock(ctx context.Context, block uint8, data []byte) error
}

// Device abstracts the PN532 chip for testing.
type Device interface {
	// Init runs the startup handshake, giving up when ctx ends.
	Init(ctx context.Context) error
	SetTimeout(timeout time.Duration) error
	Close() error
	// WaitForTag blocks until a tag enters the field or ctx ends.
	WaitForTag(ctx context.Context) (*pn532.DetectedTag, error)
	// Blocks selects the detected tag for block I/O.
	Blocks(detected *pn532.DetectedTag) (BlockIO, error)
}

// TransportFactory creates a transport from device info.
type TransportFactory func(deviceInfo detection.DeviceInfo) (pn532.Transport, error)

// DeviceFactory creates a PN532 device from a transport.
type DeviceFactory func(transport pn532.Transport) (Device, error)

// DefaultTransportFactory creates a real transport.
func DefaultTransportFactory(deviceInfo detection.DeviceInfo) (pn532.Transport, error) {
	switch deviceInfo.Transport {
	case "uart":
		transport, err := uart.New(deviceInfo.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	case "i2c":
		transport, err := i2c.New(deviceInfo.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	case "spi":
		transport, err := spi.New(deviceInfo.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", deviceInfo.Transport)
	}
}

// DefaultDeviceFactory creates a real pn532.Device.
func DefaultDeviceFactory(transport pn532.Transport) (Device, error) {
	dev, err := pn532.New(transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create PN532 device: %w", err)
	}
	return &realDevice{dev: dev}, nil
}

type realDevice struct {
	dev *pn532.Device
}

func (d *realDevice) Init(ctx context.Context) error {
	if err := d.dev.Init(ctx); err != nil {
		return fmt.Errorf("failed to init PN532: %w", err)
	}
	return nil
}

func (d *realDevice) SetTimeout(timeout time.Duration) error {
	if err := d.dev.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set PN532 timeout: %w", err)
	}
	return nil
}

func (d *realDevice) Close() error {
	if err := d.dev.Close(); err != nil {
		return fmt.Errorf("failed to close PN532: %w", err)
	}
	return nil
}

func (d *realDevice) WaitForTag(ctx context.Context) (*pn532.DetectedTag, error) {
	detected, err := d.dev.WaitForTag(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for tag: %w", err)
	}
	return detected, nil
}

func (d *realDevice) Blocks(detected *pn532.DetectedTag) (BlockIO, error) {
	tag, err := d.dev.CreateTag(detected)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	blocks, ok := tag.(BlockIO)
	if !ok {
		return nil, ErrNoBlockAccess
	}
	return blocks, nil
}
