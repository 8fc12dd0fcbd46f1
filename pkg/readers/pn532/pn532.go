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

// Package pn532 is the reader backend for PN532 boards driven natively
// over UART, I2C or SPI, without libnfc.
package pn532

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/detection"
	_ "github.com/ZaparooProject/go-pn532/detection/uart"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	DriverID              = "pn532"
	quickDetectionTimeout = 5 * time.Second
	deviceTimeout         = 5 * time.Second
	initTimeout           = 10 * time.Second
	periodBetweenPolls    = 100 * time.Millisecond
)

type Reader struct {
	clock            clockwork.Clock
	device           Device
	ctx              context.Context
	cfg              *config.Instance
	cancel           context.CancelFunc
	onTag            readers.TagCallback
	transportFactory TransportFactory
	deviceFactory    DeviceFactory
	lastUID          []byte
	lastSeen         time.Time
	deviceInfo       config.ReadersConnect
	name             string
	wg               sync.WaitGroup
	mutex            syncutil.RWMutex
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:              cfg,
		clock:            clockwork.NewRealClock(),
		transportFactory: DefaultTransportFactory,
		deviceFactory:    DefaultDeviceFactory,
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:                DriverID,
		DefaultEnabled:    true,
		DefaultAutoDetect: true,
		Description:       "PN532 NFC reader (UART/I2C/SPI)",
	}
}

func (*Reader) IDs() []string {
	return []string{
		DriverID,
		"pn532_uart",
		"pn532_i2c",
		"pn532_spi",
	}
}

// transportType extracts the transport from the driver, e.g. "pn532_uart"
// gives "uart". Plain "pn532" defaults to UART.
func transportType(driver string) string {
	t := strings.TrimPrefix(driver, "pn532_")
	if t == driver {
		return "uart"
	}
	return t
}

func (r *Reader) Open(device config.ReadersConnect, onTag readers.TagCallback) error {
	if !readers.SupportsDriver(r, device) {
		return errors.New("invalid reader id: " + device.Driver)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	transport, err := r.transportFactory(detection.DeviceInfo{
		Transport: transportType(device.Driver),
		Path:      device.Path,
	})
	if err != nil {
		return fmt.Errorf("failed to create transport: %w", err)
	}

	r.name = device.ConnectionString()
	log.Debug().Msgf("opening PN532 device: %s", r.name)

	dev, err := r.deviceFactory(transport)
	if err != nil {
		if transport != nil {
			_ = transport.Close()
		}
		return fmt.Errorf("failed to create PN532 device: %w", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), initTimeout)
	err = dev.Init(initCtx)
	cancelInit()
	if err != nil {
		_ = dev.Close()
		return fmt.Errorf("failed to initialize PN532 device: %w", err)
	}

	// a long timeout stops the LED blinking on every poll
	if err := dev.SetTimeout(deviceTimeout); err != nil {
		_ = dev.Close()
		return fmt.Errorf("failed to set device timeout: %w", err)
	}

	r.device = dev
	r.deviceInfo = device
	r.onTag = onTag
	r.lastUID = nil
	r.ctx, r.cancel = context.WithCancel(context.Background())
	ctx := r.ctx

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.poll(ctx, dev)
	}()

	log.Info().Msgf("PN532 reader opened: %s", r.name)
	return nil
}

func (r *Reader) poll(ctx context.Context, dev Device) {
	for ctx.Err() == nil {
		detected, err := dev.WaitForTag(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			log.Debug().Err(err).Msg("PN532 poll failed")
		case detected != nil:
			r.handleDetected(ctx, dev, detected)
		}

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(periodBetweenPolls):
		}
	}
}

// handleDetected reports a detection unless it is the same tag seen within
// the debounce window.
func (r *Reader) handleDetected(ctx context.Context, dev Device, detected *pn532.DetectedTag) {
	now := r.clock.Now()
	uid := detectedUID(detected)
	if r.lastUID != nil && slices.Equal(uid, r.lastUID) && now.Sub(r.lastSeen) <= r.debounce() {
		r.lastSeen = now
		return
	}
	r.lastUID = uid
	r.lastSeen = now

	if len(uid) == 0 {
		r.onTag(nil)
		return
	}

	blocks, err := dev.Blocks(detected)
	if err != nil {
		log.Debug().Err(err).Msg("tag not selectable for I/O")
		blocks = nil
	}

	tag := newTag(ctx, detected, blocks, r.cfg != nil && r.cfg.SkipNdefCheck())
	log.Debug().
		Str("uid", hex.EncodeToString(uid)).
		Strs("techs", tags.TechStrings(tag.Techs())).
		Msg("tag detected")
	r.onTag(tag)
}

func (r *Reader) debounce() time.Duration {
	if r.cfg == nil {
		return 0
	}
	return r.cfg.Debounce()
}

func (r *Reader) Close() error {
	r.mutex.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	dev := r.device
	r.mutex.Unlock()

	r.wg.Wait()

	if dev == nil {
		return nil
	}

	r.mutex.Lock()
	r.device = nil
	r.mutex.Unlock()

	if err := dev.Close(); err != nil {
		return fmt.Errorf("failed to close PN532 device: %w", err)
	}
	return nil
}

func (*Reader) Detect(connected []string) string {
	ignorePaths := make([]string, 0, len(connected))
	for _, conn := range connected {
		parts := strings.SplitN(conn, ":", 2)
		if len(parts) == 2 && parts[1] != "" {
			ignorePaths = append(ignorePaths, parts[1])
		}
	}

	opts := detection.DefaultOptions()
	opts.Timeout = quickDetectionTimeout
	opts.Mode = detection.Safe
	opts.Blocklist = helpers.IgnoredSerialIDs()
	opts.IgnorePaths = ignorePaths

	ctx, cancel := context.WithTimeout(context.Background(), quickDetectionTimeout)
	defer cancel()

	devices, err := detection.DetectAll(ctx, &opts)
	if err != nil {
		log.Trace().Err(err).Msg("PN532 detection failed")
		return ""
	}

	for _, device := range devices {
		if slices.Contains(ignorePaths, device.Path) {
			continue
		}
		deviceStr := fmt.Sprintf("pn532_%s:%s", device.Transport, device.Path)
		log.Trace().Msgf("detected PN532 device: %s", deviceStr)
		return deviceStr
	}

	return ""
}

func (r *Reader) Device() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.deviceInfo.ConnectionString()
}

func (r *Reader) Connected() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.device != nil && r.ctx != nil && r.ctx.Err() == nil
}

func (r *Reader) Info() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return "PN532 (" + r.name + ")"
}

func (*Reader) Capabilities() []readers.Capability {
	return []readers.Capability{readers.CapabilityWrite, readers.CapabilityRemovable}
}

func (r *Reader) ReaderID() string {
	return readers.GenerateReaderID(DriverID, r.Device())
}
