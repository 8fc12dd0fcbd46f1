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

// Package libnfc is the reader backend for devices driven by libnfc, such
// as PN532 boards on UART or I2C and ACR122 readers over USB. Tags are
// enumerated through libfreefare.
package libnfc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DriverID          = "libnfc"
	AutoDriverID      = "libnfc_auto"
	connectMaxTries   = 10
	periodBetweenLoop = 250 * time.Millisecond
	errLogInterval    = 30 * time.Second
)

// ErrDeviceLost is returned by a Device when the reader went away,
// usually because it was unplugged.
var ErrDeviceLost = errors.New("nfc device lost")

type Reader struct {
	clock   clockwork.Clock
	cfg     *config.Instance
	pnd     Device
	onTag   readers.TagCallback
	open    DeviceOpener
	stop    chan struct{}
	lastUID []byte
	device  config.ReadersConnect
	// lastSeen is when lastUID was last found in the field.
	lastSeen time.Time
	errLog   rate.Sometimes
	wg       sync.WaitGroup
	mu       syncutil.RWMutex // protects pnd and polling
	polling  bool
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		open:   openNFCDevice,
		errLog: rate.Sometimes{First: 1, Interval: errLogInterval},
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:                DriverID,
		DefaultEnabled:    true,
		DefaultAutoDetect: true,
		Description:       "libnfc NFC reader (PN532/ACR122)",
	}
}

func (*Reader) IDs() []string {
	return []string{
		DriverID,
		AutoDriverID,
		"pn532_uart",
		"pn532_i2c",
		"acr122_usb",
	}
}

// connString converts a configured device to a libnfc connection string.
// The libnfc driver takes the full string as its path, the auto driver
// lets libnfc choose.
func connString(device config.ReadersConnect) string {
	switch device.Driver {
	case AutoDriverID:
		return ""
	case DriverID:
		return device.Path
	default:
		return device.ConnectionString()
	}
}

func (r *Reader) Open(device config.ReadersConnect, onTag readers.TagCallback) error {
	if !readers.SupportsDriver(r, device) {
		return errors.New("invalid reader id: " + device.Driver)
	}

	connStr := connString(device)
	log.Debug().Msgf("opening libnfc device: %q", connStr)

	pnd, err := r.openWithRetries(connStr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.pnd = pnd
	r.device = device
	r.onTag = onTag
	r.lastUID = nil
	r.polling = true
	r.stop = make(chan struct{})
	stop := r.stop
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(stop)
	}()

	return nil
}

func (r *Reader) openWithRetries(connStr string) (Device, error) {
	var lastErr error
	for tries := 1; tries <= connectMaxTries; tries++ {
		pnd, err := r.open(connStr)
		if err == nil {
			log.Info().Msgf("successful connect after %d tries: %s", tries, pnd.String())
			return pnd, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("try", tries).Msg("failed to open libnfc device")
	}
	return nil, fmt.Errorf("failed to open %q after %d tries: %w", connStr, connectMaxTries, lastErr)
}

func (r *Reader) loop(stop <-chan struct{}) {
	for {
		if !r.step() {
			return
		}
		select {
		case <-stop:
			return
		case <-r.clock.After(periodBetweenLoop):
		}
	}
}

// step runs one poll. A card is reported once when it appears, and again
// only after it has been out of the field for the debounce window. It
// returns false when the device is gone.
func (r *Reader) step() bool {
	r.mu.RLock()
	pnd := r.pnd
	r.mu.RUnlock()
	if pnd == nil {
		return false
	}

	cards, err := pnd.Cards()
	if errors.Is(err, ErrDeviceLost) {
		log.Error().Err(err).Msg("fatal IO error, device was possibly unplugged")
		r.markLost()
		return false
	} else if err != nil {
		r.errLog.Do(func() {
			log.Debug().Err(err).Msg("error polling device")
		})
		return true
	}

	now := r.clock.Now()
	if len(cards) == 0 {
		if r.lastUID != nil && now.Sub(r.lastSeen) > r.debounce() {
			log.Debug().Msg("card removed")
			r.lastUID = nil
		}
		return true
	}

	if len(cards) > 1 {
		log.Debug().Int("count", len(cards)).Msg("more than one card on the reader")
	}

	card := cards[0]
	if r.lastUID != nil && slices.Equal(card.UID, r.lastUID) {
		r.lastSeen = now
		return true
	}

	r.lastUID = slices.Clone(card.UID)
	r.lastSeen = now

	tag := newTag(card, r.cfg != nil && r.cfg.SkipNdefCheck())
	log.Debug().
		Str("uid", hex.EncodeToString(card.UID)).
		Strs("techs", tags.TechStrings(tag.Techs())).
		Msg("card detected")
	r.onTag(tag)
	return true
}

func (r *Reader) debounce() time.Duration {
	if r.cfg == nil {
		return 0
	}
	return r.cfg.Debounce()
}

func (r *Reader) markLost() {
	r.mu.Lock()
	pnd := r.pnd
	r.pnd = nil
	r.polling = false
	r.mu.Unlock()
	if pnd != nil {
		if err := pnd.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing lost device")
		}
	}
}

func (r *Reader) Close() error {
	r.mu.Lock()
	if r.stop != nil {
		close(r.stop)
		r.stop = nil
	}
	r.polling = false
	r.mu.Unlock()

	r.wg.Wait()

	r.mu.Lock()
	pnd := r.pnd
	r.pnd = nil
	r.mu.Unlock()
	if pnd == nil {
		return nil
	}

	log.Debug().Msgf("closing device: %s", r.device.ConnectionString())
	if err := pnd.Close(); err != nil {
		return fmt.Errorf("failed to close libnfc device: %w", err)
	}
	return nil
}

// keep track of serial devices that failed to open, libnfc probing is
// disruptive so each device is tried once
var (
	serialBlockMu   syncutil.RWMutex
	serialBlockList []string
)

func (r *Reader) Detect(connected []string) string {
	if r.cfg != nil && !r.cfg.AutoDetect() {
		return ""
	}

	if device := r.detectSerial(connected); device != "" {
		return device
	}

	auto := AutoDriverID + ":"
	if !slices.Contains(connected, auto) {
		return auto
	}
	return ""
}

func (r *Reader) detectSerial(connected []string) string {
	devices, err := helpers.GetSerialDeviceList()
	if err != nil {
		log.Debug().Err(err).Msg("error getting serial devices")
		return ""
	}

	for _, device := range devices {
		serialBlockMu.RLock()
		blocked := slices.Contains(serialBlockList, device)
		serialBlockMu.RUnlock()
		if blocked {
			continue
		}

		if slices.ContainsFunc(connected, func(c string) bool {
			return strings.HasSuffix(c, ":"+device)
		}) {
			continue
		}

		connStr := "pn532_uart:" + device
		pnd, err := r.open(connStr)
		if err != nil {
			serialBlockMu.Lock()
			serialBlockList = append(serialBlockList, device)
			serialBlockMu.Unlock()
			continue
		}
		if err := pnd.Close(); err != nil {
			log.Warn().Err(err).Msgf("error closing device: %s", device)
		}
		return connStr
	}

	return ""
}

func (r *Reader) Device() string {
	return r.device.ConnectionString()
}

func (r *Reader) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.polling && r.pnd != nil
}

func (r *Reader) Info() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pnd == nil {
		return ""
	}
	return r.pnd.String()
}

func (*Reader) Capabilities() []readers.Capability {
	return []readers.Capability{readers.CapabilityWrite, readers.CapabilityRemovable}
}

func (r *Reader) ReaderID() string {
	return readers.GenerateReaderID(DriverID, r.device.ConnectionString())
}
