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

// Package mqtt is a virtual reader backend. Tags are described as JSON
// messages on a broker topic and presented as in-memory tags, so the
// dispatch path can be driven without hardware.
package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/readers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags/memtag"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	DriverID = "mqtt"
	// StateSuffix is appended to the topic for publishing tag content
	// after a handler changed it.
	StateSuffix    = "/state"
	qos            = 1
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	// quiesce is how long Disconnect waits for in-flight work, in ms.
	quiesce = 250
)

// ClientFactory creates the paho client, replaced in tests.
type ClientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// DefaultClientFactory creates a real paho client.
var DefaultClientFactory ClientFactory = mqtt.NewClient

type Reader struct {
	client        mqtt.Client
	cfg           *config.Instance
	onTag         readers.TagCallback
	clientFactory ClientFactory
	device        config.ReadersConnect
	endpoint      Endpoint
	mu            syncutil.RWMutex
}

func NewReader(cfg *config.Instance) *Reader {
	return &Reader{
		cfg:           cfg,
		clientFactory: DefaultClientFactory,
	}
}

func (*Reader) Metadata() readers.DriverMetadata {
	return readers.DriverMetadata{
		ID:                DriverID,
		DefaultEnabled:    true,
		DefaultAutoDetect: false,
		Description:       "Virtual tags from MQTT messages",
	}
}

func (*Reader) IDs() []string {
	return []string{DriverID}
}

func (r *Reader) Open(device config.ReadersConnect, onTag readers.TagCallback) error {
	if !readers.SupportsDriver(r, device) {
		return errors.New("invalid reader id: " + device.Driver)
	}

	ep, err := ParseMQTTPath(device.Path)
	if err != nil {
		return fmt.Errorf("invalid MQTT path: %w", err)
	}

	opts := NewClientOptions(ep, "zaparoo-nfc-")
	// resubscribe on every (re)connect, the session is not persistent
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(ep.Topic, qos, r.handleMessage)
		if !token.WaitTimeout(publishTimeout) {
			log.Warn().Msgf("mqtt: subscribe to %s timed out", ep.Topic)
			return
		}
		if err := token.Error(); err != nil {
			log.Error().Err(err).Msgf("mqtt: failed to subscribe to %s", ep.Topic)
			return
		}
		log.Info().Msgf("mqtt: subscribed to %s on %s", ep.Topic, ep.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msgf("mqtt: connection to %s lost", ep.Broker)
	})

	client := r.clientFactory(opts)

	r.mu.Lock()
	r.device = device
	r.endpoint = ep
	r.onTag = onTag
	r.client = client
	r.mu.Unlock()

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		r.reset()
		return fmt.Errorf("timed out connecting to %s", ep.Broker)
	}
	if err := token.Error(); err != nil {
		r.reset()
		return fmt.Errorf("failed to connect to %s: %w", ep.Broker, err)
	}

	return nil
}

func (r *Reader) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = nil
	r.onTag = nil
}

// handleMessage runs on the paho router goroutine and blocks until the
// tag has been dispatched.
func (r *Reader) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	r.mu.RLock()
	onTag := r.onTag
	r.mu.RUnlock()
	if onTag == nil {
		return
	}

	payload := bytes.TrimSpace(msg.Payload())
	if len(payload) == 0 {
		return
	}

	desc, err := ParseTagMessage(payload)
	if err != nil {
		log.Warn().Err(err).Msgf("mqtt: ignoring message on %s", msg.Topic())
		return
	}

	tag, err := desc.Build()
	if err != nil {
		log.Warn().Err(err).Msg("mqtt: unusable tag description")
		onTag(nil)
		return
	}

	log.Debug().Str("uid", desc.UID).Msg("mqtt: virtual tag presented")
	onTag(tag)

	if tag.Writes()+tag.Formats()+tag.PageWrites() > 0 {
		r.publishState(tag)
	}
}

func (r *Reader) publishState(tag *memtag.Tag) {
	r.mu.RLock()
	client := r.client
	topic := r.endpoint.Topic + StateSuffix
	r.mu.RUnlock()
	if client == nil {
		return
	}

	state, err := Describe(tag)
	if err != nil {
		log.Error().Err(err).Msg("mqtt: failed to describe tag state")
		return
	}
	data, err := json.Marshal(state)
	if err != nil {
		log.Error().Err(err).Msg("mqtt: failed to encode tag state")
		return
	}

	token := client.Publish(topic, qos, false, data)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Msgf("mqtt: publish to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Msgf("mqtt: failed to publish to %s", topic)
	}
}

func (r *Reader) Close() error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.onTag = nil
	r.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(quiesce)
	}
	return nil
}

// Detect always returns empty, MQTT readers are configured explicitly.
func (*Reader) Detect(_ []string) string {
	return ""
}

func (r *Reader) Device() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.device.ConnectionString()
}

func (r *Reader) Connected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client != nil && r.client.IsConnected()
}

func (r *Reader) Info() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.endpoint.Broker == "" {
		return ""
	}
	return fmt.Sprintf("MQTT (%s/%s)", r.endpoint.Broker, r.endpoint.Topic)
}

func (r *Reader) ReaderID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return readers.GenerateReaderID(DriverID, r.device.Path)
}

func (*Reader) Capabilities() []readers.Capability {
	return []readers.Capability{readers.CapabilityWrite}
}
