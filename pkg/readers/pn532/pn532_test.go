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
	"testing"
	"time"

	"github.com/ZaparooProject/go-pn532"
	"github.com/ZaparooProject/go-pn532/detection"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/config"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/testing/helpers"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/type2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memBlocks is NTAG memory addressed by 4 byte block.
type memBlocks struct {
	mem []byte
}

func (m *memBlocks) ReadBlock(_ context.Context, block uint8) ([]byte, error) {
	off := int(block) * 4
	if off+4 > len(m.mem) {
		return nil, errors.New("block out of range")
	}
	out := make([]byte, 4)
	copy(out, m.mem[off:off+4])
	return out, nil
}

func (m *memBlocks) WriteBlock(_ context.Context, block uint8, data []byte) error {
	off := int(block) * 4
	if off+4 > len(m.mem) {
		return errors.New("block out of range")
	}
	copy(m.mem[off:], data)
	return nil
}

func ntag213() *memBlocks {
	m := &memBlocks{mem: make([]byte, 45*4)}
	copy(m.mem[type2.CCPage*4:], type2.NewCC(type2.SizeNTAG213).Bytes())
	copy(m.mem[type2.DataStartPage*4:], []byte{0x03, 0x00, 0xFE})
	return m
}

// fakeDevice hands out queued detections, then blocks until canceled.
type fakeDevice struct {
	blocks       BlockIO
	blocksErr    error
	initErr      error
	detections   chan *pn532.DetectedTag
	mu           syncutil.Mutex
	timeout      time.Duration
	closed       bool
	initDeadline bool
}

func newFakeDevice(detected ...*pn532.DetectedTag) *fakeDevice {
	ch := make(chan *pn532.DetectedTag, len(detected))
	for _, d := range detected {
		ch <- d
	}
	return &fakeDevice{detections: ch}
}

func (d *fakeDevice) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, d.initDeadline = ctx.Deadline()
	return d.initErr
}

func (d *fakeDevice) SetTimeout(timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeout = timeout
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *fakeDevice) WaitForTag(ctx context.Context) (*pn532.DetectedTag, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case detected := <-d.detections:
		return detected, nil
	}
}

func (d *fakeDevice) Blocks(*pn532.DetectedTag) (BlockIO, error) {
	if d.blocksErr != nil {
		return nil, d.blocksErr
	}
	return d.blocks, nil
}

func ntagDetection(uid byte) *pn532.DetectedTag {
	return &pn532.DetectedTag{
		UID:      "",
		UIDBytes: []byte{0x04, uid, 0x22, 0x33, 0x44, 0x55, 0x66},
		Type:     pn532.TagTypeNTAG,
	}
}

func TestTransportType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uart", transportType("pn532"))
	assert.Equal(t, "uart", transportType("pn532_uart"))
	assert.Equal(t, "i2c", transportType("pn532_i2c"))
	assert.Equal(t, "spi", transportType("pn532_spi"))
}

func TestTechsFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    []tags.Tech
		tagType pn532.TagType
	}{
		{tagType: pn532.TagTypeNTAG, want: []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight}},
		{tagType: pn532.TagTypeMIFARE, want: []tags.Tech{tags.TechNfcA, tags.TechMifareClassic}},
		{tagType: pn532.TagTypeFeliCa, want: []tags.Tech{tags.TechNfcF}},
		{tagType: pn532.TagTypeUnknown, want: []tags.Tech{tags.TechNfcA}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, techsFor(tt.tagType))
	}
}

func TestDetectedUID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0x01, 0x02}, detectedUID(&pn532.DetectedTag{UIDBytes: []byte{0x01, 0x02}}))
	assert.Equal(t, []byte{0xAB, 0xCD}, detectedUID(&pn532.DetectedTag{UID: "abcd"}))
	assert.Nil(t, detectedUID(&pn532.DetectedTag{UID: "zz"}))
}

func TestNewTag_NTAGWithNdef(t *testing.T) {
	t.Parallel()

	tag := newTag(context.Background(), ntagDetection(1), ntag213(), false)
	assert.Equal(t, []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight, tags.TechNdef}, tag.Techs())

	n, ok := tag.Ndef()
	require.True(t, ok)
	assert.Equal(t, type2.MaxMessageSize(type2.SizeNTAG213), n.MaxSize())
}

func TestNewTag_ClassifyOnly(t *testing.T) {
	t.Parallel()

	classic := &pn532.DetectedTag{UIDBytes: []byte{1, 2, 3, 4}, Type: pn532.TagTypeMIFARE}
	tag := newTag(context.Background(), classic, &memBlocks{}, false)
	assert.Equal(t, []tags.Tech{tags.TechNfcA, tags.TechMifareClassic}, tag.Techs())
	_, ok := tag.MifareUltralight()
	assert.False(t, ok)

	tag = newTag(context.Background(), ntagDetection(1), nil, false)
	assert.Equal(t, []tags.Tech{tags.TechNfcA, tags.TechMifareUltralight}, tag.Techs())
}

func TestPageTech_ReadsFourBlocks(t *testing.T) {
	t.Parallel()

	mem := ntag213()
	p := &pageTech{ctx: context.Background(), blocks: mem}
	_, err := p.ReadPages(0)
	require.ErrorIs(t, err, tags.ErrNotConnected)

	require.NoError(t, p.Connect())
	require.NoError(t, p.WritePage(6, []byte{9, 8, 7, 6}))
	data, err := p.ReadPages(4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x00, 0xFE, 0, 0, 0, 0, 0, 9, 8, 7, 6, 0, 0, 0, 0}, data)

	_, err = p.ReadPages(44)
	require.ErrorIs(t, err, tags.ErrIO)
}

func newTestReader(t *testing.T) (*Reader, *clockwork.FakeClock, *[]tags.Tag) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	r := NewReader(helpers.NewTestConfig(t, nil))
	r.clock = clock
	seen := &[]tags.Tag{}
	r.onTag = func(tag tags.Tag) { *seen = append(*seen, tag) }
	return r, clock, seen
}

func TestHandleDetected_Debounce(t *testing.T) {
	t.Parallel()

	r, clock, seen := newTestReader(t)
	dev := &fakeDevice{blocks: ntag213()}
	ctx := context.Background()

	r.handleDetected(ctx, dev, ntagDetection(1))
	clock.Advance(100 * time.Millisecond)
	r.handleDetected(ctx, dev, ntagDetection(1))
	clock.Advance(200 * time.Millisecond)
	r.handleDetected(ctx, dev, ntagDetection(1))
	require.Len(t, *seen, 1, "continuous presence is reported once")

	clock.Advance(time.Second)
	r.handleDetected(ctx, dev, ntagDetection(1))
	require.Len(t, *seen, 2)

	r.handleDetected(ctx, dev, ntagDetection(2))
	assert.Len(t, *seen, 3)
}

func TestHandleDetected_NoUID(t *testing.T) {
	t.Parallel()

	r, _, seen := newTestReader(t)
	r.handleDetected(context.Background(), &fakeDevice{}, &pn532.DetectedTag{Type: pn532.TagTypeNTAG})
	require.Len(t, *seen, 1)
	assert.Nil(t, (*seen)[0])
}

func TestHandleDetected_BlocksUnavailable(t *testing.T) {
	t.Parallel()

	r, _, seen := newTestReader(t)
	dev := &fakeDevice{blocksErr: ErrNoBlockAccess}
	r.handleDetected(context.Background(), dev, ntagDetection(1))
	require.Len(t, *seen, 1)
	_, ok := (*seen)[0].MifareUltralight()
	assert.False(t, ok)
}

func TestOpenClose(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice(ntagDetection(7))
	dev.blocks = ntag213()

	r := NewReader(helpers.NewTestConfig(t, nil))
	r.clock = clockwork.NewFakeClock()
	r.transportFactory = func(info detection.DeviceInfo) (pn532.Transport, error) {
		assert.Equal(t, "i2c", info.Transport)
		assert.Equal(t, "/dev/i2c-1", info.Path)
		return nil, nil
	}
	r.deviceFactory = func(pn532.Transport) (Device, error) {
		return dev, nil
	}

	found := make(chan tags.Tag, 1)
	err := r.Open(config.ReadersConnect{Driver: "pn532_i2c", Path: "/dev/i2c-1"}, func(tag tags.Tag) {
		found <- tag
	})
	require.NoError(t, err)
	assert.True(t, r.Connected())
	assert.Equal(t, "pn532_i2c:/dev/i2c-1", r.Device())

	select {
	case tag := <-found:
		assert.Contains(t, tag.Techs(), tags.TechNdef)
	case <-time.After(2 * time.Second):
		t.Fatal("tag not dispatched")
	}

	require.NoError(t, r.Close())
	assert.True(t, dev.isClosed())
	assert.False(t, r.Connected())
}

func TestOpen_InitFailure(t *testing.T) {
	t.Parallel()

	dev := newFakeDevice()
	dev.initErr = errors.New("no ack")

	r := NewReader(nil)
	r.transportFactory = func(detection.DeviceInfo) (pn532.Transport, error) {
		return nil, nil
	}
	r.deviceFactory = func(pn532.Transport) (Device, error) {
		return dev, nil
	}

	err := r.Open(config.ReadersConnect{Driver: DriverID, Path: "/dev/ttyUSB0"}, func(tags.Tag) {})
	require.Error(t, err)
	assert.True(t, dev.isClosed())
	assert.False(t, r.Connected())

	dev.mu.Lock()
	defer dev.mu.Unlock()
	assert.True(t, dev.initDeadline, "init must be bounded by a timeout")
}

func TestOpen_InvalidDriver(t *testing.T) {
	t.Parallel()

	err := NewReader(nil).Open(config.ReadersConnect{Driver: "pcsc"}, func(tags.Tag) {})
	require.Error(t, err)
}
