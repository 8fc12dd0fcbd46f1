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

// Package memtag implements tags.Tag entirely in memory. It backs the
// virtual MQTT reader and stands in for hardware in tests.
package memtag

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/helpers/syncutil"
	ndefcodec "github.com/ZaparooProject/zaparoo-nfc/pkg/ndef"
	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/hsanjuan/go-ndef"
)

// DefaultMaxSize matches the NDEF area of an NTAG215.
const DefaultMaxSize = 496

// Faults injects failures into technology object calls. Panic, when set,
// is raised by the next I/O call.
type Faults struct {
	Connect error
	Read    error
	Write   error
	Close   error
	Panic   any
}

// Tag is an in-memory tag. All methods are safe for concurrent use.
type Tag struct {
	message    *ndef.Message
	cached     *ndef.Message
	faults     Faults
	id         []byte
	techs      []tags.Tech
	pages      []byte
	maxSize    int
	writes     int
	formats    int
	pageWrites int
	connected  map[tags.Tech]bool
	mu         syncutil.Mutex
	hasNdef    bool
	formatable bool
	writable   bool
}

// Option configures a Tag.
type Option func(*Tag)

// WithNdef gives the tag an Ndef technology holding msg.
func WithNdef(msg *ndef.Message, writable bool, maxSize int) Option {
	return func(t *Tag) {
		t.hasNdef = true
		t.message = msg
		t.cached = msg
		t.writable = writable
		t.maxSize = maxSize
	}
}

// WithFormatable gives the tag an NdefFormatable technology.
func WithFormatable() Option {
	return func(t *Tag) {
		t.formatable = true
	}
}

// WithPages gives the tag MifareUltralight page memory. The length is
// rounded up to a whole page.
func WithPages(pages []byte) Option {
	return func(t *Tag) {
		n := len(pages)
		if rem := n % tags.UltralightPageSize; rem != 0 {
			n += tags.UltralightPageSize - rem
		}
		t.pages = make([]byte, n)
		copy(t.pages, pages)
	}
}

// WithTechs overrides the technology list derived from the options.
func WithTechs(techs ...tags.Tech) Option {
	return func(t *Tag) {
		t.techs = slices.Clone(techs)
	}
}

// WithFaults injects failures from the start.
func WithFaults(f Faults) Option {
	return func(t *Tag) {
		t.faults = f
	}
}

// New creates a tag. Without WithTechs the technology list is NfcA plus
// whatever the configured technologies imply.
func New(id []byte, opts ...Option) *Tag {
	t := &Tag{
		id:        slices.Clone(id),
		connected: make(map[tags.Tech]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.techs == nil {
		t.techs = []tags.Tech{tags.TechNfcA}
		if t.pages != nil {
			t.techs = append(t.techs, tags.TechMifareUltralight)
		}
		if t.hasNdef {
			t.techs = append(t.techs, tags.TechNdef)
		}
		if t.formatable {
			t.techs = append(t.techs, tags.TechNdefFormatable)
		}
	}
	return t
}

func (t *Tag) ID() []byte {
	return slices.Clone(t.id)
}

func (t *Tag) Techs() []tags.Tech {
	return slices.Clone(t.techs)
}

func (t *Tag) Ndef() (tags.Ndef, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasNdef || !tags.HasTech(t.techs, tags.TechNdef) {
		return nil, false
	}
	return &ndefTech{conn: conn{tag: t, tech: tags.TechNdef}}, true
}

func (t *Tag) NdefFormatable() (tags.NdefFormatable, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.formatable || !tags.HasTech(t.techs, tags.TechNdefFormatable) {
		return nil, false
	}
	return &formatableTech{conn: conn{tag: t, tech: tags.TechNdefFormatable}}, true
}

func (t *Tag) MifareUltralight() (tags.MifareUltralight, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pages == nil || !tags.HasTech(t.techs, tags.TechMifareUltralight) {
		return nil, false
	}
	return &ultralightTech{conn: conn{tag: t, tech: tags.TechMifareUltralight}}, true
}

// SetFaults replaces the injected failures.
func (t *Tag) SetFaults(f Faults) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.faults = f
}

// Message returns the current NDEF content.
func (t *Tag) Message() *ndef.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.message
}

// Pages returns a copy of the page memory.
func (t *Tag) Pages() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.pages)
}

// Writes counts WriteMessage calls that reached the tag.
func (t *Tag) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Formats counts Format calls that reached the tag.
func (t *Tag) Formats() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.formats
}

// PageWrites counts WritePage calls that reached the tag.
func (t *Tag) PageWrites() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pageWrites
}

// AnyConnected reports whether any technology object is still connected.
func (t *Tag) AnyConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.connected {
		if c {
			return true
		}
	}
	return false
}

// conn implements tags.Connection for one technology. Callers must hold
// tag.mu for the unexported helpers.
type conn struct {
	tag  *Tag
	tech tags.Tech
}

func (c *conn) Connect() error {
	c.tag.mu.Lock()
	defer c.tag.mu.Unlock()
	if c.tag.faults.Connect != nil {
		return c.tag.faults.Connect
	}
	for tech, connected := range c.tag.connected {
		if connected && tech != c.tech {
			return fmt.Errorf("technology %s already connected", tech)
		}
	}
	c.tag.connected[c.tech] = true
	return nil
}

func (c *conn) Close() error {
	c.tag.mu.Lock()
	defer c.tag.mu.Unlock()
	c.tag.connected[c.tech] = false
	return c.tag.faults.Close
}

func (c *conn) IsConnected() bool {
	c.tag.mu.Lock()
	defer c.tag.mu.Unlock()
	return c.tag.connected[c.tech]
}

func (c *conn) checkIO(fault error) error {
	if p := c.tag.faults.Panic; p != nil {
		c.tag.faults.Panic = nil
		panic(p)
	}
	if !c.tag.connected[c.tech] {
		return tags.ErrNotConnected
	}
	return fault
}

type ndefTech struct {
	conn
}

func (n *ndefTech) CachedMessage() *ndef.Message {
	n.tag.mu.Lock()
	defer n.tag.mu.Unlock()
	return n.tag.cached
}

func (n *ndefTech) ReadMessage() (*ndef.Message, error) {
	n.tag.mu.Lock()
	defer n.tag.mu.Unlock()
	if err := n.checkIO(n.tag.faults.Read); err != nil {
		return nil, err
	}
	return n.tag.message, nil
}

func (n *ndefTech) IsWritable() bool {
	n.tag.mu.Lock()
	defer n.tag.mu.Unlock()
	return n.tag.writable
}

func (n *ndefTech) MaxSize() int {
	n.tag.mu.Lock()
	defer n.tag.mu.Unlock()
	return n.tag.maxSize
}

func (n *ndefTech) WriteMessage(msg *ndef.Message) error {
	n.tag.mu.Lock()
	defer n.tag.mu.Unlock()
	if err := n.checkIO(n.tag.faults.Write); err != nil {
		return err
	}
	if !n.tag.writable {
		return tags.ErrReadOnly
	}
	size, err := ndefcodec.MessageSize(msg)
	if err != nil {
		return err
	}
	if size > n.tag.maxSize {
		return fmt.Errorf("message of %d bytes exceeds %d", size, n.tag.maxSize)
	}
	n.tag.writes++
	n.tag.message = msg
	return nil
}

type formatableTech struct {
	conn
}

func (f *formatableTech) Format(msg *ndef.Message) error {
	f.tag.mu.Lock()
	defer f.tag.mu.Unlock()
	if err := f.checkIO(f.tag.faults.Write); err != nil {
		return err
	}
	if !f.tag.formatable {
		return errors.New("tag already formatted")
	}
	f.tag.formats++
	f.tag.formatable = false
	f.tag.hasNdef = true
	f.tag.writable = true
	if f.tag.maxSize == 0 {
		f.tag.maxSize = DefaultMaxSize
	}
	f.tag.message = msg
	return nil
}

type ultralightTech struct {
	conn
}

// ReadPages wraps around to page 0 past the end of memory, like the
// READ command on real Ultralight tags.
func (u *ultralightTech) ReadPages(page int) ([]byte, error) {
	u.tag.mu.Lock()
	defer u.tag.mu.Unlock()
	if err := u.checkIO(u.tag.faults.Read); err != nil {
		return nil, err
	}
	total := len(u.tag.pages) / tags.UltralightPageSize
	if page < 0 || page >= total {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	out := make([]byte, 0, tags.UltralightReadSize)
	for i := range tags.UltralightPagesPerRead {
		p := (page + i) % total
		off := p * tags.UltralightPageSize
		out = append(out, u.tag.pages[off:off+tags.UltralightPageSize]...)
	}
	return out, nil
}

func (u *ultralightTech) WritePage(page int, data []byte) error {
	u.tag.mu.Lock()
	defer u.tag.mu.Unlock()
	if err := u.checkIO(u.tag.faults.Write); err != nil {
		return err
	}
	if len(data) != tags.UltralightPageSize {
		return fmt.Errorf("page write needs %d bytes, got %d", tags.UltralightPageSize, len(data))
	}
	off := page * tags.UltralightPageSize
	if page < 0 || off+tags.UltralightPageSize > len(u.tag.pages) {
		return fmt.Errorf("page %d out of range", page)
	}
	copy(u.tag.pages[off:], data)
	u.tag.pageWrites++
	return nil
}
