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

// Package nfcerrors defines the closed error taxonomies reported to
// handler listeners and admin state listeners.
//
// Every error carries a Kind, the operation that failed and an optional
// underlying cause. errors.Is matches on Kind, so callers compare against
// the exported sentinels:
//
//	if errors.Is(err, nfcerrors.ErrTagNotWritable) { ... }
package nfcerrors

import (
	"errors"
	"fmt"
)

// ReadKind enumerates the ways reading a tag can fail.
type ReadKind int

const (
	ReadNotNdefFormatted ReadKind = iota + 1
	ReadNdefNull
	ReadNdefEmpty
	ReadNotNdefCompliant
	ReadIO
	ReadFailed
	ReadClose
)

var readMessages = map[ReadKind]string{
	ReadNotNdefFormatted: "tag is not NDEF formatted",
	ReadNdefNull:         "tag returned no NDEF message",
	ReadNdefEmpty:        "NDEF message is empty",
	ReadNotNdefCompliant: "tag is not NDEF compliant",
	ReadIO:               "I/O error while reading tag",
	ReadFailed:           "failed to read tag",
	ReadClose:            "failed to close tag after read",
}

func (k ReadKind) String() string {
	if msg, ok := readMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("unknown read error (%d)", int(k))
}

// WriteKind enumerates the ways writing a tag can fail.
type WriteKind int

const (
	WriteTagNotWritable WriteKind = iota + 1
	WriteNotEnoughSpace
	WriteNotNdefCompliant
	WriteNoDataToWrite
	WriteIO
	WriteFailed
	WriteClose
)

var writeMessages = map[WriteKind]string{
	WriteTagNotWritable:   "tag is not writable",
	WriteNotEnoughSpace:   "not enough space on tag",
	WriteNotNdefCompliant: "tag is not NDEF compliant",
	WriteNoDataToWrite:    "no data prepared to write",
	WriteIO:               "I/O error while writing tag",
	WriteFailed:           "failed to write tag",
	WriteClose:            "failed to close tag after write",
}

func (k WriteKind) String() string {
	if msg, ok := writeMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("unknown write error (%d)", int(k))
}

// AdminKind enumerates adapter level failures.
type AdminKind int

const (
	AdminAdapterUnavailable AdminKind = iota + 1
	AdminAdapterDisabled
	AdminTagNotFound
	AdminReaderModeEnable
	AdminReaderModeDisable
)

var adminMessages = map[AdminKind]string{
	AdminAdapterUnavailable: "NFC adapter is not available",
	AdminAdapterDisabled:    "NFC adapter is disabled",
	AdminTagNotFound:        "tag not found",
	AdminReaderModeEnable:   "failed to enable reader mode",
	AdminReaderModeDisable:  "failed to disable reader mode",
}

func (k AdminKind) String() string {
	if msg, ok := adminMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("unknown admin error (%d)", int(k))
}

// ReadError is reported to OnReadError.
type ReadError struct {
	Cause error
	Op    string
	Kind  ReadKind
}

func (e *ReadError) Error() string {
	return format(e.Kind.String(), e.Op, e.Cause)
}

func (e *ReadError) Unwrap() error { return e.Cause }

// Is matches any ReadError of the same kind.
func (e *ReadError) Is(target error) bool {
	var t *ReadError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// WriteError is reported to OnWriteError.
type WriteError struct {
	Cause error
	Op    string
	Kind  WriteKind
}

func (e *WriteError) Error() string {
	return format(e.Kind.String(), e.Op, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// Is matches any WriteError of the same kind.
func (e *WriteError) Is(target error) bool {
	var t *WriteError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// AdminError is reported to admin state listeners.
type AdminError struct {
	Cause error
	Op    string
	Kind  AdminKind
}

func (e *AdminError) Error() string {
	return format(e.Kind.String(), e.Op, e.Cause)
}

func (e *AdminError) Unwrap() error { return e.Cause }

// Is matches any AdminError of the same kind.
func (e *AdminError) Is(target error) bool {
	var t *AdminError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func format(msg, op string, cause error) string {
	if op != "" {
		msg = op + ": " + msg
	}
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return msg
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotNdefFormatted  error = &ReadError{Kind: ReadNotNdefFormatted}
	ErrNdefNull          error = &ReadError{Kind: ReadNdefNull}
	ErrNdefEmpty         error = &ReadError{Kind: ReadNdefEmpty}
	ErrReadNotCompliant  error = &ReadError{Kind: ReadNotNdefCompliant}
	ErrReadIO            error = &ReadError{Kind: ReadIO}
	ErrReadFailed        error = &ReadError{Kind: ReadFailed}
	ErrReadClose         error = &ReadError{Kind: ReadClose}
	ErrTagNotWritable    error = &WriteError{Kind: WriteTagNotWritable}
	ErrNotEnoughSpace    error = &WriteError{Kind: WriteNotEnoughSpace}
	ErrWriteNotCompliant error = &WriteError{Kind: WriteNotNdefCompliant}
	ErrNoDataToWrite     error = &WriteError{Kind: WriteNoDataToWrite}
	ErrWriteIO           error = &WriteError{Kind: WriteIO}
	ErrWriteFailed       error = &WriteError{Kind: WriteFailed}
	ErrWriteClose        error = &WriteError{Kind: WriteClose}

	ErrAdapterUnavailable error = &AdminError{Kind: AdminAdapterUnavailable}
	ErrAdapterDisabled    error = &AdminError{Kind: AdminAdapterDisabled}
	ErrTagNotFound        error = &AdminError{Kind: AdminTagNotFound}
	ErrReaderModeEnable   error = &AdminError{Kind: AdminReaderModeEnable}
	ErrReaderModeDisable  error = &AdminError{Kind: AdminReaderModeDisable}
)

// NewRead builds a ReadError.
func NewRead(kind ReadKind, op string, cause error) *ReadError {
	return &ReadError{Kind: kind, Op: op, Cause: cause}
}

// NewWrite builds a WriteError.
func NewWrite(kind WriteKind, op string, cause error) *WriteError {
	return &WriteError{Kind: kind, Op: op, Cause: cause}
}

// NewAdmin builds an AdminError.
func NewAdmin(kind AdminKind, op string, cause error) *AdminError {
	return &AdminError{Kind: kind, Op: op, Cause: cause}
}

// IsPossiblyEmpty reports whether a read error means the tag may simply
// hold no data yet, as opposed to a failure.
func IsPossiblyEmpty(err error) bool {
	return errors.Is(err, ErrNotNdefFormatted) ||
		errors.Is(err, ErrNdefNull) ||
		errors.Is(err, ErrNdefEmpty)
}
