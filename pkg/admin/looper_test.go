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

package admin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooper_RunsInOrder(t *testing.T) {
	t.Parallel()

	l := NewLooper()
	defer l.Stop()

	var mu sync.Mutex
	var got []int
	for i := range 10 {
		require.NoError(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, l.Run(func() {}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestLooper_RunWaits(t *testing.T) {
	t.Parallel()

	l := NewLooper()
	defer l.Stop()

	ran := false
	require.NoError(t, l.Run(func() { ran = true }))
	assert.True(t, ran)
}

func TestLooper_RecoversPanic(t *testing.T) {
	t.Parallel()

	l := NewLooper()
	defer l.Stop()

	require.NoError(t, l.Run(func() { panic("boom") }))

	ran := false
	require.NoError(t, l.Run(func() { ran = true }))
	assert.True(t, ran)
}

func TestLooper_Stopped(t *testing.T) {
	t.Parallel()

	l := NewLooper()
	l.Stop()
	l.Stop()

	require.ErrorIs(t, l.Post(func() {}), ErrLooperStopped)
	require.ErrorIs(t, l.Run(func() {}), ErrLooperStopped)
}

func TestLooper_StopWaitsForRunningTask(t *testing.T) {
	t.Parallel()

	l := NewLooper()
	started := make(chan struct{})
	release := make(chan struct{})
	finished := false

	require.NoError(t, l.Post(func() {
		close(started)
		<-release
		finished = true
	}))
	<-started

	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	close(release)
	<-stopped
	assert.True(t, finished)
}
