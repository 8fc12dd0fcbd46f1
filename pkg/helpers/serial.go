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

package helpers

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

type usbID struct {
	vid string
	pid string
}

// Serial devices which are never NFC readers. Opening them with libnfc or
// the PN532 driver upsets the device.
var ignoredSerialDevices = []usbID{
	// Sinden Lightgun
	{vid: "16c0", pid: "0f38"},
	{vid: "16c0", pid: "0f39"},
	{vid: "16c0", pid: "0f01"},
	{vid: "16c0", pid: "0f02"},
	{vid: "16d0", pid: "0f38"},
	{vid: "16d0", pid: "0f39"},
	{vid: "16d0", pid: "0f01"},
	{vid: "16d0", pid: "0f02"},
}

func serialPrefixes(goos string) []string {
	switch goos {
	case "linux":
		return []string{"/dev/ttyUSB", "/dev/ttyACM"}
	case "darwin":
		return []string{"/dev/tty.usbserial", "/dev/cu.usbserial"}
	case "windows":
		return []string{"COM"}
	default:
		return nil
	}
}

// FilterSerialPorts keeps USB serial ports that could host a reader on the
// given OS, dropping known non-reader devices.
func FilterSerialPorts(goos string, ports []*enumerator.PortDetails) []string {
	prefixes := serialPrefixes(goos)
	devices := make([]string, 0, len(ports))

	for _, p := range ports {
		if p == nil {
			continue
		}

		if len(prefixes) > 0 && !hasAnyPrefix(p.Name, prefixes) {
			continue
		}

		if p.IsUSB && isIgnoredSerial(p.VID, p.PID) {
			log.Trace().Msgf("ignoring serial device: %s", p.Name)
			continue
		}

		devices = append(devices, p.Name)
	}

	return devices
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func isIgnoredSerial(vid, pid string) bool {
	vid = strings.ToLower(vid)
	pid = strings.ToLower(pid)
	for _, d := range ignoredSerialDevices {
		if d.vid == vid && d.pid == pid {
			return true
		}
	}
	return false
}

// IgnoredSerialIDs returns the ignored devices as upper case "VID:PID"
// strings.
func IgnoredSerialIDs() []string {
	ids := make([]string, 0, len(ignoredSerialDevices))
	for _, d := range ignoredSerialDevices {
		ids = append(ids, strings.ToUpper(d.vid+":"+d.pid))
	}
	return ids
}

// GetSerialDeviceList returns candidate reader serial ports.
func GetSerialDeviceList() ([]string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return FilterSerialPorts(runtime.GOOS, ports), nil
}
