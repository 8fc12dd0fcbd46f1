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

package ultralight

import (
	"fmt"

	"github.com/ZaparooProject/zaparoo-nfc/pkg/tags"
	"github.com/rs/zerolog/log"
)

// ReadWindow reads exactly w.Capacity() bytes starting at w.StartPage,
// four pages per burst. The last burst is truncated to the bytes left.
func ReadWindow(ul tags.MifareUltralight, w Window) ([]byte, error) {
	capacity := w.Capacity()
	data := make([]byte, 0, capacity)
	page := w.StartPage

	for len(data) < capacity {
		burst, err := ul.ReadPages(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read pages at %d: %w", page, err)
		}
		if len(burst) == 0 {
			return nil, fmt.Errorf("empty read at page %d", page)
		}

		remaining := capacity - len(data)
		if len(burst) > remaining {
			burst = burst[:remaining]
		}
		data = append(data, burst...)
		page += tags.UltralightPagesPerRead
	}

	return data, nil
}

// WriteWindow writes data into the window one page at a time, zero padding
// the last page. It returns the number of data bytes written.
func WriteWindow(ul tags.MifareUltralight, w Window, data []byte) (int, error) {
	written := 0
	for i := 0; written < len(data); i++ {
		if i >= w.PageCount {
			return written, fmt.Errorf("%w: %d bytes over %d pages",
				ErrNotEnoughSpace, len(data), w.PageCount)
		}

		end := min(written+tags.UltralightPageSize, len(data))
		chunk := make([]byte, tags.UltralightPageSize)
		n := copy(chunk, data[written:end])

		page := w.StartPage + i
		if err := ul.WritePage(page, chunk); err != nil {
			return written, fmt.Errorf("failed to write page %d: %w", page, err)
		}
		log.Trace().Int("page", page).Hex("data", chunk).Msg("wrote ultralight page")
		written += n
	}

	return written, nil
}
