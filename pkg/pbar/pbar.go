// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package pbar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ostafen/flashpart/pkg/util/format"
)

const MinRefreshRate = time.Millisecond * 500

// ProgressBarState holds all the data needed to render the progress bar
type ProgressBarState struct {
	Label              string
	TotalBytes         int64
	ProcessedBytes     int64
	StartTime          time.Time
	LastUpdateTime     time.Time
	LastProcessedBytes int64

	out io.Writer
}

// NewProgressBarState initializes a new ProgressBarState rendering to out
func NewProgressBarState(out io.Writer, label string, totalBytes int64) *ProgressBarState {
	return &ProgressBarState{
		Label:          label,
		TotalBytes:     totalBytes,
		StartTime:      time.Now(),
		LastUpdateTime: time.Unix(0, 0),
		out:            out,
	}
}

// Update records the processed byte count and renders at most once per
// MinRefreshRate.
func (pbs *ProgressBarState) Update(processed int64) {
	pbs.ProcessedBytes = processed
	pbs.Render(processed >= pbs.TotalBytes)
}

// Render updates and prints the progress bar line
func (pbs *ProgressBarState) Render(force bool) {
	if !force && time.Since(pbs.LastUpdateTime) < MinRefreshRate {
		return
	}

	percentage := 100.0
	if pbs.TotalBytes > 0 {
		percentage = float64(pbs.ProcessedBytes) / float64(pbs.TotalBytes) * 100
	}

	barLength := 20
	filledLen := int(float64(barLength) * percentage / 100)
	var bar string
	if filledLen >= barLength {
		bar = strings.Repeat("=", barLength)
	} else {
		bar = strings.Repeat("=", filledLen) + ">" + strings.Repeat(" ", barLength-filledLen-1)
	}

	elapsed := time.Since(pbs.StartTime).Seconds()
	var speedKBps float64
	if elapsed > 0 {
		speedKBps = float64(pbs.ProcessedBytes) / elapsed / 1024
	}

	pbs.LastUpdateTime = time.Now()
	pbs.LastProcessedBytes = pbs.ProcessedBytes

	// \r moves the cursor to the beginning of the line; trailing spaces
	// clear leftovers of a previous longer line
	fmt.Fprintf(pbs.out, "\r[INFO] %s: [%s] %3.0f%% (%s/%s) @ %.2fKB/s    ",
		pbs.Label,
		bar,
		percentage,
		format.FormatBytes(pbs.ProcessedBytes),
		format.FormatBytes(pbs.TotalBytes),
		speedKBps)
}

// Finish moves to the next line after the bar is done
func (pbs *ProgressBarState) Finish() {
	fmt.Fprintln(pbs.out)
}
