// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/coreos/ioprogress"
	"github.com/coreos/pkg/capnslog"
)

var plog = capnslog.NewPackageLogger("github.com/flatcar-linux/otaextract", "util")

// LogFrom reads lines from reader r and sends them to logger l.
func LogFrom(l capnslog.LogLevel, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		plog.Log(l, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		plog.Errorf("Reading %s failed: %v", r, err)
	}
}

// CopyProgress copies data from reader into writter, logging progress through level.
func CopyProgress(level capnslog.LogLevel, prefix string, writer io.Writer, reader io.Reader, total int64) (int64, error) {
	// TODO(marineam): would be nice to support this natively in
	// capnslog so the right output stream and formatter are used.
	if plog.LevelAt(level) {
		reader = &ioprogress.Reader{
			Reader:   reader,
			Size:     total,
			DrawFunc: ioprogress.DrawTerminalf(os.Stderr, progressFormatter(prefix)),
		}
	}

	return io.Copy(writer, reader)
}

// progressFormatter builds the same ripped-off-from-rkt bar formatter
// CopyProgress and ProgressFunc both draw with, sized to leave room for
// prefix on an 80-column terminal.
func progressFormatter(prefix string) func(progress, total int64) string {
	fmtBytesSize := 18
	barSize := int64(80 - len(prefix) - fmtBytesSize)
	if barSize < 8 {
		barSize = 8
	}
	bar := ioprogress.DrawTextFormatBarForW(barSize, os.Stderr)

	return func(progress, total int64) string {
		if total < 0 {
			return fmt.Sprintf(
				"%s: %v of an unknown total size",
				prefix,
				ioprogress.ByteUnitStr(progress),
			)
		}
		return fmt.Sprintf(
			"%s: %s %s",
			prefix,
			bar(progress, total),
			ioprogress.DrawTextFormatBytes(progress, total),
		)
	}
}

// ProgressFunc returns a callback for progress sources that report
// cumulative bytes completed one increment at a time (engine.Sinks.
// Progress reports per-operation deltas) rather than offering an
// io.Reader to wrap the way CopyProgress does. It draws the same text
// bar, serialized across concurrent callers with a mutex since the
// scheduler's worker pool calls it from multiple goroutines.
func ProgressFunc(prefix string, total int64) func(delta int64) {
	draw := ioprogress.DrawTerminalf(os.Stderr, progressFormatter(prefix))
	var written int64
	var mu sync.Mutex

	return func(delta int64) {
		w := atomic.AddInt64(&written, delta)
		mu.Lock()
		defer mu.Unlock()
		if err := draw(w, total); err != nil {
			plog.Warningf("drawing progress: %v", err)
		}
		if w >= total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
