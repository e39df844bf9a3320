package util

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"github.com/schollz/progressbar/v3"
)

const (
	progressPrefixWidth = 52
	progressBarWidth    = 32
)

// ProgressLogger tracks and renders progress for batch, row and byte counts
// of one table being written.
type ProgressLogger struct {
	totalBatches int
	action       string
	interval     time.Duration
	batches      atomic.Int32
	rows         atomic.Int64
	bytes        atomic.Int64
	bar          *progressbar.ProgressBar

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewProgressLogger creates and starts a progress logger for totalBatches
// batches of work.
func NewProgressLogger(totalBatches int, action string, interval time.Duration) *ProgressLogger {
	p := &ProgressLogger{
		totalBatches: totalBatches,
		action:       action,
		interval:     interval,
	}
	p.start()
	return p
}

// UpdateBytes increments the byte counter.
func (p *ProgressLogger) UpdateBytes(delta int64) {
	if p == nil || delta == 0 {
		return
	}
	p.bytes.Add(delta)
}

// UpdateBatch records one completed batch of rows.
func (p *ProgressLogger) UpdateBatch(rows int64) {
	if p == nil {
		return
	}
	p.rows.Add(rows)
	p.batches.Add(1)
}

// Finish stops the render goroutine. Safe to call more than once, and after
// the goroutine has already completed on its own.
func (p *ProgressLogger) Finish() {
	if p == nil || p.done == nil {
		return
	}
	p.stopOnce.Do(func() { close(p.done) })
}

// Snapshot returns the current row and byte counts.
func (p *ProgressLogger) Snapshot() (int64, int64) {
	if p == nil {
		return 0, 0
	}
	return p.rows.Load(), p.bytes.Load()
}

func (p *ProgressLogger) start() {
	if p.totalBatches <= 0 {
		return
	}

	p.bar = NewBatchProgressBar(p.totalBatches, p.action)
	p.done = make(chan struct{})
	p.stopped = make(chan struct{})

	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		prevBatches := int64(p.batches.Load())
		prevBytes := p.bytes.Load()
		prevTime := time.Now()
		lastDesc := ""

		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
			}

			curBatches := int64(p.batches.Load())
			curRows := p.rows.Load()
			curBytes := p.bytes.Load()
			now := time.Now()
			elapsed := now.Sub(prevTime).Seconds()

			batchesDelta := max(curBatches-prevBatches, 0)
			bytesPerSec := progressRate(curBytes-prevBytes, elapsed)
			desc := progressDescription(p.action, curRows, curBytes, bytesPerSec)
			if desc != lastDesc {
				p.bar.Describe(desc)
				lastDesc = desc
			}
			if batchesDelta > 0 {
				_ = p.bar.Add64(batchesDelta)
			}

			prevBatches = curBatches
			prevBytes = curBytes
			prevTime = now

			if int(curBatches) >= p.totalBatches {
				_ = p.bar.Finish()
				return
			}
		}
	}()
}

func progressRate(delta int64, elapsedSeconds float64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(delta) / elapsedSeconds
}

// NewBatchProgressBar creates a themed progress bar for batch-based work.
func NewBatchProgressBar(totalBatches int, action string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		totalBatches,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(progressDescription(action, 0, 0, 0)),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stdout)
		}),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[light_magenta]━",
			SaucerHead:    "[light_magenta]╸",
			SaucerPadding: "[dark_gray]━",
			BarStart:      "",
			BarEnd:        "[reset]",
		}),
	)
}

func progressDescription(action string, rows, bytes int64, bytesPerSec float64) string {
	prefix := fmt.Sprintf(
		"%s %s rows, %s (%s/s)",
		action,
		HumanCount(rows),
		units.BytesSize(float64(bytes)),
		units.BytesSize(bytesPerSec),
	)
	return padOrTrim(prefix, progressPrefixWidth) + " "
}

// HumanCount renders a row count like "10.0M".
func HumanCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func padOrTrim(s string, width int) string {
	if width <= 0 {
		return s
	}
	if len(s) > width {
		if width <= 3 {
			return s[:width]
		}
		return s[:width-3] + "..."
	}
	if len(s) < width {
		return s + strings.Repeat(" ", width-len(s))
	}
	return s
}
