// Package telemetry traces resource processing with OpenTelemetry and forwards it to a renderer.
package telemetry

import (
	"bytes"
	"sync"
	"time"

	"go.trai.ch/zerr"
)

const (
	// DefaultChunkSize is how many bytes of installer output are held before delivery.
	DefaultChunkSize = 4096
	// DefaultChunkInterval is the longest installer output waits before delivery.
	DefaultChunkInterval = 50 * time.Millisecond
)

// ErrOutputClosed is returned by Write once the resource span has ended.
var ErrOutputClosed = zerr.New("installer output is closed")

// LogBatcher groups the installer output of one resource into chunks so the
// renderer receives a few larger writes instead of one per line.
// It is safe for concurrent use.
type LogBatcher struct {
	chunkSize int
	interval  time.Duration
	deliver   func([]byte)

	mu      sync.Mutex
	pending bytes.Buffer
	ticker  *time.Ticker
	done    chan struct{}
	closed  bool
}

// NewLogBatcher starts a batcher that hands chunks to deliver.
// Non-positive limits fall back to DefaultChunkSize and DefaultChunkInterval.
// Close stops its background ticker.
func NewLogBatcher(chunkSize int, interval time.Duration, deliver func([]byte)) *LogBatcher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if interval <= 0 {
		interval = DefaultChunkInterval
	}

	b := &LogBatcher{
		chunkSize: chunkSize,
		interval:  interval,
		deliver:   deliver,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

// Write appends installer output and delivers it once a full chunk is pending.
func (b *LogBatcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrOutputClosed
	}

	n, _ := b.pending.Write(p)
	if b.pending.Len() >= b.chunkSize {
		b.deliverLocked()
		b.ticker.Reset(b.interval)
	}
	return n, nil
}

// Flush delivers whatever output is pending.
func (b *LogBatcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.deliverLocked()
	}
}

// Close delivers the remaining output and stops the ticker. Closing twice is a no-op.
func (b *LogBatcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	b.deliverLocked()
	return nil
}

func (b *LogBatcher) loop() {
	defer b.ticker.Stop()
	for {
		select {
		case <-b.ticker.C:
			b.Flush()
		case <-b.done:
			return
		}
	}
}

// deliverLocked runs deliver under mu, so chunks of one resource reach the renderer in order.
func (b *LogBatcher) deliverLocked() {
	if b.pending.Len() == 0 {
		return
	}
	chunk := bytes.Clone(b.pending.Bytes())
	b.pending.Reset()
	if b.deliver != nil {
		b.deliver(chunk)
	}
}
