package scan

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/qrgate/portal/internal/qr"
)

// FrameCamera replays still images as camera frames. Frames without a
// readable code are skipped silently.
type FrameCamera struct {
	paths    []string
	interval time.Duration

	mu   sync.Mutex
	last *frameStream
}

func NewFrameCamera(paths []string, interval time.Duration) *FrameCamera {
	return &FrameCamera{paths: paths, interval: interval}
}

// Open reads every frame up front; an unreadable file fails acquisition.
func (c *FrameCamera) Open(ctx context.Context, _ Facing, onDecode func(text string)) (Stream, error) {
	frames := make([][]byte, 0, len(c.paths))
	for _, p := range c.paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("open frame %s: %w", p, err)
		}
		frames = append(frames, b)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &frameStream{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		for i, frame := range frames {
			if i > 0 && c.interval > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.interval):
				}
			}
			if ctx.Err() != nil {
				return
			}
			if text, err := qr.DecodeBytes(frame); err == nil {
				onDecode(text)
			}
		}
	}()

	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
	return s, nil
}

// Wait blocks until the most recently opened stream has replayed every frame
// or been stopped.
func (c *FrameCamera) Wait() {
	c.mu.Lock()
	s := c.last
	c.mu.Unlock()
	if s != nil {
		<-s.done
	}
}

type frameStream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *frameStream) Stop() error {
	s.cancel()
	<-s.done
	return nil
}
