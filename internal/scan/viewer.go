// Package scan drives the QR scan view: a camera feeding decoded text into
// the payload parser, with manual text entry as a fallback.
package scan

import (
	"context"
	"errors"
	"sync"

	"github.com/qrgate/portal/internal/qr"
)

type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

type State string

const (
	StateIdle     State = "idle"
	StateDecoding State = "decoding"
	StateParsed   State = "parsed"
	StateUnparsed State = "unparsed"
)

// ErrNoCamera is returned by Start when the viewer has no camera.
var ErrNoCamera = errors.New("no camera available")

// Stream is an acquired camera handle.
type Stream interface {
	Stop() error
}

// Camera acquires a stream that calls onDecode for every decoded frame.
// onDecode may be called from another goroutine.
type Camera interface {
	Open(ctx context.Context, facing Facing, onDecode func(text string)) (Stream, error)
}

// Snapshot is the viewer's visible state.
type Snapshot struct {
	State        State    `json:"state"`
	Facing       Facing   `json:"facing"`
	CameraActive bool     `json:"cameraActive"`
	Raw          string   `json:"raw,omitempty"`
	Scan         *qr.Scan `json:"scan,omitempty"`
	Message      string   `json:"message,omitempty"`
}

// Viewer holds at most one camera stream at a time.
type Viewer struct {
	camera   Camera
	onChange func(Snapshot)

	mu       sync.Mutex
	facing   Facing
	stream   Stream
	starting bool
	state    State
	raw      string
	scan     *qr.Scan
	message  string
}

// NewViewer returns an idle viewer facing the environment. onChange, when
// non-nil, receives a snapshot after every decode.
func NewViewer(camera Camera, onChange func(Snapshot)) *Viewer {
	return &Viewer{
		camera:   camera,
		onChange: onChange,
		facing:   FacingEnvironment,
		state:    StateIdle,
	}
}

// Start acquires the camera for the current facing, stopping any stream it
// already holds first. On failure the error is kept as the visible message
// and manual entry keeps working.
func (v *Viewer) Start(ctx context.Context) error {
	v.mu.Lock()
	if v.starting {
		v.mu.Unlock()
		return nil
	}
	v.starting = true
	old := v.stream
	v.stream = nil
	facing := v.facing
	v.mu.Unlock()

	if old != nil {
		_ = old.Stop()
	}

	var (
		s   Stream
		err error
	)
	if v.camera == nil {
		err = ErrNoCamera
	} else {
		s, err = v.camera.Open(ctx, facing, v.HandleDecoded)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.starting = false
	if err != nil {
		v.message = err.Error()
		return err
	}
	v.stream = s
	if v.state == StateIdle {
		v.state = StateDecoding
	}
	return nil
}

// ToggleFacing switches between the rear and front camera and reacquires.
func (v *Viewer) ToggleFacing(ctx context.Context) error {
	v.mu.Lock()
	if v.facing == FacingEnvironment {
		v.facing = FacingUser
	} else {
		v.facing = FacingEnvironment
	}
	v.mu.Unlock()
	return v.Start(ctx)
}

// Stop releases the camera.
func (v *Viewer) Stop() error {
	v.mu.Lock()
	s := v.stream
	v.stream = nil
	if v.state == StateDecoding {
		v.state = StateIdle
	}
	v.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Stop()
}

// HandleDecoded parses text from the camera. Every call re-parses; the
// stream is not paused after a successful read.
func (v *Viewer) HandleDecoded(text string) {
	scan, err := qr.ParseScan(text)

	v.mu.Lock()
	v.raw = text
	v.message = ""
	if err != nil {
		v.scan = nil
		v.message = err.Error()
		v.state = StateUnparsed
	} else {
		v.scan = &scan
		v.state = StateParsed
	}
	snap := v.snapshotLocked()
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(snap)
	}
}

// Manual feeds typed or pasted text through the same parser.
func (v *Viewer) Manual(text string) {
	v.HandleDecoded(text)
}

func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *Viewer) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        v.state,
		Facing:       v.facing,
		CameraActive: v.stream != nil,
		Raw:          v.raw,
		Message:      v.message,
	}
	if v.scan != nil {
		s := *v.scan
		snap.Scan = &s
	}
	return snap
}
