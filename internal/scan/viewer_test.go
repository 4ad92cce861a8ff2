package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/qrgate/portal/internal/qr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	mu      sync.Mutex
	events  []string
	open    int
	failing error
	decode  func(string)
}

type fakeStream struct {
	cam    *fakeCamera
	facing Facing
}

func (s *fakeStream) Stop() error {
	s.cam.mu.Lock()
	defer s.cam.mu.Unlock()
	s.cam.open--
	s.cam.events = append(s.cam.events, "stop:"+string(s.facing))
	return nil
}

func (c *fakeCamera) Open(_ context.Context, facing Facing, onDecode func(string)) (Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing != nil {
		return nil, c.failing
	}
	c.open++
	if c.open > 1 {
		return nil, errors.New("two camera handles")
	}
	c.events = append(c.events, "open:"+string(facing))
	c.decode = onDecode
	return &fakeStream{cam: c, facing: facing}, nil
}

func TestViewer_StartAndDecode(t *testing.T) {
	cam := &fakeCamera{}
	v := NewViewer(cam, nil)
	assert.Equal(t, StateIdle, v.Snapshot().State)

	require.NoError(t, v.Start(context.Background()))
	snap := v.Snapshot()
	assert.Equal(t, StateDecoding, snap.State)
	assert.True(t, snap.CameraActive)

	cam.decode(`{"v":1,"phone":"010","token":"t"}`)
	snap = v.Snapshot()
	assert.Equal(t, StateParsed, snap.State)
	require.NotNil(t, snap.Scan)
	assert.Equal(t, qr.Scan{Phone: "010", Token: "t", Resident: true}, *snap.Scan)

	cam.decode("garbage")
	snap = v.Snapshot()
	assert.Equal(t, StateUnparsed, snap.State)
	assert.Nil(t, snap.Scan)
	assert.Equal(t, qr.ErrNotJSON.Error(), snap.Message)
	assert.Equal(t, "garbage", snap.Raw)

	cam.decode(`{"tel":"011"}`)
	snap = v.Snapshot()
	assert.Equal(t, StateParsed, snap.State)
	assert.Empty(t, snap.Message)
}

func TestViewer_ToggleStopsBeforeReopening(t *testing.T) {
	cam := &fakeCamera{}
	v := NewViewer(cam, nil)

	require.NoError(t, v.Start(context.Background()))
	require.NoError(t, v.ToggleFacing(context.Background()))
	require.NoError(t, v.ToggleFacing(context.Background()))
	require.NoError(t, v.Stop())

	assert.Equal(t, []string{
		"open:environment",
		"stop:environment",
		"open:user",
		"stop:user",
		"open:environment",
		"stop:environment",
	}, cam.events)
	assert.Equal(t, 0, cam.open)
	assert.Equal(t, StateIdle, v.Snapshot().State)
}

func TestViewer_AcquireFailureKeepsManualEntry(t *testing.T) {
	cam := &fakeCamera{failing: errors.New("permission denied")}
	var seen []Snapshot
	v := NewViewer(cam, func(s Snapshot) { seen = append(seen, s) })

	err := v.Start(context.Background())
	require.Error(t, err)
	snap := v.Snapshot()
	assert.Equal(t, "permission denied", snap.Message)
	assert.False(t, snap.CameraActive)
	assert.Equal(t, StateIdle, snap.State)

	v.Manual(`{"phone":"010"}`)
	snap = v.Snapshot()
	assert.Equal(t, StateParsed, snap.State)
	assert.Empty(t, snap.Message)
	require.Len(t, seen, 1)
	assert.True(t, seen[0].Scan.Resident)
}

func TestViewer_NoCamera(t *testing.T) {
	v := NewViewer(nil, nil)
	require.ErrorIs(t, v.Start(context.Background()), ErrNoCamera)
	v.Manual(`{"token":"only"}`)
	snap := v.Snapshot()
	require.NotNil(t, snap.Scan)
	assert.False(t, snap.Scan.Resident)
}

func TestFrameCamera_ReplaysFrames(t *testing.T) {
	dir := t.TempDir()
	payload := qr.NewPayload("01000000000", "tok-1")
	png, err := qr.EncodePNG(payload.String())
	require.NoError(t, err)

	good := filepath.Join(dir, "good.png")
	require.NoError(t, os.WriteFile(good, png, 0o600))
	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o600))

	cam := NewFrameCamera([]string{junk, good}, 0)
	var (
		mu    sync.Mutex
		texts []string
	)
	v := NewViewer(cam, func(s Snapshot) {
		mu.Lock()
		texts = append(texts, s.Raw)
		mu.Unlock()
	})

	require.NoError(t, v.Start(context.Background()))
	cam.Wait()
	require.NoError(t, v.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{payload.String()}, texts)
	assert.Equal(t, StateParsed, v.Snapshot().State)
}

func TestFrameCamera_MissingFileFailsAcquire(t *testing.T) {
	cam := NewFrameCamera([]string{filepath.Join(t.TempDir(), "missing.png")}, 0)
	v := NewViewer(cam, nil)

	require.Error(t, v.Start(context.Background()))
	assert.Contains(t, v.Snapshot().Message, "missing.png")
}
