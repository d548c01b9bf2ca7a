package playback

import (
	"errors"
	"sync"

	"github.com/cliniquerisimed-lab/jongwane/internal/logger"
)

var ErrNoAudio = errors.New("no audio to play")

// Device is a single-use output: started once, stopped once.
type Device interface {
	Start(buf *Buffer) error
	Stop() error
}

// DeviceFactory acquires a fresh device for every Play.
type DeviceFactory func() (Device, error)

// Controller keeps at most one buffer audible. Play always stops the
// previous device before the next one is acquired.
type Controller struct {
	mu        sync.Mutex
	newDevice DeviceFactory
	device    Device
	current   *Buffer
	log       logger.Logger
}

func NewController(factory DeviceFactory, log logger.Logger) *Controller {
	if factory == nil {
		factory = func() (Device, error) { return DiscardDevice{}, nil }
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{newDevice: factory, log: log}
}

func (c *Controller) Play(buf *Buffer) error {
	if buf == nil || len(buf.PCM) == 0 {
		return ErrNoAudio
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()

	device, err := c.newDevice()
	if err != nil {
		c.log.Error("playback", "acquire device failed", map[string]any{"error": err.Error()})
		return err
	}
	if err := device.Start(buf); err != nil {
		_ = device.Stop()
		c.log.Error("playback", "start failed", map[string]any{"error": err.Error()})
		return err
	}
	c.device = device
	c.current = buf
	c.log.Debug("playback", "started", map[string]any{"duration_ms": buf.Duration().Milliseconds()})
	return nil
}

// Stop halts the active stream, if any. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// StopBuffer stops playback only when buf is the active stream.
func (c *Controller) StopBuffer(buf *Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf == nil || c.current != buf {
		return false
	}
	c.stopLocked()
	return true
}

// Current returns the buffer most recently started and not yet stopped.
func (c *Controller) Current() *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) stopLocked() {
	if c.device == nil {
		return
	}
	if err := c.device.Stop(); err != nil {
		c.log.Warn("playback", "stop failed", map[string]any{"error": err.Error()})
	}
	c.device = nil
	c.current = nil
}
