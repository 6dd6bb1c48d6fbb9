// Package audiotest provides fake output streams and streamers for
// tests, so no audio device is needed.
package audiotest

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// PumpStream implements playback.Stream without a device. Tests call
// Pull to play the role of the device callback and drive the attached
// streamer chain.
type PumpStream struct {
	mu      sync.Mutex
	sr      beep.SampleRate
	root    beep.Streamer
	PlayErr error // returned by Play when set, for failure tests
}

// NewPumpStream creates a manual stream at the given sample rate.
func NewPumpStream(sr beep.SampleRate) *PumpStream {
	return &PumpStream{sr: sr}
}

func (p *PumpStream) SampleRate() beep.SampleRate { return p.sr }

func (p *PumpStream) Play(s beep.Streamer) error {
	if p.PlayErr != nil {
		return p.PlayErr
	}
	p.mu.Lock()
	p.root = s
	p.mu.Unlock()
	return nil
}

func (p *PumpStream) Lock()   { p.mu.Lock() }
func (p *PumpStream) Unlock() { p.mu.Unlock() }

// Attached reports whether a streamer chain has been attached.
func (p *PumpStream) Attached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.root != nil
}

// Pull streams n frames through the attached chain under the stream
// lock, like a device callback would, and returns them.
func (p *PumpStream) Pull(n int) [][2]float64 {
	buf := make([][2]float64, n)
	p.mu.Lock()
	p.root.Stream(buf)
	p.mu.Unlock()
	return buf
}

// Const streams a fixed number of frames of a constant stereo value,
// then drains.
type Const struct {
	L, R      float64
	Remaining int
}

// NewConst creates a constant streamer holding value on both channels
// for frames frames.
func NewConst(value float64, frames int) *Const {
	return &Const{L: value, R: value, Remaining: frames}
}

func (c *Const) Stream(samples [][2]float64) (n int, ok bool) {
	if c.Remaining <= 0 {
		return 0, false
	}
	n = len(samples)
	if n > c.Remaining {
		n = c.Remaining
	}
	for i := range samples[:n] {
		samples[i] = [2]float64{c.L, c.R}
	}
	c.Remaining -= n
	return n, true
}

func (c *Const) Err() error { return nil }
