package playback

import (
	"time"

	"github.com/gopxl/beep/v2"
)

// PeriodicAccess wraps s so that access runs inline with the audio pull,
// at most once per interval. The very first pull always triggers it, so
// a freshly appended streamer is refreshed before its first sample.
//
// access receives the wrapped streamer and executes inside the device
// callback chain: it must be cheap, non-blocking and non-allocating.
// The interval is best effort; a tick can land late by up to one audio
// block, never early.
func PeriodicAccess(s beep.Streamer, interval time.Duration, access func(beep.Streamer)) beep.Streamer {
	return &periodic{s: s, interval: interval, access: access}
}

type periodic struct {
	s        beep.Streamer
	interval time.Duration
	access   func(beep.Streamer)
	last     time.Time
}

func (p *periodic) Stream(samples [][2]float64) (n int, ok bool) {
	if now := time.Now(); p.last.IsZero() || now.Sub(p.last) >= p.interval {
		p.access(p.s)
		p.last = now
	}
	return p.s.Stream(samples)
}

func (p *periodic) Err() error {
	return p.s.Err()
}
