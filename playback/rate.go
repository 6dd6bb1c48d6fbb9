package playback

import "github.com/gopxl/beep/v2"

// rate plays the wrapped streamer at an adjustable multiple of real
// time, interpolating linearly between neighbouring frames. It holds
// at most one frame of lookahead, so streamers dropped upstream fall
// silent within a frame and pull-path callbacks below it keep firing
// on the output cadence.
type rate struct {
	s          beep.Streamer
	ratio      float64
	pos        float64 // fractional position between prev and next
	prev, next [2]float64
	primed     bool
}

func newRate(ratio float64, s beep.Streamer) *rate {
	return &rate{s: s, ratio: ratio}
}

// Ratio returns the current playback rate multiplier.
func (r *rate) Ratio() float64 {
	return r.ratio
}

// SetRatio changes the playback rate multiplier from the next frame on.
func (r *rate) SetRatio(ratio float64) {
	r.ratio = ratio
}

// reset discards the buffered lookahead frame.
func (r *rate) reset() {
	r.primed = false
	r.pos = 0
}

func (r *rate) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if !r.primed {
			if !r.pull(&r.prev) {
				return i, i > 0
			}
			if !r.pull(&r.next) {
				r.next = r.prev
			}
			r.primed = true
		}
		for r.pos >= 1 {
			r.prev = r.next
			if !r.pull(&r.next) {
				return i, i > 0
			}
			r.pos--
		}
		samples[i][0] = r.prev[0] + (r.next[0]-r.prev[0])*r.pos
		samples[i][1] = r.prev[1] + (r.next[1]-r.prev[1])*r.pos
		r.pos += r.ratio
	}
	return len(samples), true
}

func (r *rate) pull(frame *[2]float64) bool {
	var buf [1][2]float64
	if n, _ := r.s.Stream(buf[:]); n == 0 {
		return false
	}
	*frame = buf[0]
	return true
}

func (r *rate) Err() error {
	return r.s.Err()
}
