package spatial

import (
	"math"

	"github.com/gopxl/beep/v2"
)

// Panner spatializes a wrapped streamer: each frame is downmixed to
// mono and weighted per ear by the distance between the emitter and
// that ear. It drains when the wrapped streamer drains.
//
// SetPositions must only be called from the goroutine that streams
// from the Panner. In a Sink that is the periodic refresh running on
// the audio pull path, so the gain fields need no locking.
type Panner struct {
	s           beep.Streamer
	left, right float64
}

// NewPanner wraps s with the given initial positions.
func NewPanner(s beep.Streamer, emitter, leftEar, rightEar Vec3) *Panner {
	p := &Panner{s: s}
	p.SetPositions(emitter, leftEar, rightEar)
	return p
}

// SetPositions installs a new position triple. It takes effect on
// samples produced after the call.
//
// Each ear's gain is an inverse square attenuation over its distance
// to the emitter, capped at unity inside the unit sphere, times a
// balance cue that favors the nearer ear. Equidistant ears (including
// an emitter coincident with both) get the neutral balance on both
// channels, so the output is channel-symmetric.
func (p *Panner) SetPositions(emitter, leftEar, rightEar Vec3) {
	leftDist := dist(leftEar, emitter)
	rightDist := dist(rightEar, emitter)
	earSpan := dist(leftEar, rightEar)

	leftBalance, rightBalance := 0.75, 0.75
	if earSpan > 0 {
		leftBalance = math.Min(((rightDist-leftDist)/earSpan+1)/4+0.5, 1)
		rightBalance = math.Min(((leftDist-rightDist)/earSpan+1)/4+0.5, 1)
	}

	leftAtt := math.Min(1/(leftDist*leftDist), 1)
	rightAtt := math.Min(1/(rightDist*rightDist), 1)

	p.left = leftBalance * leftAtt
	p.right = rightBalance * rightAtt
}

func (p *Panner) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = p.s.Stream(samples)
	for i := range samples[:n] {
		m := (samples[i][0] + samples[i][1]) / 2
		samples[i][0] = m * p.left
		samples[i][1] = m * p.right
	}
	return n, ok
}

func (p *Panner) Err() error {
	return p.s.Err()
}
