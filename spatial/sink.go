package spatial

import (
	"sync"
	"time"

	"auralis/playback"

	"github.com/gopxl/beep/v2"
)

// Position updates reach playing streamers on their next refresh tick,
// at most updateInterval plus one audio block after the write.
const updateInterval = 10 * time.Millisecond

// soundPositions is the position triple shared between a Sink and the
// periodic refresh of every streamer it has appended. Both sides hold
// the lock for three vector copies and never allocate under it, so the
// audio pull path is only ever blocked for that long.
type soundPositions struct {
	mu       sync.Mutex
	emitter  Vec3
	leftEar  Vec3
	rightEar Vec3
}

func (sp *soundPositions) snapshot() (emitter, leftEar, rightEar Vec3) {
	sp.mu.Lock()
	emitter, leftEar, rightEar = sp.emitter, sp.leftEar, sp.rightEar
	sp.mu.Unlock()
	return emitter, leftEar, rightEar
}

// Sink queues streamers for spatialized playback between an emitter
// and the listener's two ears. Positions may be moved at any time,
// including while streamers play; everything else forwards to a
// playback.Sink.
type Sink struct {
	sink *playback.Sink
	pos  *soundPositions
}

// NewSink creates a spatial sink on stream with the given initial
// positions. The error from attaching to the stream is returned
// unchanged.
func NewSink(stream playback.Stream, emitter, leftEar, rightEar Vec3) (*Sink, error) {
	sink, err := playback.New(stream)
	if err != nil {
		return nil, err
	}
	return &Sink{
		sink: sink,
		pos:  &soundPositions{emitter: emitter, leftEar: leftEar, rightEar: rightEar},
	}, nil
}

// SetEmitterPosition moves the sound emitter.
func (s *Sink) SetEmitterPosition(pos Vec3) {
	s.ensureAttached()
	s.pos.mu.Lock()
	s.pos.emitter = pos
	s.pos.mu.Unlock()
}

// SetLeftEarPosition moves the listener's left ear.
func (s *Sink) SetLeftEarPosition(pos Vec3) {
	s.ensureAttached()
	s.pos.mu.Lock()
	s.pos.leftEar = pos
	s.pos.mu.Unlock()
}

// SetRightEarPosition moves the listener's right ear.
func (s *Sink) SetRightEarPosition(pos Vec3) {
	s.ensureAttached()
	s.pos.mu.Lock()
	s.pos.rightEar = pos
	s.pos.mu.Unlock()
}

func (s *Sink) ensureAttached() {
	if s.sink.Detached() {
		panic("spatial: use of detached Sink")
	}
}

// Append queues src for spatialized playback. The streamer starts out
// with the positions current at the call and is refreshed from then on
// every tick, inline with the audio pull.
func (s *Sink) Append(src beep.Streamer) {
	s.sink.Append(s.spatialize(src))
}

// AppendFormat is Append for streamers recorded at a different sample
// rate than the output stream.
func (s *Sink) AppendFormat(format beep.Format, src beep.Streamer) {
	// Rate conversion happens inside the spatial chain, so frames the
	// converter reads ahead still get their gains at pull time.
	if sr := s.sink.SampleRate(); format.SampleRate != sr {
		src = beep.Resample(4, format.SampleRate, sr, src)
	}
	s.sink.Append(s.spatialize(src))
}

func (s *Sink) spatialize(src beep.Streamer) beep.Streamer {
	// The refresh closure takes its own reference to the positions so
	// that a queued streamer keeps tracking them even after Detach.
	pos := s.pos
	emitter, leftEar, rightEar := pos.snapshot()
	panner := NewPanner(src, emitter, leftEar, rightEar)
	return playback.PeriodicAccess(panner, updateInterval, func(beep.Streamer) {
		panner.SetPositions(pos.snapshot())
	})
}

// Volume returns the current gain multiplier. 1 is unfiltered input.
func (s *Sink) Volume() float64 {
	return s.sink.Volume()
}

// SetVolume multiplies all future samples by gain. 0 silences the
// sink; negative gains are clamped to 0.
func (s *Sink) SetVolume(gain float64) {
	s.sink.SetVolume(gain)
}

// Speed returns the current playback rate multiplier. 1 is real time.
func (s *Sink) Speed() float64 {
	return s.sink.Speed()
}

// SetSpeed plays future samples at rate times real time.
func (s *Sink) SetSpeed(rate float64) {
	s.sink.SetSpeed(rate)
}

// Play resumes a paused sink. No effect if not paused.
func (s *Sink) Play() {
	s.sink.Play()
}

// Pause suspends playback, keeping the queue. No effect if already
// paused.
func (s *Sink) Pause() {
	s.sink.Pause()
}

// IsPaused reports whether the sink is paused.
func (s *Sink) IsPaused() bool {
	return s.sink.IsPaused()
}

// Clear drops all queued streamers and pauses the sink.
func (s *Sink) Clear() {
	s.sink.Clear()
}

// Stop drops all queued streamers without pausing.
func (s *Sink) Stop() {
	s.sink.Stop()
}

// Detach relinquishes control of the sink. Queued streamers keep
// playing, and keep tracking position writes made before the detach;
// the Sink must not be used afterwards.
func (s *Sink) Detach() {
	s.sink.Detach()
}

// SleepUntilEnd blocks until every queued streamer has drained.
func (s *Sink) SleepUntilEnd() {
	s.sink.SleepUntilEnd()
}

// Empty reports whether the queue is empty.
func (s *Sink) Empty() bool {
	return s.sink.Empty()
}

// Len returns the number of streamers waiting in the queue, including
// the one currently playing.
func (s *Sink) Len() int {
	return s.sink.Len()
}
