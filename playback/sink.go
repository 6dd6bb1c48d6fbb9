package playback

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
)

// Resampler quality used for sample rate conversion on append.
const resampleQuality = 4

// Sink is a queued playback endpoint bound to a single output stream.
// Appended streamers play in FIFO order through a shared speed, volume
// and pause chain. All methods are safe for concurrent use.
//
// A Sink that has been detached must not be used again; doing so panics.
type Sink struct {
	mu       sync.RWMutex
	stream   Stream
	queue    *Queue
	speed    *rate
	volume   *effects.Volume
	ctrl     *beep.Ctrl
	gain     float64
	detached bool
}

// New creates a Sink attached to stream. The error from attaching is
// returned unchanged; on failure nothing is left playing.
func New(stream Stream) (*Sink, error) {
	queue := &Queue{}
	speed := newRate(1, queue)
	volume := &effects.Volume{Streamer: speed, Base: 2, Volume: 0}
	ctrl := &beep.Ctrl{Streamer: volume}
	if err := stream.Play(ctrl); err != nil {
		return nil, err
	}
	return &Sink{
		stream: stream,
		queue:  queue,
		speed:  speed,
		volume: volume,
		ctrl:   ctrl,
		gain:   1,
	}, nil
}

// Append adds src to the back of the queue. It starts playing once
// everything appended before it has drained.
func (s *Sink) Append(src beep.Streamer) {
	stream := s.acquire()
	stream.Lock()
	s.queue.Add(src)
	stream.Unlock()
}

// AppendFormat is Append for streamers recorded at a different sample
// rate than the output stream; src is resampled to the stream rate.
func (s *Sink) AppendFormat(format beep.Format, src beep.Streamer) {
	stream := s.acquire()
	if format.SampleRate != stream.SampleRate() {
		src = beep.Resample(resampleQuality, format.SampleRate, stream.SampleRate(), src)
	}
	stream.Lock()
	s.queue.Add(src)
	stream.Unlock()
}

// Volume returns the current gain multiplier. 1 is unfiltered input.
func (s *Sink) Volume() float64 {
	stream := s.acquire()
	stream.Lock()
	defer stream.Unlock()
	return s.gain
}

// SetVolume multiplies all future samples by gain. 0 silences the
// sink; negative gains are clamped to 0.
func (s *Sink) SetVolume(gain float64) {
	if gain < 0 {
		gain = 0
	}
	stream := s.acquire()
	stream.Lock()
	s.gain = gain
	s.volume.Silent = gain == 0
	if gain > 0 {
		s.volume.Volume = math.Log2(gain)
	}
	stream.Unlock()
}

// Speed returns the current playback rate multiplier. 1 is real time.
func (s *Sink) Speed() float64 {
	stream := s.acquire()
	stream.Lock()
	defer stream.Unlock()
	return s.speed.Ratio()
}

// SetSpeed plays future samples at rate times real time.
func (s *Sink) SetSpeed(rate float64) {
	stream := s.acquire()
	stream.Lock()
	s.speed.SetRatio(rate)
	stream.Unlock()
}

// Play resumes a paused sink. No effect if not paused.
func (s *Sink) Play() {
	stream := s.acquire()
	stream.Lock()
	s.ctrl.Paused = false
	stream.Unlock()
}

// Pause suspends playback, keeping the queue. The stream receives
// silence until Play is called. No effect if already paused.
func (s *Sink) Pause() {
	stream := s.acquire()
	stream.Lock()
	s.ctrl.Paused = true
	stream.Unlock()
}

// IsPaused reports whether the sink is paused.
func (s *Sink) IsPaused() bool {
	stream := s.acquire()
	stream.Lock()
	defer stream.Unlock()
	return s.ctrl.Paused
}

// Clear drops all queued streamers and pauses the sink. Nothing of the
// dropped streamers is heard afterwards, including the speed stage's
// lookahead.
func (s *Sink) Clear() {
	stream := s.acquire()
	stream.Lock()
	s.queue.Clear()
	s.speed.reset()
	s.ctrl.Paused = true
	stream.Unlock()
}

// Stop drops all queued streamers. Unlike Clear it leaves the sink
// playing, so later appends start immediately.
func (s *Sink) Stop() {
	stream := s.acquire()
	stream.Lock()
	s.queue.Clear()
	s.speed.reset()
	stream.Unlock()
}

// Detach relinquishes control of the sink. Queued streamers keep
// playing on the stream to their natural end; the Sink must not be
// used afterwards.
func (s *Sink) Detach() {
	s.mu.Lock()
	s.detached = true
	s.stream = nil
	s.mu.Unlock()
}

// Detached reports whether Detach has been called.
func (s *Sink) Detached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detached
}

// SampleRate returns the sample rate of the attached stream.
func (s *Sink) SampleRate() beep.SampleRate {
	return s.acquire().SampleRate()
}

// SleepUntilEnd blocks until every queued streamer has drained. A sink
// that is paused with a non-empty queue blocks until it is resumed and
// drains, or until the queue is cleared.
func (s *Sink) SleepUntilEnd() {
	stream := s.acquire()
	stream.Lock()
	ch := s.queue.Wait()
	stream.Unlock()
	<-ch
}

// Empty reports whether the queue is empty.
func (s *Sink) Empty() bool {
	return s.Len() == 0
}

// Len returns the number of streamers waiting in the queue, including
// the one currently playing.
func (s *Sink) Len() int {
	stream := s.acquire()
	stream.Lock()
	defer stream.Unlock()
	return s.queue.Len()
}

func (s *Sink) acquire() Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.detached {
		panic("playback: use of detached Sink")
	}
	return s.stream
}
