package playback

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Stream is an open audio output to which streamer chains can be attached.
//
// Lock and Unlock serialize access against the stream's pull loop: any
// mutation of an attached streamer must happen between them. Keep the
// critical sections short to avoid playback glitches.
type Stream interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer) error
	Lock()
	Unlock()
}

// SpeakerStream plays through the machine speakers via beep's speaker
// package. There is at most one open speaker per process.
type SpeakerStream struct {
	sampleRate beep.SampleRate
	closed     bool
}

// OpenSpeaker initializes the speaker at the given sample rate with the
// given buffer length. A bigger buffer means more reliable playback, a
// smaller one means lower latency.
func OpenSpeaker(sampleRate beep.SampleRate, buffer time.Duration) (*SpeakerStream, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(buffer)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	return &SpeakerStream{sampleRate: sampleRate}, nil
}

func (s *SpeakerStream) SampleRate() beep.SampleRate { return s.sampleRate }

// Play attaches st to the speaker. st keeps playing until it drains or
// the stream is closed.
func (s *SpeakerStream) Play(st beep.Streamer) error {
	if s.closed {
		return ErrStreamClosed
	}
	speaker.Play(st)
	return nil
}

func (s *SpeakerStream) Lock()   { speaker.Lock() }
func (s *SpeakerStream) Unlock() { speaker.Unlock() }

// Close stops playback and releases the speaker. Further Play calls
// return ErrStreamClosed.
func (s *SpeakerStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	speaker.Clear()
	speaker.Close()
	return nil
}
