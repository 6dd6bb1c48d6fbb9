package playback

import (
	"errors"
	"math"
	"testing"
	"time"

	"auralis/internal/audiotest"

	"github.com/gopxl/beep/v2"
)

func newTestSink(t *testing.T) (*Sink, *audiotest.PumpStream) {
	t.Helper()
	stream := audiotest.NewPumpStream(44100)
	sink, err := New(stream)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return sink, stream
}

func frameEnergy(frames [][2]float64) (left, right float64) {
	for _, f := range frames {
		left += f[0] * f[0]
		right += f[1] * f[1]
	}
	return left, right
}

func TestNewPropagatesStreamError(t *testing.T) {
	t.Parallel()

	stream := audiotest.NewPumpStream(44100)
	stream.PlayErr = ErrStreamClosed

	sink, err := New(stream)
	if !errors.Is(err, ErrStreamClosed) {
		t.Fatalf("New() error = %v, want ErrStreamClosed", err)
	}
	if sink != nil {
		t.Errorf("New() sink = %v, want nil", sink)
	}
	if stream.Attached() {
		t.Error("failed New() left a streamer attached")
	}
}

func TestLenAndEmpty(t *testing.T) {
	t.Parallel()

	sink, _ := newTestSink(t)

	if sink.Len() != 0 || !sink.Empty() {
		t.Fatalf("fresh sink: Len() = %d, Empty() = %v, want 0, true", sink.Len(), sink.Empty())
	}

	sink.Append(audiotest.NewConst(0.5, 100))
	sink.Append(audiotest.NewConst(0.5, 100))
	sink.Append(audiotest.NewConst(0.5, 100))

	if sink.Len() != 3 || sink.Empty() {
		t.Errorf("after 3 appends: Len() = %d, Empty() = %v, want 3, false", sink.Len(), sink.Empty())
	}

	sink.Clear()

	if sink.Len() != 0 || !sink.Empty() {
		t.Errorf("after Clear(): Len() = %d, Empty() = %v, want 0, true", sink.Len(), sink.Empty())
	}
	if !sink.IsPaused() {
		t.Error("after Clear(): IsPaused() = false, want true")
	}
}

func TestPauseStreamsSilence(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	sink.Append(audiotest.NewConst(0.5, 1<<20))

	if sink.IsPaused() {
		t.Fatal("fresh sink reports paused")
	}

	sink.Pause()
	if !sink.IsPaused() {
		t.Fatal("IsPaused() = false after Pause()")
	}
	for _, f := range stream.Pull(64) {
		if f != [2]float64{} {
			t.Fatalf("paused sink produced %v, want silence", f)
		}
	}

	sink.Play()
	if sink.IsPaused() {
		t.Fatal("IsPaused() = true after Play()")
	}
	left, right := frameEnergy(stream.Pull(64))
	if left == 0 || right == 0 {
		t.Errorf("resumed sink produced no signal (energy %v, %v)", left, right)
	}
}

func TestClearDropsQueuedAudio(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	sink.Append(audiotest.NewConst(0.5, 1<<20))
	stream.Pull(64)

	sink.Clear()

	// Even after resuming, the dropped streamer must stay silent from
	// the very next frame on.
	sink.Play()
	for _, f := range stream.Pull(64) {
		if f != [2]float64{} {
			t.Fatalf("cleared sink produced %v, want silence", f)
		}
	}
}

// countingStreamer records how many frames have been read off it.
type countingStreamer struct {
	frames int
}

func (c *countingStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		samples[i] = [2]float64{0.5, 0.5}
	}
	c.frames += len(samples)
	return len(samples), true
}

func (c *countingStreamer) Err() error { return nil }

func TestPullsSourceOnDemand(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	src := &countingStreamer{}
	sink.Append(src)

	// The chain must not read ahead of the stream: a block of 64 frames
	// may consume at most 64 source frames plus the speed stage's
	// lookahead.
	stream.Pull(64)
	if src.frames > 66 {
		t.Errorf("64 frame block consumed %d source frames, want at most 66", src.frames)
	}
}

func TestStopKeepsPlayingState(t *testing.T) {
	t.Parallel()

	sink, _ := newTestSink(t)
	sink.Append(audiotest.NewConst(0.5, 100))
	sink.Stop()

	if !sink.Empty() {
		t.Error("Stop() left the queue non-empty")
	}
	if sink.IsPaused() {
		t.Error("Stop() paused the sink")
	}
}

func TestVolume(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	if sink.Volume() != 1 {
		t.Fatalf("default Volume() = %v, want 1", sink.Volume())
	}

	sink.Append(audiotest.NewConst(0.5, 1<<20))
	sink.SetVolume(0.5)
	if sink.Volume() != 0.5 {
		t.Fatalf("Volume() = %v, want 0.5", sink.Volume())
	}
	for i, f := range stream.Pull(16) {
		if math.Abs(f[0]-0.25) > 1e-9 || math.Abs(f[1]-0.25) > 1e-9 {
			t.Fatalf("frame %d = %v, want [0.25 0.25]", i, f)
		}
	}

	sink.SetVolume(0)
	if sink.Volume() != 0 {
		t.Fatalf("Volume() = %v, want 0", sink.Volume())
	}
	for i, f := range stream.Pull(16) {
		if f != [2]float64{} {
			t.Fatalf("muted frame %d = %v, want silence", i, f)
		}
	}

	// A negative gain behaves like 0: the getter and the audible gain
	// agree.
	sink.SetVolume(0.5)
	sink.SetVolume(-1)
	if sink.Volume() != 0 {
		t.Fatalf("Volume() after negative gain = %v, want 0", sink.Volume())
	}
	for i, f := range stream.Pull(16) {
		if f != [2]float64{} {
			t.Fatalf("negative gain frame %d = %v, want silence", i, f)
		}
	}
}

func TestSpeed(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	if sink.Speed() != 1 {
		t.Fatalf("default Speed() = %v, want 1", sink.Speed())
	}

	sink.SetSpeed(1.5)
	if sink.Speed() != 1.5 {
		t.Errorf("Speed() = %v, want 1.5", sink.Speed())
	}

	// The chain must keep streaming at a non-unity rate.
	sink.Append(audiotest.NewConst(0.5, 1<<20))
	left, right := frameEnergy(stream.Pull(64))
	if left == 0 || right == 0 {
		t.Errorf("sped-up sink produced no signal (energy %v, %v)", left, right)
	}
}

func TestAppendFormatResamples(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	sink.AppendFormat(format, audiotest.NewConst(0.5, 1<<20))

	if sink.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", sink.Len())
	}
	left, right := frameEnergy(stream.Pull(64))
	if left == 0 || right == 0 {
		t.Errorf("resampled append produced no signal (energy %v, %v)", left, right)
	}
}

func TestSleepUntilEnd(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	sink.Append(audiotest.NewConst(0.5, 256))

	done := make(chan struct{})
	go func() {
		sink.SleepUntilEnd()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("SleepUntilEnd returned before the queue drained")
	case <-time.After(20 * time.Millisecond):
	}

	// Pull well past the end of the queued streamer.
	for range 16 {
		stream.Pull(128)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SleepUntilEnd did not return after the queue drained")
	}
}

func TestDetach(t *testing.T) {
	t.Parallel()

	sink, stream := newTestSink(t)
	sink.Append(audiotest.NewConst(0.5, 1<<20))
	sink.Detach()

	// Queued audio keeps playing without the sink.
	left, right := frameEnergy(stream.Pull(64))
	if left == 0 || right == 0 {
		t.Errorf("detached queue produced no signal (energy %v, %v)", left, right)
	}

	defer func() {
		if recover() == nil {
			t.Error("use after Detach did not panic")
		}
	}()
	sink.Pause()
}
