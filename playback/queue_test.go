package playback

import (
	"testing"

	"auralis/internal/audiotest"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := &Queue{}
	q.Add(audiotest.NewConst(0.25, 4))
	q.Add(audiotest.NewConst(0.5, 4))

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	buf := make([][2]float64, 10)
	n, ok := q.Stream(buf)
	if !ok || n != 10 {
		t.Fatalf("Stream() = %d, %v, want 10, true", n, ok)
	}

	want := []float64{0.25, 0.25, 0.25, 0.25, 0.5, 0.5, 0.5, 0.5, 0, 0}
	for i, w := range want {
		if buf[i][0] != w || buf[i][1] != w {
			t.Errorf("frame %d = %v, want [%v %v]", i, buf[i], w, w)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() after drain = %d, want 0", q.Len())
	}
}

func TestQueueStreamsSilenceWhenEmpty(t *testing.T) {
	t.Parallel()

	q := &Queue{}
	buf := make([][2]float64, 8)
	buf[3] = [2]float64{1, 1}
	n, ok := q.Stream(buf)
	if !ok || n != len(buf) {
		t.Fatalf("Stream() = %d, %v, want %d, true", n, ok, len(buf))
	}
	for i := range buf {
		if buf[i] != [2]float64{} {
			t.Errorf("frame %d = %v, want silence", i, buf[i])
		}
	}
}

func TestQueueWait(t *testing.T) {
	t.Parallel()

	q := &Queue{}

	select {
	case <-q.Wait():
	default:
		t.Fatal("Wait() on empty queue should be closed immediately")
	}

	q.Add(audiotest.NewConst(0.1, 4))
	ch := q.Wait()
	select {
	case <-ch:
		t.Fatal("Wait() closed before the queue drained")
	default:
	}

	buf := make([][2]float64, 8)
	q.Stream(buf)

	select {
	case <-ch:
	default:
		t.Fatal("Wait() not closed after the queue drained")
	}
}

func TestQueueClearWakesWaiters(t *testing.T) {
	t.Parallel()

	q := &Queue{}
	q.Add(audiotest.NewConst(0.1, 100))
	ch := q.Wait()
	q.Clear()

	select {
	case <-ch:
	default:
		t.Fatal("Wait() not closed by Clear")
	}
	if q.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", q.Len())
	}
}
