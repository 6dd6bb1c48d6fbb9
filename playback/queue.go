package playback

import "github.com/gopxl/beep/v2"

// Queue plays appended streamers one after another in FIFO order and
// streams silence once all of them have drained, so it can stay
// attached to a Stream indefinitely.
//
// Queue is not safe for concurrent use on its own; every access must
// happen under the lock of the Stream it is attached to. Sink enforces
// this for its callers.
type Queue struct {
	streamers []beep.Streamer
	waiters   []chan struct{}
}

// Add appends s to the back of the queue.
func (q *Queue) Add(s beep.Streamer) {
	q.streamers = append(q.streamers, s)
}

// Len returns the number of streamers that have not yet drained,
// including the one currently playing.
func (q *Queue) Len() int {
	return len(q.streamers)
}

// Clear drops all queued streamers and wakes drain waiters.
func (q *Queue) Clear() {
	q.streamers = nil
	q.notify()
}

// Wait returns a channel that is closed once the queue has drained.
// An empty queue yields an already-closed channel.
func (q *Queue) Wait() <-chan struct{} {
	ch := make(chan struct{})
	if len(q.streamers) == 0 {
		close(ch)
		return ch
	}
	q.waiters = append(q.waiters, ch)
	return ch
}

func (q *Queue) notify() {
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}

func (q *Queue) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		if len(q.streamers) == 0 {
			for i := filled; i < len(samples); i++ {
				samples[i] = [2]float64{}
			}
			filled = len(samples)
			break
		}
		sn, sok := q.streamers[0].Stream(samples[filled:])
		filled += sn
		if !sok {
			q.streamers = q.streamers[1:]
			if len(q.streamers) == 0 {
				q.notify()
			}
		}
	}
	return len(samples), true
}

func (q *Queue) Err() error {
	return nil
}
