package playback

import "errors"

var (
	// ErrStreamClosed is returned when attaching a streamer to a stream
	// that has been closed.
	ErrStreamClosed = errors.New("output stream is closed")
)
