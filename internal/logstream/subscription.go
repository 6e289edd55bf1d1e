package logstream

import (
	"context"
	"io"
	"sync"
	"time"

	"kubemcp/pkg/logging"
)

// Subscription is a handle on one active log stream.
type Subscription struct {
	ID       string
	ServerID string
	PodName  string

	cancel       context.CancelFunc
	stream       io.ReadCloser
	done         chan struct{}
	once         sync.Once
	err          error
	drainTimeout time.Duration
}

// Cancel closes the underlying connection and waits for the copy goroutine
// to finish. If the sink is stuck in a write, Cancel gives up waiting after
// the drain timeout; the connection is released either way. It is safe to
// call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.stream.Close()
	})

	if s.drainTimeout <= 0 {
		<-s.done
		return
	}
	timer := time.NewTimer(s.drainTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		logging.Warn("LogStreamer", "Sink of subscriber %s still blocked after %s, releasing pod %s without waiting",
			s.ID, s.drainTimeout, s.PodName)
	}
}

// Done is closed once the stream has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the stream, or nil if it ended normally
// or was cancelled. It is only meaningful after Done is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}
