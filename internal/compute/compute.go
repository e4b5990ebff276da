// Package compute defines the contract for dispatching container jobs and
// following their logs.
package compute

import (
	"context"
	"sync"

	"github.com/NicoZweifel/aquila/internal/models"
)

// LogEvent is one item of a log stream: a record, or a diagnostic error
// the consumer may relay without tearing the stream down.
type LogEvent struct {
	Record *models.LogRecord
	Err    error
}

// LogStream follows a job's output. The events channel closes when the
// stream ends, either because the job finished or because the backend gave
// up; a terminal failure is delivered as a final Err event before the
// close. Close releases the follower and is safe to call concurrently with
// reads.
type LogStream interface {
	Events() <-chan LogEvent
	Close() error
}

// Backend is the compute port. All errors returned are
// *apierrors.ComputeError.
type Backend interface {
	// Init verifies the backend is reachable. Called once at startup.
	Init(ctx context.Context) error

	// Run dispatches a job and returns immediately with its identifier
	// and initial state.
	Run(ctx context.Context, req *models.JobRequest) (*models.JobResult, error)

	// Attach opens a log stream for a previously dispatched job.
	Attach(ctx context.Context, jobID string) (LogStream, error)
}

// Stream is a channel-backed LogStream for drivers that produce events
// from a goroutine. Send drops the event and reports false once the
// consumer is gone.
type Stream struct {
	ch     chan LogEvent
	done   chan struct{}
	closed sync.Once
	ended  sync.Once
}

// NewStream returns a stream buffering up to n events.
func NewStream(n int) *Stream {
	return &Stream{
		ch:   make(chan LogEvent, n),
		done: make(chan struct{}),
	}
}

func (s *Stream) Events() <-chan LogEvent { return s.ch }

// Send delivers ev to the consumer. It returns false when the consumer
// closed the stream or ctx was cancelled, in which case the producer
// should stop.
func (s *Stream) Send(ctx context.Context, ev LogEvent) bool {
	select {
	case s.ch <- ev:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// End marks the stream finished and closes the events channel. The
// producer must not Send after End.
func (s *Stream) End() {
	s.ended.Do(func() { close(s.ch) })
}

// Close signals the producer to stop. It never blocks.
func (s *Stream) Close() error {
	s.closed.Do(func() { close(s.done) })
	return nil
}

// Done is closed once the consumer has closed the stream. Producers with
// blocking sources select on it to stop following.
func (s *Stream) Done() <-chan struct{} { return s.done }
