package worker

import "errors"

// Lifecycle errors
var (
	ErrPoolNotStarted     = errors.New("worker: pool not started")
	ErrPoolAlreadyStarted = errors.New("worker: pool already started")
	ErrPoolStopped        = errors.New("worker: pool stopped")
	ErrStopTimeout        = errors.New("worker: workers still busy at stop deadline")
)

// Submission errors
var (
	// ErrQueueFull is returned by Submit; SubmitWait blocks instead
	ErrQueueFull = errors.New("worker: queue full")

	// ErrNilProcessor is the panic value of NewPool without a processor
	ErrNilProcessor = errors.New("worker: nil processor")
)
