// Package worker provides a generic, thread-safe worker pool.
//
// A Pool runs a fixed number of goroutines that take work items from a
// bounded queue. Two submission styles cover the two backpressure policies:
//
//   - Submit never blocks and returns ErrQueueFull when the queue is full.
//   - SubmitWait blocks until the item is queued, the context ends, or the
//     pool stops.
//
// Stop closes the queue and waits for workers to drain it, so work accepted
// before Stop is still processed unless the context passed to Start has been
// cancelled.
//
//	pool := worker.NewPool(4, 256, sink.handle,
//	    worker.WithMetricsRegistry[*message.Message](registry, "file_sink_pool"),
//	    worker.WithErrorHandler(func(msg *message.Message, err error) {
//	        logger.Warn("Write failed", "id", msg.ID, "error", err)
//	    }),
//	)
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
package worker
