/*
Package worker provides a generic, bounded worker pool.

One producer goroutine drains a Source into a queue of QueueSize tasks, Threads
consumers run the Handler for each task and a heartbeat logs the Status every
Heartbeat. A failing (or panicking) task never stops its siblings: it is counted
in the "errors" counter and handed to OnError. Run returns once every task has
been handled.

	pool := worker.NewPool(nil, source, func(ctx context.Context, key string, status *worker.Status) error {
		status.Count("copied", 1)
		return copyKey(ctx, key)
	})
	snapshot, err := pool.Run(ctx)

Throughput is tracked with a go-metrics meter (Snapshot.Rate), finished tasks are
also counted in the anykv_worker_tasks_total metric.
*/
package worker
