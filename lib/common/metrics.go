package common

import (
	"fmt"
	"io"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics is the set all anyKV counters are registered in
var Metrics = metrics.NewSet()

// CountOp records a finished store operation
func CountOp(op, driver string, started time.Time, err error) {
	Metrics.GetOrCreateCounter(fmt.Sprintf(`anykv_store_ops_total{op=%q,driver=%q}`, op, driver)).Inc()
	if err != nil {
		Metrics.GetOrCreateCounter(fmt.Sprintf(`anykv_store_errors_total{op=%q,driver=%q}`, op, driver)).Inc()
	}
	Metrics.GetOrCreateHistogram(fmt.Sprintf(`anykv_store_op_duration_seconds{op=%q}`, op)).UpdateDuration(started)
}

// CountTask records a finished worker task, result is "done" or "error"
func CountTask(pool, result string) {
	Metrics.GetOrCreateCounter(fmt.Sprintf(`anykv_worker_tasks_total{pool=%q,result=%q}`, pool, result)).Inc()
}

// WriteMetrics writes all metrics in the prometheus text format
func WriteMetrics(w io.Writer) {
	Metrics.WritePrometheus(w)
}
