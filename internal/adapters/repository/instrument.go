package repository

import (
	"errors"
	"time"

	"github.com/okian/pong/pkg/metrics"
)

// track starts timing op. The returned func records the latency and counts
// unexpected failures; not-found lookups are normal traffic, not errors.
//
//	defer track("record_result")(&err)
func track(op string) func(*error) {
	start := time.Now()
	return func(err *error) {
		metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
		if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) {
			metrics.RecordStoreError(op)
		}
	}
}
