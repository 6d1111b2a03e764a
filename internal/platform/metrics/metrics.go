package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	rateLimited     uint64
	totalDurationMs uint64
	jobsCompleted   uint64
	jobsFailed      uint64
	startedAt       time.Time
}

type Snapshot struct {
	RequestsTotal    uint64  `json:"requestsTotal"`
	ErrorsTotal      uint64  `json:"errorsTotal"`
	ClientErrors     uint64  `json:"clientErrorsTotal"`
	RateLimitedTotal uint64  `json:"rateLimitedTotal"`
	AvgDurationMs    float64 `json:"avgDurationMs"`
	TotalDurationMs  uint64  `json:"totalDurationMs"`
	JobsCompleted    uint64  `json:"jobsCompleted"`
	JobsFailed       uint64  `json:"jobsFailed"`
	UptimeSeconds    int64   `json:"uptimeSeconds"`
}

func New() *Collector {
	return &Collector{startedAt: time.Now()}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddUint64(&c.errorRequests, 1)
	case status == 429:
		atomic.AddUint64(&c.rateLimited, 1)
		atomic.AddUint64(&c.clientErrors, 1)
	case status >= 400:
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordJob(err error) {
	if err != nil {
		atomic.AddUint64(&c.jobsFailed, 1)
		return
	}
	atomic.AddUint64(&c.jobsCompleted, 1)
}

func (c *Collector) Snapshot() Snapshot {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return Snapshot{
		RequestsTotal:    total,
		ErrorsTotal:      atomic.LoadUint64(&c.errorRequests),
		ClientErrors:     atomic.LoadUint64(&c.clientErrors),
		RateLimitedTotal: atomic.LoadUint64(&c.rateLimited),
		AvgDurationMs:    avg,
		TotalDurationMs:  totalMs,
		JobsCompleted:    atomic.LoadUint64(&c.jobsCompleted),
		JobsFailed:       atomic.LoadUint64(&c.jobsFailed),
		UptimeSeconds:    int64(time.Since(c.startedAt).Seconds()),
	}
}
