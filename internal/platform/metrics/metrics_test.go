package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(404, 20*time.Millisecond)
	c.Record(429, 0)
	c.Record(503, 30*time.Millisecond)
	c.RecordJob(nil)
	c.RecordJob(errors.New("boom"))

	snap := c.Snapshot()
	assert.Equal(t, uint64(4), snap.RequestsTotal)
	assert.Equal(t, uint64(1), snap.ErrorsTotal)
	assert.Equal(t, uint64(2), snap.ClientErrors)
	assert.Equal(t, uint64(1), snap.RateLimitedTotal)
	assert.Equal(t, uint64(60), snap.TotalDurationMs)
	assert.InDelta(t, 15.0, snap.AvgDurationMs, 0.001)
	assert.Equal(t, uint64(1), snap.JobsCompleted)
	assert.Equal(t, uint64(1), snap.JobsFailed)
}

func TestEmptySnapshot(t *testing.T) {
	snap := New().Snapshot()
	assert.Zero(t, snap.RequestsTotal)
	assert.Zero(t, snap.AvgDurationMs)
}
