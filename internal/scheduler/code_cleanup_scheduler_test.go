package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCleaner struct {
	calls   atomic.Int32
	deleted int64
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (c *countingCleaner) CleanupExpiredCodes() int64 {
	c.calls.Add(1)
	if c.block != nil {
		c.once.Do(func() { close(c.started) })
		<-c.block
	}
	return c.deleted
}

func TestCodeCleanupScheduler_RunOnce(t *testing.T) {
	cleaner := &countingCleaner{deleted: 4}
	s := NewCodeCleanupScheduler(cleaner, "0 * * * *")

	assert.Equal(t, int64(4), s.RunOnce())
	assert.Equal(t, int32(1), cleaner.calls.Load())
}

func TestCodeCleanupScheduler_SkipsOverlappingRun(t *testing.T) {
	cleaner := &countingCleaner{
		deleted: 2,
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewCodeCleanupScheduler(cleaner, "0 * * * *")

	done := make(chan int64)
	go func() { done <- s.RunOnce() }()
	<-cleaner.started

	assert.Equal(t, int64(0), s.RunOnce())

	close(cleaner.block)
	assert.Equal(t, int64(2), <-done)
	assert.Equal(t, int32(1), cleaner.calls.Load())
}

func TestCodeCleanupScheduler_StartStop(t *testing.T) {
	s := NewCodeCleanupScheduler(&countingCleaner{}, "*/5 * * * *")

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

func TestCodeCleanupScheduler_InvalidSchedule(t *testing.T) {
	s := NewCodeCleanupScheduler(&countingCleaner{}, "not a cron spec")
	assert.Error(t, s.Start())
}
