package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ota-server/internal/pkg/config"
)

type countingSnapshotter struct {
	calls atomic.Int32
	err   error
}

func (c *countingSnapshotter) Snapshot(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

func TestSchedulerRunsSnapshotOnCron(t *testing.T) {
	snap := &countingSnapshotter{}
	s := NewScheduler(snap, zap.NewNop())

	require.NoError(t, s.Start(&config.SchedulerConfig{MetricsSnapshotCron: "* * * * * *"}))
	defer s.Stop()

	assert.Contains(t, s.Entries(), jobMetricsSnapshot)
	assert.Eventually(t, func() bool { return snap.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	s := NewScheduler(&countingSnapshotter{}, zap.NewNop())
	assert.Error(t, s.Start(&config.SchedulerConfig{MetricsSnapshotCron: "every minute"}))
}

func TestSchedulerDefaultCron(t *testing.T) {
	s := NewScheduler(&countingSnapshotter{}, zap.NewNop())
	require.NoError(t, s.Start(&config.SchedulerConfig{}))
	defer s.Stop()
	assert.Len(t, s.Entries(), 1)
}

func TestTriggerSnapshot(t *testing.T) {
	snap := &countingSnapshotter{}
	s := NewScheduler(snap, zap.NewNop())

	saved, err := s.TriggerSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	snap.err = errors.New("db down")
	_, err = s.TriggerSnapshot()
	assert.Error(t, err)
}
