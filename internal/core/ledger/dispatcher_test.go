package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherAppliesJobs(t *testing.T) {
	l, _ := newTestLedger(t)
	d := NewDispatcher(l, zap.NewNop(), 2, 16, time.Second)
	d.Start()

	assert.True(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))
	assert.True(t, d.Submit(Job{Kind: JobAdoption, Adoption: Adoption{DeploymentKey: "key", Label: "v1"}}))
	d.Stop()

	m, err := l.GetMetrics(context.Background(), "key")
	require.NoError(t, err)
	assert.EqualValues(t, 1, m["v1:Downloaded"])
	assert.EqualValues(t, 1, m["v1:Active"])
}

func TestDispatcherDropsWhenStopped(t *testing.T) {
	l, _ := newTestLedger(t)
	d := NewDispatcher(l, zap.NewNop(), 1, 1, time.Second)

	assert.False(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	l, _ := newTestLedger(t)
	d := NewDispatcher(l, zap.NewNop(), 1, 1, time.Second)
	// 未启动消费协程, 但标记为运行中以便入队
	d.running = true

	assert.True(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))
	assert.False(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))
}

func TestDispatcherPublishesStoreErrors(t *testing.T) {
	l, mr := newTestLedger(t)
	mr.Close()

	d := NewDispatcher(l, zap.NewNop(), 1, 4, 50*time.Millisecond)
	d.Start()
	require.True(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))

	select {
	case err := <-d.Errors():
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected ledger error")
	}
	d.Stop()
}

func TestDispatcherStopIsTerminal(t *testing.T) {
	l, _ := newTestLedger(t)
	d := NewDispatcher(l, zap.NewNop(), 1, 4, time.Second)
	d.Start()
	d.Stop()

	assert.NotPanics(t, func() {
		d.Start()
		assert.False(t, d.Submit(Job{Kind: JobIncrement, DeploymentKey: "key", Label: "v1", Status: StatusDownloaded}))
		d.Stop()
	})
	_, open := <-d.Errors()
	assert.False(t, open)
}
