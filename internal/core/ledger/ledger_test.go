package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*Ledger, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, zap.NewNop()), mr
}

func TestParseReportStatus(t *testing.T) {
	for _, s := range []string{"Downloaded", "DeploymentSucceeded", "DeploymentFailed"} {
		status, err := ParseReportStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), status)
	}
	for _, s := range []string{"Active", "", "deploymentsucceeded", "Installed"} {
		_, err := ParseReportStatus(s)
		assert.Error(t, err, s)
	}
}

func TestIncrementStatus(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.IncrementStatus(ctx, "key", "v1", StatusDownloaded))
	require.NoError(t, l.IncrementStatus(ctx, "key", "v1", StatusDownloaded))
	require.NoError(t, l.IncrementStatus(ctx, "key", "v1", StatusDeploymentFailed))
	require.NoError(t, l.IncrementStatus(ctx, "key", "v1", Status("Bogus")))

	m, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"v1:Downloaded":       2,
		"v1:DeploymentFailed": 1,
	}, m)
}

func TestIncrementStatusConcurrent(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.IncrementStatus(ctx, "key", "v3", StatusDownloaded))
		}()
	}
	wg.Wait()

	m, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)
	assert.EqualValues(t, 50, m["v3:Downloaded"])
}

func TestRecordAdoptionTransfersActive(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v1"}))
	before, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)

	require.NoError(t, l.RecordAdoption(ctx, Adoption{
		DeploymentKey: "key", Label: "v2", PreviousKey: "key", PreviousLabel: "v1",
	}))
	after, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)

	assert.Equal(t, before["v2:Active"]+1, after["v2:Active"])
	assert.Equal(t, before["v1:Active"]-1, after["v1:Active"])
	assert.Equal(t, before["v2:DeploymentSucceeded"]+1, after["v2:DeploymentSucceeded"])
	assert.Equal(t, before["v1:DeploymentSucceeded"], after["v1:DeploymentSucceeded"])
}

func TestRecordAdoptionUsesClientMapping(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v1", ClientUniqueID: "c1"}))
	assert.Equal(t, "v1", mr.HGet("deploymentKeyClients:key", "c1"))

	require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v2", ClientUniqueID: "c1"}))
	assert.Equal(t, "v2", mr.HGet("deploymentKeyClients:key", "c1"))

	m, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)
	assert.EqualValues(t, 0, m["v1:Active"])
	assert.EqualValues(t, 1, m["v2:Active"])
}

func TestRecordAdoptionAcrossDeploymentKeys(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "staging", Label: "v4", ClientUniqueID: "c1"}))
	require.NoError(t, l.RecordAdoption(ctx, Adoption{
		DeploymentKey: "production", Label: "v1", PreviousKey: "staging", ClientUniqueID: "c1",
	}))

	staging, err := l.GetMetrics(ctx, "staging")
	require.NoError(t, err)
	production, err := l.GetMetrics(ctx, "production")
	require.NoError(t, err)

	assert.EqualValues(t, 0, staging["v4:Active"])
	assert.EqualValues(t, 1, production["v1:Active"])
	assert.Equal(t, "", mr.HGet("deploymentKeyClients:staging", "c1"))
	assert.Equal(t, "v1", mr.HGet("deploymentKeyClients:production", "c1"))
}

func TestGetMetricsSkipsCorruptValues(t *testing.T) {
	l, mr := newTestLedger(t)
	mr.HSet("deploymentKeyLabels:key", "v1:Active", "7")
	mr.HSet("deploymentKeyLabels:key", "v1:Downloaded", "not-a-number")

	m, err := l.GetMetrics(context.Background(), "key")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"v1:Active": 7}, m)
}

func TestClearAndForgetClient(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v1", ClientUniqueID: fmt.Sprintf("c%d", i)}))
	}

	require.NoError(t, l.ForgetClient(ctx, "key", "c0"))
	assert.Equal(t, "", mr.HGet("deploymentKeyClients:key", "c0"))
	assert.Equal(t, "v1", mr.HGet("deploymentKeyClients:key", "c1"))

	require.NoError(t, l.Clear(ctx, "key"))
	m, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)
	assert.Empty(t, m)
	assert.False(t, mr.Exists("deploymentKeyClients:key"))
}

func TestRename(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.IncrementStatus(ctx, "old", "v1", StatusDownloaded))
	require.NoError(t, l.Rename(ctx, "old", "new"))
	// 没有客户端映射时也不报错
	require.NoError(t, l.Rename(ctx, "missing", "other"))

	m, err := l.GetMetrics(ctx, "new")
	require.NoError(t, err)
	assert.EqualValues(t, 1, m["v1:Downloaded"])

	old, err := l.GetMetrics(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, old)
}

func TestRecordAdoptionConcurrentSameClient(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v1", ClientUniqueID: "c1"}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.RecordAdoption(ctx, Adoption{DeploymentKey: "key", Label: "v2", ClientUniqueID: "c1"}))
		}()
	}
	wg.Wait()

	m, err := l.GetMetrics(ctx, "key")
	require.NoError(t, err)
	// 旧标签只被扣减一次
	assert.EqualValues(t, 0, m["v1:Active"])
	assert.EqualValues(t, 1, m["v2:Active"])
	assert.EqualValues(t, 20, m["v2:DeploymentSucceeded"])
	assert.Equal(t, "v2", mr.HGet("deploymentKeyClients:key", "c1"))
}

func TestRenameMovesClientMappingOnly(t *testing.T) {
	l, mr := newTestLedger(t)
	ctx := context.Background()
	mr.HSet("deploymentKeyClients:old", "c1", "v3")

	require.NoError(t, l.Rename(ctx, "old", "new"))
	assert.Equal(t, "v3", mr.HGet("deploymentKeyClients:new", "c1"))
	assert.False(t, mr.Exists("deploymentKeyClients:old"))
	assert.False(t, mr.Exists("deploymentKeyLabels:new"))
}
