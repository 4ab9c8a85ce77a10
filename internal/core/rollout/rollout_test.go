package rollout

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDecideFullRollout(t *testing.T) {
	assert.True(t, Decide("client-a", "v1", nil))
	assert.True(t, Decide("client-a", "v1", intPtr(100)))
	assert.True(t, Decide("client-a", "v1", intPtr(150)))
	assert.False(t, Decide("client-a", "v1", intPtr(0)))
}

func TestBucketIsStable(t *testing.T) {
	// FNV-1a 32 是固定算法, 跨进程结果相同
	first := Bucket("3f6c0a0e-client", "v10")
	for i := 0; i < 1000; i++ {
		require.Equal(t, first, Bucket("3f6c0a0e-client", "v10"))
	}
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 100)
}

func TestDecideIdempotentAcrossOtherClients(t *testing.T) {
	rollout := intPtr(30)
	var ineligible string
	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("client-%d", i)
		if !Decide(id, "v10", rollout) {
			ineligible = id
			break
		}
	}
	require.NotEmpty(t, ineligible)

	for i := 0; i < 5000; i++ {
		_ = Decide(fmt.Sprintf("other-%d", i), "v10", rollout)
		require.False(t, Decide(ineligible, "v10", rollout))
	}
}

func TestDecideMatchesBucket(t *testing.T) {
	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("device-%d", i)
		b := Bucket(id, "v2")
		assert.Equal(t, b < 50, Decide(id, "v2", intPtr(50)))
	}
}

func TestDecideDistribution(t *testing.T) {
	hit := 0
	for i := 0; i < 10000; i++ {
		if Decide(fmt.Sprintf("install-%d", i), "v2", intPtr(50)) {
			hit++
		}
	}
	assert.InDelta(t, 5000, hit, 500)
}

func TestLabelChangesAssignment(t *testing.T) {
	differs := false
	for i := 0; i < 100 && !differs; i++ {
		id := fmt.Sprintf("c-%d", i)
		differs = Bucket(id, "v1") != Bucket(id, "v2")
	}
	assert.True(t, differs)
}
