package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

func TestRollbackToPreviousDistinctPackage(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "Staging", "hashA")
	f.upload(t, "Staging", "hashB")
	f.upload(t, "Staging", "hashC")

	release, err := f.store.Rollback(context.Background(), f.deployments["Staging"], "", "carol")
	require.NoError(t, err)

	assert.Equal(t, "v4", release.Label)
	assert.Equal(t, "hashB", release.PackageHash)
	assert.Equal(t, "v2", *release.OriginalLabel)
	assert.Equal(t, constants.ReleaseMethodRollback, release.ReleaseMethod)
	assert.Nil(t, release.Rollout)
	assert.Equal(t, "carol", release.ReleasedBy)
}

func TestRollbackSkipsSameHashAndDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]
	f.upload(t, "Staging", "hashA")
	f.upload(t, "Staging", "hashB")
	f.upload(t, "Staging", "hashC")
	f.upload(t, "Staging", "hashC")
	_, err := f.store.Disable(ctx, dep, "v2")
	require.NoError(t, err)

	release, err := f.store.Rollback(ctx, dep, "", "carol")
	require.NoError(t, err)
	assert.Equal(t, "hashA", release.PackageHash)
	assert.Equal(t, "v1", *release.OriginalLabel)
}

func TestRollbackExplicitTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]
	f.upload(t, "Staging", "hashA")
	f.upload(t, "Staging", "hashB")
	f.upload(t, "Staging", "hashC")

	release, err := f.store.Rollback(ctx, dep, "v1", "carol")
	require.NoError(t, err)
	assert.Equal(t, "hashA", release.PackageHash)
	assert.Equal(t, "v1", *release.OriginalLabel)

	// 当前已是 hashA
	_, err = f.store.Rollback(ctx, dep, "v1", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	_, err = f.store.Rollback(ctx, dep, "v42", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestRollbackWithoutPriorRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]

	_, err := f.store.Rollback(ctx, dep, "", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	f.upload(t, "Staging", "hashA")
	_, err = f.store.Rollback(ctx, dep, "", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestRollbackIgnoresDisabledNewestRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]
	f.upload(t, "Staging", "hashA")
	f.upload(t, "Staging", "hashB")
	f.upload(t, "Staging", "hashC")
	_, err := f.store.Disable(ctx, dep, "v3")
	require.NoError(t, err)

	// 客户端当前拿到的是 v2(hashB), 回滚应回到 v1
	release, err := f.store.Rollback(ctx, dep, "", "carol")
	require.NoError(t, err)
	assert.Equal(t, "v4", release.Label)
	assert.Equal(t, "hashA", release.PackageHash)
	assert.Equal(t, "v1", *release.OriginalLabel)
}

func TestRollbackExplicitTargetComparesWithEnabledRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]
	f.upload(t, "Staging", "hashA")
	f.upload(t, "Staging", "hashB")
	f.upload(t, "Staging", "hashC")
	_, err := f.store.Disable(ctx, dep, "v3")
	require.NoError(t, err)

	_, err = f.store.Rollback(ctx, dep, "v2", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeValidationError))

	release, err := f.store.Rollback(ctx, dep, "v3", "carol")
	require.NoError(t, err)
	assert.Equal(t, "hashC", release.PackageHash)
}

func TestRollbackAllDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.deployments["Staging"]
	f.upload(t, "Staging", "hashA")
	_, err := f.store.Disable(ctx, dep, "v1")
	require.NoError(t, err)

	_, err = f.store.Rollback(ctx, dep, "", "carol")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
