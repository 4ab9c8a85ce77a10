package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemverRangeTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("semver_range", validateSemverRange))

	type req struct {
		AppVersion string `validate:"required,semver_range"`
	}
	for _, ok := range []string{"1.2.3", "^1.2.0", "1.x", ">=1.0.0 <2.0.0", "~2.1"} {
		assert.NoError(t, v.Struct(req{AppVersion: ok}), ok)
	}
	for _, bad := range []string{"latest", "1..2", "v1.2.3.4.5"} {
		assert.Error(t, v.Struct(req{AppVersion: bad}), bad)
	}
}

func TestCreateReleaseRequestRollout(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, v.RegisterValidation("semver_range", validateSemverRange))

	rollout := func(n int) *int { return &n }
	base := CreateReleaseRequest{PackageHash: "h", BlobKey: "k", AppVersion: "1.0.0"}

	assert.NoError(t, v.Struct(base))
	base.Rollout = rollout(0)
	assert.NoError(t, v.Struct(base))
	base.Rollout = rollout(101)
	assert.Error(t, v.Struct(base))
}

func TestLimitQuery(t *testing.T) {
	assert.Equal(t, 20, (&LimitQuery{}).GetLimit())
	assert.Equal(t, 5, (&LimitQuery{Limit: 5}).GetLimit())
}
