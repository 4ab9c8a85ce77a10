package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ota-server/internal/adapter/notification"
	"ota-server/internal/adapter/storage"
	"ota-server/internal/core/history"
	"ota-server/internal/core/ledger"
	"ota-server/internal/core/respcache"
	"ota-server/internal/dto"
	"ota-server/internal/pkg/testutil"
	"ota-server/internal/repository"
	"ota-server/pkg/constants"
	"ota-server/pkg/errors"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.ReleaseEvent
}

func (n *recordingNotifier) Send(context.Context, *notification.NotificationMessage) error { return nil }

func (n *recordingNotifier) SendReleaseNotification(_ context.Context, event notification.ReleaseEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) types() []notification.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]notification.NotificationType, 0, len(n.events))
	for _, e := range n.events {
		types = append(types, e.Type)
	}
	return types
}

type services struct {
	db          *gorm.DB
	redis       *redis.Client
	ledger      *ledger.Ledger
	notifier    *recordingNotifier
	apps        AppService
	deployments DeploymentService
	releases    ReleaseService
	metrics     MetricsService
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.OpenDB(t)
	client, _ := testutil.OpenRedis(t)
	l := ledger.New(client, zap.NewNop())
	store := history.NewStore(db, respcache.New(client, 0), l, zap.NewNop())
	notifier := &recordingNotifier{}
	signer := storage.NewSigner("https://cdn.test", "secret", 0, 0)

	return &services{
		db:          db,
		redis:       client,
		ledger:      l,
		notifier:    notifier,
		apps:        NewAppService(db),
		deployments: NewDeploymentService(db, store, notifier, zap.NewNop()),
		releases:    NewReleaseService(db, store, signer, notifier, zap.NewNop()),
		metrics:     NewMetricsService(db, l, zap.NewNop()),
	}
}

func intPtr(v int) *int { return &v }

func TestAppServiceCreatesDefaultDeployments(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	app, err := s.apps.Create(ctx, &dto.CreateAppRequest{Name: "demo"})
	require.NoError(t, err)
	require.Len(t, app.Deployments, 2)
	assert.Equal(t, constants.DeploymentStaging, app.Deployments[0].Name)
	assert.Equal(t, constants.DeploymentProduction, app.Deployments[1].Name)
	assert.NotEqual(t, app.Deployments[0].Key, app.Deployments[1].Key)

	_, err = s.apps.Create(ctx, &dto.CreateAppRequest{Name: "demo"})
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	apps, err := s.apps.List(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Len(t, apps[0].Deployments, 2)
}

func TestDeploymentServiceCreateAndRotate(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	_, err := s.apps.Create(ctx, &dto.CreateAppRequest{Name: "demo"})
	require.NoError(t, err)

	created, err := s.deployments.Create(ctx, "demo", &dto.CreateDeploymentRequest{Name: "Beta"})
	require.NoError(t, err)
	_, err = s.deployments.Create(ctx, "demo", &dto.CreateDeploymentRequest{Name: "Beta"})
	assert.True(t, errors.IsCode(err, errors.CodeConflict))

	rotated, err := s.deployments.RotateKey(ctx, "demo", "Beta", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, created.Key, rotated.Key)

	repo := repository.NewDeploymentRepository(s.db)
	_, err = repo.FindByKey(ctx, created.Key)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	stored, err := repo.FindByKey(ctx, rotated.Key)
	require.NoError(t, err)
	assert.Equal(t, "Beta", stored.Name)

	_, err = s.deployments.RotateKey(ctx, "demo", "Gamma", "alice")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	list, err := s.deployments.List(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = s.deployments.List(ctx, "ghost")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	assert.Eventually(t, func() bool {
		return len(s.notifier.types()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReleaseServiceLifecycle(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	_, err := s.apps.Create(ctx, &dto.CreateAppRequest{Name: "demo"})
	require.NoError(t, err)

	up, err := s.releases.UploadURL(ctx, "demo", "Staging")
	require.NoError(t, err)
	assert.Contains(t, up.URL, "https://cdn.test/demo/Staging/")
	assert.Equal(t, storage.BundleContentType, up.ContentType)

	created, err := s.releases.Create(ctx, "demo", "Staging", &dto.CreateReleaseRequest{
		PackageHash: "hash-1", PackageSize: 10, BlobKey: up.BlobKey, AppVersion: "^1.0.0",
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "v1", created.Label)
	assert.Equal(t, 100, created.Rollout)
	assert.Equal(t, "alice", created.ReleasedBy)

	_, err = s.releases.Create(ctx, "demo", "Staging", &dto.CreateReleaseRequest{
		PackageHash: "hash-2", BlobKey: "k", AppVersion: "^1.0.0", Rollout: intPtr(10),
	}, "alice")
	require.NoError(t, err)

	edited, err := s.releases.Update(ctx, "demo", "Staging", &dto.UpdateReleaseRequest{Label: "v2", Rollout: intPtr(100)}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 100, edited.Rollout)

	promoted, err := s.releases.Promote(ctx, "demo", "Staging", "Production", &dto.PromoteRequest{}, "bob")
	require.NoError(t, err)
	assert.Equal(t, "v1", promoted.Label)
	assert.Equal(t, "v2", promoted.OriginalLabel)
	assert.Equal(t, "Staging", promoted.OriginalDeployment)
	assert.Equal(t, constants.ReleaseMethodPromote, promoted.ReleaseMethod)

	rolled, err := s.releases.Rollback(ctx, "demo", "Staging", &dto.RollbackRequest{}, "carol")
	require.NoError(t, err)
	assert.Equal(t, "v3", rolled.Label)
	assert.Equal(t, "hash-1", rolled.PackageHash)

	disabled, err := s.releases.Disable(ctx, "demo", "Staging", "v3", "carol")
	require.NoError(t, err)
	assert.True(t, disabled.IsDisabled)

	list, err := s.releases.History(ctx, "demo", "Staging")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"v1", "v2", "v3"}, []string{list[0].Label, list[1].Label, list[2].Label})

	require.NoError(t, s.releases.Clear(ctx, "demo", "Staging", "carol"))
	list, err = s.releases.History(ctx, "demo", "Staging")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.releases.Create(ctx, "demo", "Nightly", &dto.CreateReleaseRequest{PackageHash: "h", AppVersion: "1.0.0"}, "alice")
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))

	assert.Eventually(t, func() bool {
		return len(s.notifier.types()) == 7
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []notification.NotificationType{
		notification.NotifyReleaseUploaded,
		notification.NotifyReleaseUploaded,
		notification.NotifyReleaseEdited,
		notification.NotifyReleasePromoted,
		notification.NotifyReleaseRolledBack,
		notification.NotifyReleaseDisabled,
		notification.NotifyHistoryCleared,
	}, s.notifier.types())
}

func TestMetricsServiceGroupsAndSnapshots(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	app, err := s.apps.Create(ctx, &dto.CreateAppRequest{Name: "demo"})
	require.NoError(t, err)
	key := app.Deployments[0].Key

	require.NoError(t, s.ledger.RecordAdoption(ctx, ledger.Adoption{DeploymentKey: key, Label: "v1", ClientUniqueID: "c1"}))
	require.NoError(t, s.ledger.IncrementStatus(ctx, key, "v1", ledger.StatusDownloaded))
	require.NoError(t, s.ledger.IncrementStatus(ctx, key, "1.2.0", ledger.StatusDeploymentFailed))

	metrics, err := s.metrics.Get(ctx, "demo", "Staging")
	require.NoError(t, err)
	assert.Equal(t, dto.MetricsResponse{
		"v1":    {"Active": 1, "DeploymentSucceeded": 1, "Downloaded": 1},
		"1.2.0": {"DeploymentFailed": 1},
	}, metrics)

	saved, err := s.metrics.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	snapshots, err := s.metrics.History(ctx, "demo", "Staging", 10)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, metrics, snapshots[0].Metrics)

	empty, err := s.metrics.History(ctx, "demo", "Production", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGroupCountersSkipsMalformedFields(t *testing.T) {
	grouped := groupCounters(map[string]int64{"v1:Active": 2, "broken": 1, ":Active": 1, "v2:": 3})
	assert.Equal(t, dto.MetricsResponse{"v1": {"Active": 2}}, grouped)
}
