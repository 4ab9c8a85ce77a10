package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ota-server/internal/dto"
	"ota-server/internal/model"
	"ota-server/internal/repository"
	"ota-server/pkg/errors"
)

// MetricsReader 读取部署Key下的原始计数
type MetricsReader interface {
	GetMetrics(ctx context.Context, deploymentKey string) (map[string]int64, error)
}

type MetricsService interface {
	Get(ctx context.Context, app, deployment string) (dto.MetricsResponse, error)
	History(ctx context.Context, app, deployment string, limit int) ([]*dto.SnapshotResponse, error)
	// Snapshot 为全部部署保存一次计数快照, 返回保存的数量
	Snapshot(ctx context.Context) (int, error)
}

type metricsService struct {
	locator     *locator
	deployments *repository.DeploymentRepository
	snapshots   *repository.SnapshotRepository
	reader      MetricsReader
	logger      *zap.Logger
}

func NewMetricsService(db *gorm.DB, reader MetricsReader, logger *zap.Logger) MetricsService {
	return &metricsService{
		locator:     newLocator(db),
		deployments: repository.NewDeploymentRepository(db),
		snapshots:   repository.NewSnapshotRepository(db),
		reader:      reader,
		logger:      logger,
	}
}

func (s *metricsService) Get(ctx context.Context, appName, name string) (dto.MetricsResponse, error) {
	_, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	counters, err := s.reader.GetMetrics(ctx, deployment.Key)
	if err != nil {
		return nil, errors.Unavailable("读取指标失败", err)
	}
	return groupCounters(counters), nil
}

func (s *metricsService) History(ctx context.Context, appName, name string, limit int) ([]*dto.SnapshotResponse, error) {
	_, deployment, err := s.locator.deployment(ctx, appName, name)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.snapshots.ListByDeployment(ctx, deployment.ID, limit)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDatabaseError, "查询指标快照失败", err)
	}
	return lo.Map(snapshots, func(snap model.MetricsSnapshot, _ int) *dto.SnapshotResponse {
		return &dto.SnapshotResponse{
			TakenAt: snap.TakenAt,
			Metrics: groupCounters(fromJSONMap(snap.Counters)),
		}
	}), nil
}

func (s *metricsService) Snapshot(ctx context.Context) (int, error) {
	deployments, err := s.deployments.ListAll(ctx)
	if err != nil {
		return 0, errors.Wrap(errors.CodeDatabaseError, "查询部署失败", err)
	}

	now := time.Now()
	saved := 0
	for _, d := range deployments {
		counters, err := s.reader.GetMetrics(ctx, d.Key)
		if err != nil {
			s.logger.Warn("读取指标失败, 跳过快照", zap.String("deployment", d.Name), zap.Error(err))
			continue
		}
		if len(counters) == 0 {
			continue
		}

		snapshot := &model.MetricsSnapshot{
			DeploymentID:  d.ID,
			DeploymentKey: d.Key,
			Counters:      toJSONMap(counters),
			TakenAt:       now,
		}
		if err := s.snapshots.Create(ctx, snapshot); err != nil {
			s.logger.Warn("保存指标快照失败", zap.String("deployment", d.Name), zap.Error(err))
			continue
		}
		saved++
	}
	return saved, nil
}

// groupCounters 将 "<label>:<status>" 展开为 标签 → 状态 → 数量
func groupCounters(counters map[string]int64) dto.MetricsResponse {
	grouped := make(dto.MetricsResponse)
	for field, n := range counters {
		i := strings.LastIndex(field, ":")
		if i <= 0 || i == len(field)-1 {
			continue
		}
		label, status := field[:i], field[i+1:]
		if grouped[label] == nil {
			grouped[label] = make(dto.LabelMetrics)
		}
		grouped[label][status] = n
	}
	return grouped
}

func toJSONMap(counters map[string]int64) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(counters))
	for k, v := range counters {
		m[k] = v
	}
	return m
}

func fromJSONMap(m datatypes.JSONMap) map[string]int64 {
	counters := make(map[string]int64, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case float64:
			counters[k] = int64(n)
		case int64:
			counters[k] = n
		case json.Number:
			if i, err := n.Int64(); err == nil {
				counters[k] = i
			}
		}
	}
	return counters
}
