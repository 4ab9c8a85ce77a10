package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"ota-server/internal/pkg/config"
)

const (
	defaultSnapshotCron = "0 */15 * * * *"
	snapshotTimeout     = time.Minute

	jobMetricsSnapshot = "metrics_snapshot"
)

// Snapshotter 保存全部部署的指标快照
type Snapshotter interface {
	Snapshot(ctx context.Context) (int, error)
}

// Scheduler 调度器
type Scheduler struct {
	cron          *cron.Cron
	logger        *zap.Logger
	snapshots     Snapshotter
	cronSchedules map[string]cron.EntryID // 存储任务ID，便于管理
}

// NewScheduler 创建调度器
func NewScheduler(snapshots Snapshotter, logger *zap.Logger) *Scheduler {
	// 创建 cron 实例（带秒级支持）, 上一轮未结束时跳过本轮
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	return &Scheduler{
		cron:          c,
		logger:        logger,
		snapshots:     snapshots,
		cronSchedules: make(map[string]cron.EntryID),
	}
}

// Start 启动调度器
func (s *Scheduler) Start(cfg *config.SchedulerConfig) error {
	log := s.logger.Sugar()

	log.Info("启动定时任务调度器...")

	// cron 表达式格式: 秒 分 时 日 月 周
	cronExpr := cfg.MetricsSnapshotCron
	if cronExpr == "" {
		cronExpr = defaultSnapshotCron
		log.Warnw("未配置scheduler.metrics_snapshot_cron，使用默认值", "cron", cronExpr)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		if _, err := s.TriggerSnapshot(); err != nil {
			log.Errorf("指标快照任务执行失败: %v", err)
		}
	})
	if err != nil {
		log.Errorf("注册指标快照任务: %v 失败: %v", cronExpr, err)
		return err
	}

	s.cronSchedules[jobMetricsSnapshot] = entryID
	log.Infof("指标快照任务已注册: %s entry_id=%d", cronExpr, entryID)

	// 启动 cron
	s.cron.Start()
	log.Info("定时任务调度器启动成功")

	return nil
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.logger.Info("正在停止定时任务调度器...")

	// 停止 cron（等待正在执行的任务完成）
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("定时任务调度器已停止")
}

// TriggerSnapshot 手动触发一次指标快照
func (s *Scheduler) TriggerSnapshot() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	saved, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("指标快照完成", zap.Int("saved", saved))
	return saved, nil
}

// Entries 已注册任务
func (s *Scheduler) Entries() map[string]cron.EntryID {
	return s.cronSchedules
}
