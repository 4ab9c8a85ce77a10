package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ota-server/internal/pkg/metrics"
)

// JobKind 异步任务类型
type JobKind int

const (
	JobIncrement JobKind = iota
	JobAdoption
	JobForgetClient
)

// Job 一次指标写入
type Job struct {
	Kind           JobKind
	DeploymentKey  string
	Label          string
	Status         Status
	ClientUniqueID string
	Adoption       Adoption
}

func (j Job) String() string {
	switch j.Kind {
	case JobAdoption:
		return fmt.Sprintf("adoption %s:%s", j.Adoption.DeploymentKey, j.Adoption.Label)
	case JobForgetClient:
		return fmt.Sprintf("forget %s", j.DeploymentKey)
	default:
		return fmt.Sprintf("increment %s:%s", j.DeploymentKey, Field(j.Label, j.Status))
	}
}

// Dispatcher 将指标写入与请求路径解耦: 队列满即丢弃, 每个任务最多重试一次
type Dispatcher struct {
	ledger  *Ledger
	logger  *zap.Logger
	timeout time.Duration
	workers int

	jobs chan Job
	errs chan error
	wg   sync.WaitGroup

	mu      sync.RWMutex
	running bool
	stopped bool // Stop 后队列已关闭, 不可再启动
}

// NewDispatcher 创建分发器
func NewDispatcher(ledger *Ledger, logger *zap.Logger, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		ledger:  ledger,
		logger:  logger,
		timeout: timeout,
		workers: workers,
		jobs:    make(chan Job, queueSize),
		errs:    make(chan error, 64),
	}
}

// Start 启动写入协程; Stop 之后再次调用无效
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	if d.stopped {
		d.logger.Warn("指标分发器已停止, 忽略启动")
		return
	}
	d.running = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Stop 停止接收新任务并等待队列排空
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	d.wg.Wait()
	close(d.errs)
}

// Errors 写入失败的错误, 非阻塞投递, 消费不及时会丢失
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Submit 投递任务, 不阻塞; 返回 false 表示已丢弃
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		metrics.LedgerDropped("stopped")
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		metrics.LedgerDropped("queue_full")
		return false
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		err := d.run(job)
		if err != nil {
			// 最多重试一次
			err = d.run(job)
		}
		if err != nil {
			metrics.LedgerDropped("store_error")
			d.publish(fmt.Errorf("ledger %s: %w", job, err))
		}
	}
}

func (d *Dispatcher) run(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	switch job.Kind {
	case JobAdoption:
		return d.ledger.RecordAdoption(ctx, job.Adoption)
	case JobForgetClient:
		return d.ledger.ForgetClient(ctx, job.DeploymentKey, job.ClientUniqueID)
	default:
		return d.ledger.IncrementStatus(ctx, job.DeploymentKey, job.Label, job.Status)
	}
}

func (d *Dispatcher) publish(err error) {
	select {
	case d.errs <- err:
	default:
		d.logger.Warn("指标错误通道已满", zap.Error(err))
	}
}
