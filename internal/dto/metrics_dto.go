package dto

import "time"

// LabelMetrics 单个标签的计数: 状态 → 数量
type LabelMetrics map[string]int64

// MetricsResponse 部署的计数: 标签 → 状态 → 数量
type MetricsResponse map[string]LabelMetrics

// SnapshotResponse 计数快照
type SnapshotResponse struct {
	TakenAt time.Time       `json:"taken_at"`
	Metrics MetricsResponse `json:"metrics"`
}
