// Package ledger 在Redis中按 部署Key/标签/状态 维护安装计数
package ledger

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	labelsKeyPrefix  = "deploymentKeyLabels:"
	clientsKeyPrefix = "deploymentKeyClients:"
)

func labelsKey(deploymentKey string) string  { return labelsKeyPrefix + deploymentKey }
func clientsKey(deploymentKey string) string { return clientsKeyPrefix + deploymentKey }

// Ledger 计数只通过 HINCRBY 增减
type Ledger struct {
	client redis.Cmdable
	logger *zap.Logger
}

func New(client redis.Cmdable, logger *zap.Logger) *Ledger {
	return &Ledger{client: client, logger: logger}
}

// Adoption 客户端切换到新标签
type Adoption struct {
	DeploymentKey  string
	Label          string
	PreviousKey    string // 为空时与 DeploymentKey 相同
	PreviousLabel  string // 为空时从客户端映射中查找
	ClientUniqueID string
}

// IncrementStatus 单个计数加一, 未知状态直接忽略
func (l *Ledger) IncrementStatus(ctx context.Context, deploymentKey, label string, status Status) error {
	if !status.Valid() {
		return nil
	}
	return l.client.HIncrBy(ctx, labelsKey(deploymentKey), Field(label, status), 1).Err()
}

// adoptionScript 客户端映射的读取与计数更新在同一脚本中提交,
// 同一客户端的并发上报不会重复扣减旧标签
// KEYS: 新标签计数, 新客户端映射, 旧标签计数, 旧客户端映射
// ARGV: 新标签, 客户端ID, 旧标签(可为空), Active, DeploymentSucceeded
var adoptionScript = redis.NewScript(`
local label, client, prev = ARGV[1], ARGV[2], ARGV[3]
local active, succeeded = ':' .. ARGV[4], ':' .. ARGV[5]
if prev == '' and client ~= '' then
	local current = redis.call('HGET', KEYS[4], client)
	if current then
		prev = current
	end
end
redis.call('HINCRBY', KEYS[1], label .. active, 1)
redis.call('HINCRBY', KEYS[1], label .. succeeded, 1)
if prev ~= '' then
	redis.call('HINCRBY', KEYS[3], prev .. active, -1)
end
if client ~= '' then
	if KEYS[4] ~= KEYS[2] then
		redis.call('HDEL', KEYS[4], client)
	end
	redis.call('HSET', KEYS[2], client, label)
end
return 1
`)

// RecordAdoption 原子完成: 新标签 Active/DeploymentSucceeded 加一,
// 旧标签 Active 减一, 更新客户端当前标签
func (l *Ledger) RecordAdoption(ctx context.Context, a Adoption) error {
	prevKey := a.PreviousKey
	if prevKey == "" {
		prevKey = a.DeploymentKey
	}
	keys := []string{
		labelsKey(a.DeploymentKey),
		clientsKey(a.DeploymentKey),
		labelsKey(prevKey),
		clientsKey(prevKey),
	}
	return adoptionScript.Run(ctx, l.client, keys,
		a.Label, a.ClientUniqueID, a.PreviousLabel, string(StatusActive), string(StatusDeploymentSucceeded)).Err()
}

// GetMetrics 返回 "<label>:<status>" → 计数, 非数字的值跳过
func (l *Ledger) GetMetrics(ctx context.Context, deploymentKey string) (map[string]int64, error) {
	raw, err := l.client.HGetAll(ctx, labelsKey(deploymentKey)).Result()
	if err != nil {
		return nil, err
	}

	counters := make(map[string]int64, len(raw))
	for field, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			l.logger.Warn("跳过无法解析的计数", zap.String("deployment_key", deploymentKey), zap.String("field", field))
			continue
		}
		counters[field] = n
	}
	return counters, nil
}

// Clear 删除部署Key下全部计数及客户端映射
func (l *Ledger) Clear(ctx context.Context, deploymentKey string) error {
	return l.client.Del(ctx, labelsKey(deploymentKey), clientsKey(deploymentKey)).Err()
}

// ForgetClient 删除客户端的当前标签记录
func (l *Ledger) ForgetClient(ctx context.Context, deploymentKey, clientUniqueID string) error {
	return l.client.HDel(ctx, clientsKey(deploymentKey), clientUniqueID).Err()
}

// renameScript 源Key不存在时跳过
var renameScript = redis.NewScript(`
for i = 1, #KEYS, 2 do
	if redis.call('EXISTS', KEYS[i]) == 1 then
		redis.call('RENAME', KEYS[i], KEYS[i + 1])
	end
end
return 1
`)

// Rename 部署Key轮换时迁移计数
func (l *Ledger) Rename(ctx context.Context, oldKey, newKey string) error {
	keys := []string{
		labelsKey(oldKey), labelsKey(newKey),
		clientsKey(oldKey), clientsKey(newKey),
	}
	return renameScript.Run(ctx, l.client, keys).Err()
}
