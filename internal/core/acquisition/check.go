package acquisition

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"ota-server/internal/core/rollout"
	"ota-server/internal/model"
	"ota-server/internal/pkg/metrics"
	"ota-server/pkg/errors"
)

// UpdateCheckRequest 客户端的更新检查参数
type UpdateCheckRequest struct {
	DeploymentKey  string
	AppVersion     string // 客户端二进制版本
	PackageHash    string // 当前运行包的哈希, 运行二进制自带包时为空
	Label          string
	ClientUniqueID string
}

// UpdateInfo 更新检查结果
type UpdateInfo struct {
	IsAvailable bool   `json:"is_available"`
	IsMandatory bool   `json:"is_mandatory"`
	AppVersion  string `json:"app_version"`
	Label       string `json:"label,omitempty"`
	PackageHash string `json:"package_hash,omitempty"`
	PackageSize int64  `json:"package_size,omitempty"`
	Description string `json:"description,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// candidate 与客户端无关的候选发布, 作为缓存内容
type candidate struct {
	Label       string `json:"label"`
	PackageHash string `json:"package_hash"`
	PackageSize int64  `json:"package_size"`
	BlobKey     string `json:"blob_key"`
	Rollout     *int   `json:"rollout,omitempty"`
	IsMandatory bool   `json:"is_mandatory"`
	Description string `json:"description,omitempty"`
}

// CheckForUpdate 计算客户端应获得的发布
// 部署Key未知返回 NotFound; 客户端版本非法返回 ValidationError; 存储不可用时返回"无更新"
func (s *Service) CheckForUpdate(ctx context.Context, req UpdateCheckRequest) (*UpdateInfo, error) {
	if req.DeploymentKey == "" {
		return nil, errors.Validation("deployment_key 不能为空")
	}
	version, err := semver.NewVersion(req.AppVersion)
	if err != nil {
		return nil, errors.Validation("app_version %q 不是合法的版本号", req.AppVersion)
	}
	noUpdate := &UpdateInfo{AppVersion: req.AppVersion}

	// RESOLVE
	resolveCtx, cancel := context.WithTimeout(ctx, s.historyTimeout)
	deployment, err := s.resolver.ResolveByKey(resolveCtx, req.DeploymentKey)
	cancel()
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			metrics.UpdateCheck("not_found")
			return nil, err
		}
		s.logger.Warn("解析部署Key失败, 返回无更新", zap.Error(err))
		metrics.UpdateCheck("fail_closed")
		return noUpdate, nil
	}

	candidates, err := s.candidates(ctx, deployment, version)
	if err != nil {
		s.logger.Warn("读取发布历史失败, 返回无更新",
			zap.String("deployment", deployment.Name), zap.Error(err))
		metrics.UpdateCheck("fail_closed")
		return noUpdate, nil
	}

	info := s.resolve(candidates, req)
	if info == nil {
		metrics.UpdateCheck("no_update")
		return noUpdate, nil
	}
	metrics.UpdateCheck("update")
	return info, nil
}

// candidates 先查缓存, 未命中时合并并发请求后计算并回写
func (s *Service) candidates(ctx context.Context, deployment *model.Deployment, version *semver.Version) ([]candidate, error) {
	query := normalizeQuery(version)

	if cached, ok := s.cacheGet(ctx, deployment.Key, query); ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(deployment.Key+"|"+query, func() (interface{}, error) {
		// 合并后的计算不随首个请求取消
		computeCtx := context.WithoutCancel(ctx)
		historyCtx, cancel := context.WithTimeout(computeCtx, s.historyTimeout)
		defer cancel()

		releases, err := s.history.List(historyCtx, deployment.ID)
		if err != nil {
			return nil, err
		}
		list := buildCandidates(releases, version)
		s.cachePut(computeCtx, deployment.Key, query, list)
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]candidate), nil
}

func (s *Service) cacheGet(ctx context.Context, scope, query string) ([]candidate, bool) {
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()

	raw, ok, err := s.cache.Get(cacheCtx, scope, query)
	if err != nil {
		// 缓存故障按未命中处理
		metrics.CacheLookup("error")
		s.logger.Warn("读取响应缓存失败", zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheLookup("miss")
		return nil, false
	}

	var list []candidate
	if err := json.Unmarshal(raw, &list); err != nil {
		metrics.CacheLookup("error")
		s.logger.Warn("响应缓存内容无法解析", zap.Error(err))
		return nil, false
	}
	metrics.CacheLookup("hit")
	return list, true
}

func (s *Service) cachePut(ctx context.Context, scope, query string, list []candidate) {
	raw, err := json.Marshal(list)
	if err != nil {
		s.logger.Error("序列化候选发布失败", zap.Error(err))
		return
	}
	cacheCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()
	if err := s.cache.Put(cacheCtx, scope, query, raw); err != nil {
		s.logger.Warn("写入响应缓存失败", zap.Error(err))
	}
}

// resolve 从新到旧遍历候选:
// 遇到客户端已安装的包则停留(灰度比例下调时已命中的客户端不回退), 遇到命中灰度的发布则下发
func (s *Service) resolve(candidates []candidate, req UpdateCheckRequest) *UpdateInfo {
	served := -1
	for i, c := range candidates {
		if isCurrent(c, req) {
			return nil
		}
		if rollout.Decide(req.ClientUniqueID, c.Label, c.Rollout) {
			served = i
			break
		}
	}
	if served < 0 {
		return nil
	}

	target := candidates[served]
	// 被跳过的中间发布只要有一个强制, 本次更新即强制
	skipped := candidates[served:]
	if _, idx, ok := lo.FindIndexOf(skipped, func(c candidate) bool { return isCurrent(c, req) }); ok {
		skipped = skipped[:idx]
	}
	mandatory := lo.SomeBy(skipped, func(c candidate) bool { return c.IsMandatory })

	info := &UpdateInfo{
		IsAvailable: true,
		IsMandatory: mandatory,
		AppVersion:  req.AppVersion,
		Label:       target.Label,
		PackageHash: target.PackageHash,
		PackageSize: target.PackageSize,
		Description: target.Description,
	}
	if s.signer != nil && target.BlobKey != "" {
		info.DownloadURL = s.signer.DownloadURL(target.BlobKey)
	}
	return info
}

func isCurrent(c candidate, req UpdateCheckRequest) bool {
	if req.PackageHash != "" {
		return c.PackageHash == req.PackageHash
	}
	return req.Label != "" && c.Label == req.Label
}

// buildCandidates 过滤禁用及版本不匹配的发布, 新的在前
func buildCandidates(releases []model.Release, version *semver.Version) []candidate {
	list := make([]candidate, 0, len(releases))
	for i := len(releases) - 1; i >= 0; i-- {
		r := releases[i]
		if r.IsDisabled || !matchesVersion(r.AppVersion, version) {
			continue
		}
		list = append(list, candidate{
			Label:       r.Label,
			PackageHash: r.PackageHash,
			PackageSize: r.PackageSize,
			BlobKey:     r.BlobKey,
			Rollout:     r.Rollout,
			IsMandatory: r.IsMandatory,
			Description: lo.FromPtr(r.Description),
		})
	}
	return list
}

func matchesVersion(appVersionRange string, version *semver.Version) bool {
	constraint, err := semver.NewConstraint(appVersionRange)
	if err != nil {
		return false
	}
	return constraint.Check(version)
}

func normalizeQuery(version *semver.Version) string {
	return fmt.Sprintf("appVersion=%s", version.String())
}
