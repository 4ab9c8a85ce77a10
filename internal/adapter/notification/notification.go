package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyReleaseUploaded   NotificationType = "release_uploaded"    // 新发布
	NotifyReleasePromoted   NotificationType = "release_promoted"    // 推广
	NotifyReleaseRolledBack NotificationType = "release_rolled_back" // 回滚
	NotifyReleaseEdited     NotificationType = "release_edited"      // 修改
	NotifyReleaseDisabled   NotificationType = "release_disabled"    // 禁用
	NotifyHistoryCleared    NotificationType = "history_cleared"     // 清空历史
	NotifyKeyRotated        NotificationType = "key_rotated"         // 更换Key
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// ReleaseEvent 发布变更事件
type ReleaseEvent struct {
	Type       NotificationType
	App        string
	Deployment string
	Label      string
	Operator   string
	Message    string
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error

	// SendReleaseNotification 发送发布变更通知
	SendReleaseNotification(ctx context.Context, event ReleaseEvent) error
}

// New 按配置创建通知器, 未启用时只记录日志
func New(enabled bool, provider, larkWebhook string, logger *zap.Logger) Notifier {
	logNotifier := NewLogNotifier(logger)
	if !enabled || provider != "lark" {
		return logNotifier
	}
	return NewMultiNotifier(logger, logNotifier, NewLarkNotifier(larkWebhook, true, logger))
}

// ============= Lark 通知适配器 =============

// LarkNotifier Lark通知器
type LarkNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewLarkNotifier 创建Lark通知器
func NewLarkNotifier(webhookURL string, enabled bool, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 发送通知
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Lark Webhook URL未配置")
		return nil
	}

	jsonData, err := json.Marshal(n.buildLarkMessage(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Lark API返回错误状态码: %d", resp.StatusCode)
	}

	n.logger.Info("Lark通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title))

	return nil
}

// SendReleaseNotification 发送发布变更通知
func (n *LarkNotifier) SendReleaseNotification(ctx context.Context, event ReleaseEvent) error {
	return n.Send(ctx, buildReleaseMessage(event))
}

func buildReleaseMessage(event ReleaseEvent) *NotificationMessage {
	var title, color string

	switch event.Type {
	case NotifyReleaseUploaded:
		title = "🚀 新版本发布"
		color = "blue"
	case NotifyReleasePromoted:
		title = "✅ 版本推广"
		color = "green"
	case NotifyReleaseRolledBack:
		title = "⏪ 版本回滚"
		color = "orange"
	case NotifyReleaseDisabled, NotifyHistoryCleared:
		title = "❌ " + string(event.Type)
		color = "red"
	default:
		title = "📢 发布通知"
		color = "grey"
	}

	content := fmt.Sprintf("**应用**: %s\n**部署**: %s\n**标签**: %s\n**操作人**: %s\n**消息**: %s",
		event.App, event.Deployment, event.Label, event.Operator, event.Message)

	return &NotificationMessage{
		Type:      event.Type,
		Title:     title,
		Content:   content,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"app":        event.App,
			"deployment": event.Deployment,
			"label":      event.Label,
			"color":      color,
		},
	}
}

// buildLarkMessage 构建Lark消息格式
func (n *LarkNotifier) buildLarkMessage(msg *NotificationMessage) map[string]interface{} {
	color := "grey"
	if c, ok := msg.Extra["color"].(string); ok {
		color = c
	}

	// Lark富文本消息格式
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": color,
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "lark_md",
						"content": msg.Content,
					},
				},
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "plain_text",
						"content": fmt.Sprintf("时间: %s", msg.Timestamp.Format("2006-01-02 15:04:05")),
					},
				},
			},
		},
	}
}

// ============= 多通知器 =============

// MultiNotifier 多通知器(支持同时发送到多个渠道)
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Send 发送到所有通知器
func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("发送通知失败", zap.Error(err))
			lastErr = err
			// 继续发送其他通知器
		}
	}
	return lastErr
}

// SendReleaseNotification 发送发布通知到所有通知器
func (m *MultiNotifier) SendReleaseNotification(ctx context.Context, event ReleaseEvent) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if err := notifier.SendReleaseNotification(ctx, event); err != nil {
			m.logger.Error("发送发布通知失败", zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// ============= 日志通知器(仅记录日志,不发送实际通知) =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send 记录通知到日志
func (n *LogNotifier) Send(_ context.Context, msg *NotificationMessage) error {
	n.logger.Info("📢 通知",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content),
		zap.Any("extra", msg.Extra))
	return nil
}

// SendReleaseNotification 记录发布通知到日志
func (n *LogNotifier) SendReleaseNotification(_ context.Context, event ReleaseEvent) error {
	n.logger.Info("📢 发布通知",
		zap.String("type", string(event.Type)),
		zap.String("app", event.App),
		zap.String("deployment", event.Deployment),
		zap.String("label", event.Label),
		zap.String("operator", event.Operator),
		zap.String("message", event.Message))
	return nil
}
