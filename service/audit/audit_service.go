/*
 * @module service/audit/audit_service
 * @description 敏感数据访问审计服务，PII/PHI数据集的读取留痕与访问日志查询
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 敏感数据读取 -> 落库访问日志 -> 推送审计事件 -> 合规审查
 * @rules 访问日志只追加；落库失败视为合规事件向上抛出，调用方负责告警
 * @dependencies gorm.io/gorm, log/slog
 * @refs event_publisher.go, service/governance/recorder.go
 */

package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datagov-service/service/models"

	"gorm.io/gorm"
)

// AuditService 敏感数据访问审计服务
type AuditService struct {
	db        *gorm.DB
	publisher EventPublisher
}

// NewAuditService 创建审计服务实例
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// SetEventPublisher 设置审计事件发布器，未设置时只落库不外发
func (s *AuditService) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// RecordAccess 记录一次敏感数据访问。落库失败属于合规事件，错误会向上抛出；
// 事件外发失败只记录日志，不影响访问日志本身的落库结果。
func (s *AuditService) RecordAccess(ctx context.Context, dataset *models.Dataset, actionType string, recordCount int64, reason, actor string) (*models.SensitiveAccessLog, error) {
	entry := &models.SensitiveAccessLog{
		DatasetID:   dataset.ID,
		ActionType:  actionType,
		RecordCount: recordCount,
		Reason:      reason,
		Actor:       actor,
		AccessedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("写入敏感访问日志失败: %w", err)
	}

	if s.publisher != nil {
		event := &AccessEvent{
			LogID:       entry.ID,
			DatasetID:   dataset.ID,
			DatasetName: dataset.Name,
			Sensitivity: dataset.Sensitivity,
			ActionType:  actionType,
			RecordCount: recordCount,
			Reason:      reason,
			Actor:       actor,
			AccessedAt:  entry.AccessedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			slog.Error("审计事件外发失败", "dataset_id", dataset.ID, "action_type", actionType, "error", err)
		}
	}
	return entry, nil
}

// AccessLogQuery 访问日志查询条件
type AccessLogQuery struct {
	DatasetID  string
	ActionType string
	Since      *time.Time
	Limit      int
	Offset     int
}

// ListAccessLogs 查询敏感访问日志，按访问时间倒序
func (s *AuditService) ListAccessLogs(ctx context.Context, query AccessLogQuery) ([]models.SensitiveAccessLog, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.SensitiveAccessLog{})
	if query.DatasetID != "" {
		db = db.Where("dataset_id = ?", query.DatasetID)
	}
	if query.ActionType != "" {
		db = db.Where("action_type = ?", query.ActionType)
	}
	if query.Since != nil {
		db = db.Where("accessed_at >= ?", *query.Since)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计访问日志失败: %w", err)
	}

	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var logs []models.SensitiveAccessLog
	if err := db.Preload("Dataset").Order("accessed_at DESC").Limit(limit).Offset(query.Offset).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("查询访问日志失败: %w", err)
	}
	return logs, total, nil
}
