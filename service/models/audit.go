/*
 * @module service/models/audit
 * @description 敏感数据访问日志模型定义，PII/PHI数据集读取留痕
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 敏感数据读取 -> 写入访问日志 -> 合规审查
 * @rules 访问日志只追加；写入失败属于合规事件，必须告警而不能静默丢弃
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs catalog.go, service/audit
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 敏感访问动作类型
const (
	ActionQualityCheckRead = "QUALITY_CHECK_READ"
	ActionExport           = "EXPORT"
	ActionQuery            = "QUERY"
)

// SensitiveAccessLog 敏感数据访问日志模型
type SensitiveAccessLog struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	DatasetID   string    `gorm:"not null;index" json:"dataset_id"`
	Dataset     *Dataset  `gorm:"foreignKey:DatasetID" json:"dataset,omitempty"`
	ActionType  string    `gorm:"not null;size:50" json:"action_type"` // QUALITY_CHECK_READ/EXPORT/QUERY
	RecordCount int64     `gorm:"not null;default:0" json:"record_count"`
	Reason      string    `gorm:"size:500" json:"reason"`
	Actor       string    `gorm:"not null;default:'system';size:100" json:"actor"`
	AccessedAt  time.Time `gorm:"not null;index" json:"accessed_at"`
}

// BeforeCreate 创建前钩子
func (s *SensitiveAccessLog) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.Actor == "" {
		s.Actor = "system"
	}
	if s.AccessedAt.IsZero() {
		s.AccessedAt = time.Now()
	}
	return nil
}

// TableName 指定表名
func (SensitiveAccessLog) TableName() string {
	return "sensitive_access_logs"
}
