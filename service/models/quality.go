/*
 * @module service/models/quality
 * @description 数据质量规则与执行记录模型定义
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 规则创建 -> 规则执行 -> 追加执行记录 -> 质量评分
 * @rules 执行记录表只允许追加，历史记录永不更新或删除
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs catalog.go, service/governance
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 质量规则类型
const (
	RuleTypeNullCheck        = "NULL_CHECK"
	RuleTypeRegexMatch       = "REGEX_MATCH"
	RuleTypeRangeCheck       = "RANGE_CHECK"
	RuleTypeCustomSQL        = "CUSTOM_SQL"
	RuleTypeAnomalyDetection = "ANOMALY_DETECTION"
	RuleTypeForeignKey       = "FOREIGN_KEY"
)

// 质量规则严重级别
const (
	SeverityWarning  = "WARNING"
	SeverityCritical = "CRITICAL"
)

// 执行记录状态
const (
	ExecutionStatusPass  = "PASS"
	ExecutionStatusFail  = "FAIL"
	ExecutionStatusError = "ERROR"
)

// QualityRule 数据质量规则模型
type QualityRule struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	DatasetID   string    `gorm:"not null;index" json:"dataset_id"`
	Dataset     *Dataset  `gorm:"foreignKey:DatasetID" json:"dataset,omitempty"`
	Name        string    `gorm:"not null;size:200" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	RuleType    string    `gorm:"not null;size:30;index" json:"rule_type"` // NULL_CHECK/REGEX_MATCH/RANGE_CHECK/CUSTOM_SQL/ANOMALY_DETECTION/FOREIGN_KEY
	FieldName   *string   `gorm:"size:100" json:"field_name"`              // CUSTOM_SQL 类型可为空
	Criteria    JSONB     `gorm:"type:jsonb;not null" json:"criteria"`     // 判定条件，结构由 RuleType 决定
	Severity    string    `gorm:"not null;default:'WARNING';size:20" json:"severity"`
	// 不能带列默认值：gorm建插入语句时会跳过零值字段，显式的false会被默认值吞掉
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy   string    `gorm:"not null;default:'system';size:100" json:"created_by"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy   string    `gorm:"not null;default:'system';size:100" json:"updated_by"`
}

// BeforeCreate 创建前钩子
func (q *QualityRule) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Severity == "" {
		q.Severity = SeverityWarning
	}
	if q.CreatedBy == "" {
		q.CreatedBy = "system"
	}
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (q *QualityRule) BeforeUpdate(tx *gorm.DB) error {
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// TableName 指定表名
func (QualityRule) TableName() string {
	return "quality_rules"
}

// QualityRuleExecution 质量规则执行记录模型（只追加，不更新）
type QualityRuleExecution struct {
	ID             string       `gorm:"type:uuid;primary_key" json:"id"`
	RuleID         string       `gorm:"not null;index" json:"rule_id"`
	Rule           *QualityRule `gorm:"foreignKey:RuleID" json:"rule,omitempty"`
	Status         string       `gorm:"not null;size:10;index" json:"status"` // PASS/FAIL/ERROR
	RecordsChecked int64        `gorm:"not null;default:0" json:"records_checked"`
	FailuresFound  int64        `gorm:"not null;default:0" json:"failures_found"`
	AnomalyScore   *float64     `json:"anomaly_score"` // 仅 ANOMALY_DETECTION 规则产出
	Detail         string       `gorm:"type:text" json:"detail"`
	DurationMs     int64        `gorm:"not null;default:0" json:"duration_ms"`
	RunDate        time.Time    `gorm:"not null;index" json:"run_date"`
}

// BeforeCreate 创建前钩子
func (e *QualityRuleExecution) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.RunDate.IsZero() {
		e.RunDate = time.Now()
	}
	return nil
}

// TableName 指定表名
func (QualityRuleExecution) TableName() string {
	return "quality_rule_executions"
}
