/*
 * @module service/governance/types
 * @description 数据治理相关的类型定义，包含请求响应模型和业务逻辑类型
 * @architecture 服务层 - 类型定义
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 业务数据结构定义
 * @rules 确保业务逻辑的强类型定义，便于API接口使用
 * @dependencies time
 * @refs service/models/quality.go, service/models/catalog.go
 */

package governance

import (
	"time"
)

// === 质量规则管理相关类型 ===

// CreateQualityRuleRequest 创建质量规则请求
type CreateQualityRuleRequest struct {
	DatasetID   string                 `json:"dataset_id" binding:"required" example:"uuid-123"`
	Name        string                 `json:"name" binding:"required" example:"用户邮箱非空检查"`
	Description string                 `json:"description" example:"users 表 email 字段不允许为空"`
	RuleType    string                 `json:"rule_type" binding:"required" example:"NULL_CHECK" enums:"NULL_CHECK,REGEX_MATCH,RANGE_CHECK,CUSTOM_SQL,ANOMALY_DETECTION,FOREIGN_KEY"`
	FieldName   *string                `json:"field_name" example:"email"`
	Criteria    map[string]interface{} `json:"criteria" binding:"required" swaggertype:"object"`
	Severity    string                 `json:"severity" example:"CRITICAL" enums:"WARNING,CRITICAL"`
	CreatedBy   string                 `json:"created_by" example:"admin"`
}

// UpdateQualityRuleRequest 更新质量规则请求
type UpdateQualityRuleRequest struct {
	Name        string                 `json:"name,omitempty" example:"更新后的规则名称"`
	Description string                 `json:"description,omitempty" example:"更新后的描述"`
	FieldName   *string                `json:"field_name,omitempty" example:"email"`
	Criteria    map[string]interface{} `json:"criteria,omitempty" swaggertype:"object"`
	Severity    string                 `json:"severity,omitempty" example:"WARNING" enums:"WARNING,CRITICAL"`
	IsActive    *bool                  `json:"is_active,omitempty" example:"true"`
	UpdatedBy   string                 `json:"updated_by,omitempty" example:"admin"`
}

// QualityRuleListQuery 质量规则列表查询条件
type QualityRuleListQuery struct {
	DatasetID  string
	RuleType   string
	Severity   string
	ActiveOnly bool
	Page       int
	Size       int
}

// === 质量检测执行相关类型 ===

// RunChecksRequest 批量检测请求，两个过滤条件均为空时执行全量检测
type RunChecksRequest struct {
	DatasetID string   `json:"dataset_id,omitempty" example:"uuid-123"`
	RuleIDs   []string `json:"rule_ids,omitempty"`
	TriggerBy string   `json:"trigger_by,omitempty" example:"admin"`
}

// RunSummary 批量检测结果摘要
type RunSummary struct {
	Triggered int       `json:"triggered" example:"12"` // 实际执行的规则数
	Passed    int       `json:"passed" example:"9"`
	Failed    int       `json:"failed" example:"2"`
	Errors    int       `json:"errors" example:"1"`    // 执行异常，区别于检测不通过
	Conflicts int       `json:"conflicts" example:"0"` // 正在执行中被跳过的规则数
	StartedAt time.Time `json:"started_at"`
	Duration  int64     `json:"duration_ms"`
}

// ExecutionListQuery 执行记录列表查询条件
type ExecutionListQuery struct {
	DatasetID string
	RuleID    string
	RuleType  string
	Status    string
	Limit     int
	Offset    int
}

// === 质量评分相关类型 ===

// QualityScore 数据集质量评分，基于各启用规则的最近一次执行结果计算
type QualityScore struct {
	DatasetID    string             `json:"dataset_id,omitempty"`
	Score        int                `json:"score" example:"92"` // 0-100
	TotalRules   int                `json:"total_rules" example:"12"`
	PassedRules  int                `json:"passed_rules" example:"11"`
	FailedRules  int                `json:"failed_rules" example:"1"`
	ErroredRules int                `json:"errored_rules" example:"0"`
	BySeverity   map[string]int     `json:"by_severity,omitempty"` // 各严重级别未通过的规则数
	CriticalFail []CriticalFailItem `json:"critical_failures,omitempty"`
	CalculatedAt time.Time          `json:"calculated_at"`
}

// CriticalFailItem 严重级别未通过规则项
type CriticalFailItem struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// === 数据集目录相关类型 ===

// CreateDatasetRequest 注册数据集请求
type CreateDatasetRequest struct {
	Name            string   `json:"name" binding:"required" example:"community_posts"`
	DisplayName     string   `json:"display_name" example:"社区帖子"`
	Description     string   `json:"description"`
	Domain          string   `json:"domain" example:"community"`
	Sensitivity     string   `json:"sensitivity" example:"PHI" enums:"PUBLIC,INTERNAL,SENSITIVE,PII,PHI"`
	OwnerTeam       string   `json:"owner_team" example:"data-platform"`
	RetentionPolicy string   `json:"retention_policy" example:"7y"`
	Tags            []string `json:"tags"`
	CreatedBy       string   `json:"created_by" example:"admin"`
}

// === 数据血缘相关类型 ===

// 血缘遍历方向
const (
	LineageDirectionUpstream   = "upstream"
	LineageDirectionDownstream = "downstream"
	LineageDirectionBoth       = "both"
)

// AddLineageEdgeRequest 登记血缘边请求
type AddLineageEdgeRequest struct {
	SourceDatasetID string `json:"source_dataset_id" binding:"required" example:"uuid-src"`
	TargetDatasetID string `json:"target_dataset_id" binding:"required" example:"uuid-dst"`
	TransformType   string `json:"transform_type" example:"ETL" enums:"ETL,AGGREGATION,COPY,EXPORT"`
	Description     string `json:"description" example:"夜间ETL同步"`
	CreatedBy       string `json:"created_by" example:"admin"`
}

// LineageNode 血缘节点，depth为距查询数据集的跳数
type LineageNode struct {
	DatasetID   string `json:"dataset_id"`
	Name        string `json:"name"`
	Sensitivity string `json:"sensitivity"`
	Depth       int    `json:"depth" example:"1"`
}

// LineageGraph 数据集血缘视图
type LineageGraph struct {
	Dataset    LineageNode   `json:"dataset"`
	Upstream   []LineageNode `json:"upstream,omitempty"`
	Downstream []LineageNode `json:"downstream,omitempty"`
	Depth      int           `json:"depth" example:"3"`
}

// LineageImpact 影响分析结果，汇总数据集变更波及的下游范围
type LineageImpact struct {
	DatasetID         string        `json:"dataset_id"`
	Downstream        []LineageNode `json:"downstream,omitempty"`
	AffectedDatasets  int           `json:"affected_datasets" example:"4"`
	AffectedRules     int           `json:"affected_rules" example:"7"` // 下游数据集上挂载的启用规则数
	ProtectedDatasets []string      `json:"protected_datasets,omitempty"`
}

// DatasetListQuery 数据集列表查询条件
type DatasetListQuery struct {
	Domain      string
	Sensitivity string
	ActiveOnly  bool
	Page        int
	Size        int
}
