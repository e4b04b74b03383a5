/*
 * @module service/governance/governance_service
 * @description 数据治理服务聚合入口，提供数据集目录、质量规则管理、批量检测与质量评分
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 数据集注册 -> 规则创建 -> 批量检测 -> 结果查询 -> 质量评分
 * @rules 判定条件在规则落库前校验；规则下线采用停用而非物理删除，保留执行历史
 * @dependencies gorm.io/gorm, service/models, service/audit, service/distributed_lock
 * @refs rule_engine.go, executor.go, scorer.go, scheduler.go
 */

package governance

import (
	"context"
	"fmt"

	"datagov-service/service/audit"
	"datagov-service/service/distributed_lock"
	"datagov-service/service/models"

	"gorm.io/gorm"
)

// GovernanceService 数据治理服务
type GovernanceService struct {
	db           *gorm.DB
	ruleEngine   *RuleEngine
	recorder     *ExecutionRecorder
	executor     *CheckExecutor
	scorer       *QualityScorer
	lineage      *LineageService
	auditService *audit.AuditService
}

// NewGovernanceService 创建数据治理服务实例
func NewGovernanceService(db *gorm.DB, lock distributed_lock.DistributedLock) *GovernanceService {
	auditService := audit.NewAuditService(db)
	engine := NewRuleEngine(db)
	recorder := NewExecutionRecorder(db, auditService)

	return &GovernanceService{
		db:           db,
		ruleEngine:   engine,
		recorder:     recorder,
		executor:     NewCheckExecutor(db, engine, recorder, lock),
		scorer:       NewQualityScorer(db),
		lineage:      NewLineageService(db),
		auditService: auditService,
	}
}

// Executor 返回批量检测执行器
func (s *GovernanceService) Executor() *CheckExecutor {
	return s.executor
}

// AuditService 返回审计服务
func (s *GovernanceService) AuditService() *audit.AuditService {
	return s.auditService
}

// === 数据集目录管理 ===

// CreateDataset 注册数据集
func (s *GovernanceService) CreateDataset(ctx context.Context, req *CreateDatasetRequest) (*models.Dataset, error) {
	if !isValidSensitivity(req.Sensitivity) {
		return nil, fmt.Errorf("无效的敏感级别: %s", req.Sensitivity)
	}

	dataset := &models.Dataset{
		Name:            req.Name,
		DisplayName:     req.DisplayName,
		Description:     req.Description,
		Domain:          req.Domain,
		Sensitivity:     req.Sensitivity,
		OwnerTeam:       req.OwnerTeam,
		RetentionPolicy: req.RetentionPolicy,
		Tags:            req.Tags,
		IsActive:        true,
		CreatedBy:       req.CreatedBy,
		UpdatedBy:       req.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(dataset).Error; err != nil {
		return nil, fmt.Errorf("注册数据集失败: %w", err)
	}
	return dataset, nil
}

// GetDataset 获取数据集详情
func (s *GovernanceService) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.db.WithContext(ctx).First(&dataset, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
		}
		return nil, fmt.Errorf("查询数据集失败: %w", err)
	}
	return &dataset, nil
}

// GetDatasets 获取数据集列表
func (s *GovernanceService) GetDatasets(ctx context.Context, query DatasetListQuery) ([]models.Dataset, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.Dataset{})
	if query.Domain != "" {
		db = db.Where("domain = ?", query.Domain)
	}
	if query.Sensitivity != "" {
		db = db.Where("sensitivity = ?", query.Sensitivity)
	}
	if query.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计数据集失败: %w", err)
	}

	page, size := normalizePage(query.Page, query.Size)
	var datasets []models.Dataset
	if err := db.Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&datasets).Error; err != nil {
		return nil, 0, fmt.Errorf("查询数据集失败: %w", err)
	}
	return datasets, total, nil
}

// === 质量规则管理 ===

// CreateQualityRule 创建质量规则，判定条件格式错误时快速失败
func (s *GovernanceService) CreateQualityRule(ctx context.Context, req *CreateQualityRuleRequest) (*models.QualityRule, error) {
	if _, err := s.GetDataset(ctx, req.DatasetID); err != nil {
		return nil, err
	}
	if req.Severity != "" && req.Severity != models.SeverityWarning && req.Severity != models.SeverityCritical {
		return nil, NewConfigurationError(req.RuleType, "severity", "严重级别只能是 WARNING 或 CRITICAL")
	}

	criteria := models.JSONB(req.Criteria)
	if err := ValidateCriteria(req.RuleType, req.FieldName, criteria); err != nil {
		return nil, err
	}

	rule := &models.QualityRule{
		DatasetID:   req.DatasetID,
		Name:        req.Name,
		Description: req.Description,
		RuleType:    req.RuleType,
		FieldName:   req.FieldName,
		Criteria:    criteria,
		Severity:    req.Severity,
		IsActive:    true,
		CreatedBy:   req.CreatedBy,
		UpdatedBy:   req.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("创建质量规则失败: %w", err)
	}
	return rule, nil
}

// UpdateQualityRule 更新质量规则，变更判定条件时重新校验
func (s *GovernanceService) UpdateQualityRule(ctx context.Context, id string, req *UpdateQualityRuleRequest) (*models.QualityRule, error) {
	rule, err := s.GetQualityRule(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Description != "" {
		rule.Description = req.Description
	}
	if req.FieldName != nil {
		rule.FieldName = req.FieldName
	}
	if req.Criteria != nil {
		rule.Criteria = models.JSONB(req.Criteria)
	}
	if req.Severity != "" {
		if req.Severity != models.SeverityWarning && req.Severity != models.SeverityCritical {
			return nil, NewConfigurationError(rule.RuleType, "severity", "严重级别只能是 WARNING 或 CRITICAL")
		}
		rule.Severity = req.Severity
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.UpdatedBy != "" {
		rule.UpdatedBy = req.UpdatedBy
	}

	if err := ValidateCriteria(rule.RuleType, rule.FieldName, rule.Criteria); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, fmt.Errorf("更新质量规则失败: %w", err)
	}
	return rule, nil
}

// DeactivateQualityRule 停用质量规则，执行历史保留
func (s *GovernanceService) DeactivateQualityRule(ctx context.Context, id, updatedBy string) error {
	rule, err := s.GetQualityRule(ctx, id)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{"is_active": false}
	if updatedBy != "" {
		updates["updated_by"] = updatedBy
	}
	if err := s.db.WithContext(ctx).Model(rule).Updates(updates).Error; err != nil {
		return fmt.Errorf("停用质量规则失败: %w", err)
	}
	return nil
}

// GetQualityRule 获取质量规则详情
func (s *GovernanceService) GetQualityRule(ctx context.Context, id string) (*models.QualityRule, error) {
	var rule models.QualityRule
	if err := s.db.WithContext(ctx).Preload("Dataset").First(&rule, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		return nil, fmt.Errorf("查询质量规则失败: %w", err)
	}
	return &rule, nil
}

// GetQualityRules 获取质量规则列表
func (s *GovernanceService) GetQualityRules(ctx context.Context, query QualityRuleListQuery) ([]models.QualityRule, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.QualityRule{})
	if query.DatasetID != "" {
		db = db.Where("dataset_id = ?", query.DatasetID)
	}
	if query.RuleType != "" {
		db = db.Where("rule_type = ?", query.RuleType)
	}
	if query.Severity != "" {
		db = db.Where("severity = ?", query.Severity)
	}
	if query.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计质量规则失败: %w", err)
	}

	page, size := normalizePage(query.Page, query.Size)
	var rules []models.QualityRule
	if err := db.Preload("Dataset").Order("created_at DESC").Offset((page - 1) * size).Limit(size).Find(&rules).Error; err != nil {
		return nil, 0, fmt.Errorf("查询质量规则失败: %w", err)
	}
	return rules, total, nil
}

// === 检测执行与结果查询 ===

// RunChecks 触发批量质量检测
func (s *GovernanceService) RunChecks(ctx context.Context, req RunChecksRequest) (*RunSummary, error) {
	return s.executor.RunChecks(ctx, req)
}

// ListExecutions 查询执行记录，按执行时间倒序
func (s *GovernanceService) ListExecutions(ctx context.Context, query ExecutionListQuery) ([]models.QualityRuleExecution, int64, error) {
	db := s.db.WithContext(ctx).Model(&models.QualityRuleExecution{})

	if query.DatasetID != "" || query.RuleType != "" {
		db = db.Joins("JOIN quality_rules ON quality_rules.id = quality_rule_executions.rule_id")
		if query.DatasetID != "" {
			db = db.Where("quality_rules.dataset_id = ?", query.DatasetID)
		}
		if query.RuleType != "" {
			db = db.Where("quality_rules.rule_type = ?", query.RuleType)
		}
	}
	if query.RuleID != "" {
		db = db.Where("quality_rule_executions.rule_id = ?", query.RuleID)
	}
	if query.Status != "" {
		db = db.Where("quality_rule_executions.status = ?", query.Status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计执行记录失败: %w", err)
	}

	limit := query.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var executions []models.QualityRuleExecution
	if err := db.Preload("Rule").Order("quality_rule_executions.run_date DESC").
		Limit(limit).Offset(query.Offset).Find(&executions).Error; err != nil {
		return nil, 0, fmt.Errorf("查询执行记录失败: %w", err)
	}
	return executions, total, nil
}

// === 质量评分 ===

// GetDatasetScore 获取数据集质量评分
func (s *GovernanceService) GetDatasetScore(ctx context.Context, datasetID string) (*QualityScore, error) {
	return s.scorer.DatasetScore(ctx, datasetID)
}

// GetCatalogScore 获取全目录质量评分
func (s *GovernanceService) GetCatalogScore(ctx context.Context) (*QualityScore, error) {
	return s.scorer.CatalogScore(ctx)
}

// === 数据血缘 ===

// AddLineageEdge 登记血缘边
func (s *GovernanceService) AddLineageEdge(ctx context.Context, req *AddLineageEdgeRequest) (*models.LineageEdge, error) {
	return s.lineage.AddEdge(ctx, req)
}

// GetLineage 获取数据集血缘视图
func (s *GovernanceService) GetLineage(ctx context.Context, datasetID, direction string, depth int) (*LineageGraph, error) {
	return s.lineage.Graph(ctx, datasetID, direction, depth)
}

// GetLineageImpact 获取数据集变更影响分析
func (s *GovernanceService) GetLineageImpact(ctx context.Context, datasetID string) (*LineageImpact, error) {
	return s.lineage.Impact(ctx, datasetID)
}

// isValidSensitivity 校验敏感级别取值
func isValidSensitivity(sensitivity string) bool {
	switch sensitivity {
	case "", models.SensitivityPublic, models.SensitivityInternal,
		models.SensitivitySensitive, models.SensitivityPII, models.SensitivityPHI:
		return true
	}
	return false
}

// normalizePage 规范分页参数
func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return page, size
}
