/*
 * @module service/governance/recorder
 * @description 执行记录器，将检测结果追加写入执行记录表，并对PII/PHI数据集做访问留痕
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 检测完成 -> 追加执行记录 -> 敏感数据集写访问日志
 * @rules 执行记录只追加；留痕失败是合规事件，记错误日志并打点，不回滚执行记录
 * @dependencies gorm.io/gorm, service/audit
 * @refs rule_engine.go, executor.go
 */

package governance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datagov-service/service/audit"
	"datagov-service/service/models"

	"gorm.io/gorm"
)

// ExecutionRecorder 检测结果记录器
type ExecutionRecorder struct {
	db           *gorm.DB
	auditService *audit.AuditService
}

// NewExecutionRecorder 创建执行记录器
func NewExecutionRecorder(db *gorm.DB, auditService *audit.AuditService) *ExecutionRecorder {
	return &ExecutionRecorder{db: db, auditService: auditService}
}

// Record 追加一条执行记录。数据集为PII/PHI级别时同步写入敏感访问日志，
// 留痕失败不影响执行记录本身，但会记错误日志并计入合规指标。
func (r *ExecutionRecorder) Record(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset, result *EvalResult, duration time.Duration, actor string) (*models.QualityRuleExecution, error) {
	execution := &models.QualityRuleExecution{
		RuleID:         rule.ID,
		Status:         result.Status,
		RecordsChecked: result.RecordsChecked,
		FailuresFound:  result.FailuresFound,
		AnomalyScore:   result.AnomalyScore,
		Detail:         result.Detail,
		DurationMs:     duration.Milliseconds(),
		RunDate:        time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(execution).Error; err != nil {
		return nil, fmt.Errorf("写入执行记录失败: %w", err)
	}

	metricRuleExecutions.WithLabelValues(result.Status, rule.RuleType).Inc()

	if dataset != nil && dataset.IsProtected() {
		reason := fmt.Sprintf("质量规则检测: %s", rule.Name)
		if _, err := r.auditService.RecordAccess(ctx, dataset, models.ActionQualityCheckRead, result.RecordsChecked, reason, actor); err != nil {
			// 留痕失败是合规事件，打点告警后继续，不能让执行记录随之丢失
			metricAuditFailures.Inc()
			slog.Error("敏感数据访问留痕失败",
				"dataset_id", dataset.ID,
				"dataset_name", dataset.Name,
				"sensitivity", dataset.Sensitivity,
				"rule_id", rule.ID,
				"error", err)
		}
	}
	return execution, nil
}
