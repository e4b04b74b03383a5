/*
 * @module service/governance/scorer
 * @description 质量评分器，基于各启用规则的最近一次执行结果计算0-100评分
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 加载启用规则 -> 取各规则最近执行记录 -> 统计通过率 -> 四舍五入评分
 * @rules 评分只读不写，对同一份历史重复计算结果一致；无启用规则或无执行记录时评100分
 * @dependencies gorm.io/gorm, math
 * @refs executor.go, governance_service.go
 */

package governance

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"datagov-service/service/models"

	"gorm.io/gorm"
)

// QualityScorer 质量评分器
type QualityScorer struct {
	db *gorm.DB
}

// NewQualityScorer 创建质量评分器
func NewQualityScorer(db *gorm.DB) *QualityScorer {
	return &QualityScorer{db: db}
}

// DatasetScore 计算单个数据集的质量评分
func (s *QualityScorer) DatasetScore(ctx context.Context, datasetID string) (*QualityScore, error) {
	var dataset models.Dataset
	if err := s.db.WithContext(ctx).First(&dataset, "id = ?", datasetID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
		}
		return nil, fmt.Errorf("查询数据集失败: %w", err)
	}

	score, err := s.calculate(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	score.DatasetID = datasetID
	return score, nil
}

// CatalogScore 计算全目录的质量评分，并刷新评分指标
func (s *QualityScorer) CatalogScore(ctx context.Context) (*QualityScore, error) {
	score, err := s.calculate(ctx, "")
	if err != nil {
		return nil, err
	}
	metricLastRunScore.Set(float64(score.Score))
	return score, nil
}

// calculate 评分核心：score = round(100 * 通过规则数 / 有执行记录的启用规则数)。
// ERROR与FAIL一样计为未通过；从未执行过的规则不参与分母。
func (s *QualityScorer) calculate(ctx context.Context, datasetID string) (*QualityScore, error) {
	query := s.db.WithContext(ctx).Where("is_active = ?", true)
	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}

	var rules []models.QualityRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("加载质量规则失败: %w", err)
	}

	result := &QualityScore{
		Score:        100,
		BySeverity:   map[string]int{},
		CalculatedAt: time.Now(),
	}
	if len(rules) == 0 {
		return result, nil
	}

	ruleIDs := make([]string, 0, len(rules))
	for i := range rules {
		ruleIDs = append(ruleIDs, rules[i].ID)
	}

	// 按执行时间倒序扫描，每条规则只取最近一次执行
	var executions []models.QualityRuleExecution
	if err := s.db.WithContext(ctx).
		Where("rule_id IN ?", ruleIDs).
		Order("run_date DESC").
		Find(&executions).Error; err != nil {
		return nil, fmt.Errorf("加载执行记录失败: %w", err)
	}

	latest := make(map[string]*models.QualityRuleExecution, len(rules))
	for i := range executions {
		exec := &executions[i]
		if _, seen := latest[exec.RuleID]; !seen {
			latest[exec.RuleID] = exec
		}
	}

	// 按规则名称稳定排序，保证明细列表输出顺序可复现
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Name != rules[j].Name {
			return rules[i].Name < rules[j].Name
		}
		return rules[i].ID < rules[j].ID
	})

	for i := range rules {
		rule := &rules[i]
		exec, executed := latest[rule.ID]
		if !executed {
			continue
		}
		result.TotalRules++
		switch exec.Status {
		case models.ExecutionStatusPass:
			result.PassedRules++
		case models.ExecutionStatusFail:
			result.FailedRules++
		default:
			result.ErroredRules++
		}
		if exec.Status != models.ExecutionStatusPass {
			result.BySeverity[rule.Severity]++
			if rule.Severity == models.SeverityCritical {
				result.CriticalFail = append(result.CriticalFail, CriticalFailItem{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					Status:   exec.Status,
					Detail:   exec.Detail,
				})
			}
		}
	}

	if result.TotalRules > 0 {
		result.Score = int(math.Round(100 * float64(result.PassedRules) / float64(result.TotalRules)))
	}
	return result, nil
}
