/*
 * @module service/governance/executor
 * @description 批量质量检测执行器，带并发上限与规则级互斥锁的调度执行
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 加载启用规则 -> 规则级加锁 -> 并发执行 -> 记录结果 -> 汇总摘要
 * @rules 同一规则同一时刻至多一次执行，冲突触发直接跳过并计数；单条规则超时转为ERROR记录
 * @dependencies gorm.io/gorm, service/distributed_lock, sync
 * @refs rule_engine.go, recorder.go, scheduler.go
 */

package governance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"datagov-service/service/distributed_lock"
	"datagov-service/service/models"

	"gorm.io/gorm"
)

const (
	// DefaultMaxConcurrency 默认并发执行规则数上限
	DefaultMaxConcurrency = 4
	// DefaultRuleTimeout 单条规则默认执行超时
	DefaultRuleTimeout = 30 * time.Second
	// 锁TTL在规则超时之上留出的记录落库余量
	lockGracePeriod = 10 * time.Second
)

// CheckExecutor 批量质量检测执行器
type CheckExecutor struct {
	db             *gorm.DB
	engine         *RuleEngine
	recorder       *ExecutionRecorder
	lock           distributed_lock.DistributedLock
	maxConcurrency int
	ruleTimeout    time.Duration
}

// NewCheckExecutor 创建批量检测执行器
func NewCheckExecutor(db *gorm.DB, engine *RuleEngine, recorder *ExecutionRecorder, lock distributed_lock.DistributedLock) *CheckExecutor {
	return &CheckExecutor{
		db:             db,
		engine:         engine,
		recorder:       recorder,
		lock:           lock,
		maxConcurrency: DefaultMaxConcurrency,
		ruleTimeout:    DefaultRuleTimeout,
	}
}

// SetMaxConcurrency 设置并发执行规则数上限
func (e *CheckExecutor) SetMaxConcurrency(n int) {
	if n > 0 {
		e.maxConcurrency = n
	}
}

// SetRuleTimeout 设置单条规则执行超时
func (e *CheckExecutor) SetRuleTimeout(timeout time.Duration) {
	if timeout > 0 {
		e.ruleTimeout = timeout
	}
}

// RunChecks 批量执行质量检测。按请求过滤启用规则后并发执行，
// 每条规则的执行互不影响，最终返回本次检测的汇总摘要。
func (e *CheckExecutor) RunChecks(ctx context.Context, req RunChecksRequest) (*RunSummary, error) {
	rules, err := e.loadRules(ctx, req)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{StartedAt: time.Now()}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxConcurrency)

	for i := range rules {
		rule := &rules[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			e.executeOne(ctx, rule, req.TriggerBy, summary, &mu)
		}()
	}
	wg.Wait()

	summary.Duration = time.Since(summary.StartedAt).Milliseconds()
	slog.Info("批量质量检测完成",
		"triggered", summary.Triggered,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errors", summary.Errors,
		"conflicts", summary.Conflicts,
		"duration_ms", summary.Duration)
	return summary, nil
}

// executeOne 在规则级互斥锁保护下执行单条规则并记录结果
func (e *CheckExecutor) executeOne(ctx context.Context, rule *models.QualityRule, actor string, summary *RunSummary, mu *sync.Mutex) {
	lockKey := fmt.Sprintf("quality_rule:%s", rule.ID)
	locked, err := e.lock.TryLock(ctx, lockKey, e.ruleTimeout+lockGracePeriod)
	if err != nil {
		slog.Error("获取规则执行锁失败", "rule_id", rule.ID, "error", err)
		mu.Lock()
		summary.Errors++
		mu.Unlock()
		return
	}
	if !locked {
		// 规则正在其他执行中，本次触发直接跳过
		metricRunConflicts.Inc()
		slog.Warn("规则正在执行中，跳过本次触发", "rule_id", rule.ID, "rule_name", rule.Name)
		mu.Lock()
		summary.Conflicts++
		mu.Unlock()
		return
	}
	defer func() {
		if unlockErr := e.lock.Unlock(ctx, lockKey); unlockErr != nil {
			slog.Error("释放规则执行锁失败", "rule_id", rule.ID, "error", unlockErr)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.ruleTimeout)
	defer cancel()

	start := time.Now()
	result := e.engine.Evaluate(runCtx, rule, rule.Dataset)

	if _, err := e.recorder.Record(ctx, rule, rule.Dataset, result, time.Since(start), actor); err != nil {
		slog.Error("记录检测结果失败", "rule_id", rule.ID, "error", err)
		mu.Lock()
		summary.Triggered++
		summary.Errors++
		mu.Unlock()
		return
	}

	mu.Lock()
	summary.Triggered++
	switch result.Status {
	case models.ExecutionStatusPass:
		summary.Passed++
	case models.ExecutionStatusFail:
		summary.Failed++
	default:
		summary.Errors++
	}
	mu.Unlock()
}

// loadRules 按请求加载待执行的启用规则，显式指定的规则不存在时报错
func (e *CheckExecutor) loadRules(ctx context.Context, req RunChecksRequest) ([]models.QualityRule, error) {
	query := e.db.WithContext(ctx).Preload("Dataset").Where("is_active = ?", true)

	if req.DatasetID != "" {
		var dataset models.Dataset
		if err := e.db.WithContext(ctx).First(&dataset, "id = ?", req.DatasetID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, req.DatasetID)
			}
			return nil, fmt.Errorf("查询数据集失败: %w", err)
		}
		query = query.Where("dataset_id = ?", req.DatasetID)
	}
	if len(req.RuleIDs) > 0 {
		query = query.Where("id IN ?", req.RuleIDs)
	}

	var rules []models.QualityRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("加载质量规则失败: %w", err)
	}

	if len(req.RuleIDs) > 0 {
		found := make(map[string]bool, len(rules))
		for _, r := range rules {
			found[r.ID] = true
		}
		for _, id := range req.RuleIDs {
			if !found[id] {
				return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
			}
		}
	}
	return rules, nil
}
