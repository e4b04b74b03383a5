/*
 * @module service/rate_limiter/trigger_limiter
 * @description 检测触发限流，防止批量质量检测被高频手工触发打垮数据库
 * @architecture 工具层 - 提供限流能力
 * @documentReference ai_docs/rate_limit_design.md
 * @stateFlow 构造限流规则 -> 固定窗口计数 -> 判断是否超限
 * @rules 按优先级检查：触发人 -> 全局；任何一层超限即拒绝
 * @dependencies sync, time
 * @refs redis_trigger_limiter.go, api/controllers/quality_check_controller.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// 限流层级
const (
	ScopeGlobal = "global"
	ScopeActor  = "actor"
)

// Rule 限流规则
type Rule struct {
	Scope       string // global/actor
	TargetID    string // 触发人标识，全局时为空
	TimeWindow  int    // 时间窗口（秒）
	MaxRequests int    // 窗口内最大触发次数
}

// Result 限流检查结果
type Result struct {
	Allowed   bool   `json:"allowed"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetAt   int64  `json:"reset_at"` // 窗口重置时间（Unix时间戳）
	Scope     string `json:"scope"`
	Message   string `json:"message"`
}

// TriggerLimiter 检测触发限流器接口
type TriggerLimiter interface {
	// Check 依次检查各层限流规则，任何一层超限即返回拒绝结果
	Check(ctx context.Context, rules []Rule) (*Result, error)
}

// sortRulesByPriority 按优先级排序规则：actor > global
func sortRulesByPriority(rules []Rule) []Rule {
	priority := map[string]int{ScopeActor: 2, ScopeGlobal: 1}
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return priority[sorted[i].Scope] > priority[sorted[j].Scope]
	})
	return sorted
}

// allowAllResult 没有限流规则时直接放行
func allowAllResult() *Result {
	return &Result{
		Allowed:   true,
		Limit:     -1,
		Remaining: -1,
		Scope:     "none",
		Message:   "无限流规则",
	}
}

func scopeName(scope string) string {
	switch scope {
	case ScopeActor:
		return "触发人"
	case ScopeGlobal:
		return "全局"
	}
	return scope
}

// MemoryTriggerLimiter 进程内固定窗口限流器，单实例部署或未配置Redis时的降级方案
type MemoryTriggerLimiter struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMemoryTriggerLimiter 创建内存限流器
func NewMemoryTriggerLimiter() *MemoryTriggerLimiter {
	return &MemoryTriggerLimiter{counters: make(map[string]int)}
}

// Check 实现 TriggerLimiter 接口
func (m *MemoryTriggerLimiter) Check(ctx context.Context, rules []Rule) (*Result, error) {
	sorted := sortRulesByPriority(rules)
	if len(sorted) == 0 {
		return allowAllResult(), nil
	}

	var last *Result
	for _, rule := range sorted {
		result := m.checkSingleRule(rule)
		if !result.Allowed {
			return result, nil
		}
		last = result
	}
	return last, nil
}

func (m *MemoryTriggerLimiter) checkSingleRule(rule Rule) *Result {
	now := time.Now().Unix()
	window := now / int64(rule.TimeWindow)
	key := fmt.Sprintf("%s:%s:%d", rule.Scope, rule.TargetID, window)
	resetAt := (window + 1) * int64(rule.TimeWindow)

	m.mu.Lock()
	defer m.mu.Unlock()

	// 过期窗口的计数随新窗口的key自然失效，老key按窗口数保留上限清理
	if len(m.counters) > 10000 {
		m.counters = make(map[string]int)
	}

	current := m.counters[key]
	if current >= rule.MaxRequests {
		return &Result{
			Allowed: false,
			Limit:   rule.MaxRequests,
			ResetAt: resetAt,
			Scope:   rule.Scope,
			Message: fmt.Sprintf("超过%s触发频率限制", scopeName(rule.Scope)),
		}
	}

	m.counters[key] = current + 1
	return &Result{
		Allowed:   true,
		Limit:     rule.MaxRequests,
		Remaining: rule.MaxRequests - current - 1,
		ResetAt:   resetAt,
		Scope:     rule.Scope,
		Message:   "允许触发",
	}
}
