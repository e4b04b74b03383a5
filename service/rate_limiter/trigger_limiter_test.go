/*
 * @module service/rate_limiter/trigger_limiter_test
 * @description 检测触发限流器测试
 * @architecture 测试层
 * @documentReference ai_docs/rate_limit_design.md
 */

package rate_limiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTriggerLimiter_GlobalWindow(t *testing.T) {
	limiter := NewMemoryTriggerLimiter()
	rules := []Rule{{Scope: ScopeGlobal, TimeWindow: 60, MaxRequests: 3}}

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(context.Background(), rules)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3-i-1, result.Remaining)
	}

	result, err := limiter.Check(context.Background(), rules)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "窗口内第4次触发被拒绝")
	assert.Equal(t, ScopeGlobal, result.Scope)
	assert.NotEmpty(t, result.Message)
}

func TestMemoryTriggerLimiter_ActorIsolation(t *testing.T) {
	limiter := NewMemoryTriggerLimiter()
	ruleFor := func(actor string) []Rule {
		return []Rule{{Scope: ScopeActor, TargetID: actor, TimeWindow: 60, MaxRequests: 1}}
	}

	result, err := limiter.Check(context.Background(), ruleFor("alice"))
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(context.Background(), ruleFor("alice"))
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// 不同触发人单独计数
	result, err = limiter.Check(context.Background(), ruleFor("bob"))
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryTriggerLimiter_ActorCheckedBeforeGlobal(t *testing.T) {
	limiter := NewMemoryTriggerLimiter()
	rules := []Rule{
		{Scope: ScopeGlobal, TimeWindow: 60, MaxRequests: 100},
		{Scope: ScopeActor, TargetID: "alice", TimeWindow: 60, MaxRequests: 1},
	}

	result, err := limiter.Check(context.Background(), rules)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	result, err = limiter.Check(context.Background(), rules)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, ScopeActor, result.Scope, "触发人限制先于全局限制命中")
}

func TestMemoryTriggerLimiter_NoRulesAllowed(t *testing.T) {
	limiter := NewMemoryTriggerLimiter()
	result, err := limiter.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "none", result.Scope)
}
