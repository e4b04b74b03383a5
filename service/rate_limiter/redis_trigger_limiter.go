/*
 * @module service/rate_limiter/redis_trigger_limiter
 * @description 基于Redis的分布式检测触发限流，多实例部署时窗口计数全局一致
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference ai_docs/rate_limit_design.md
 * @stateFlow 检查限流规则 -> Redis计数 -> 判断是否超限
 * @rules 使用Lua脚本保证INCR与EXPIRE的原子性，固定窗口计数
 * @dependencies github.com/go-redis/redis/v8
 * @refs trigger_limiter.go, service/init.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisTriggerLimiter Redis限流器
type RedisTriggerLimiter struct {
	client *redis.Client
}

// NewRedisTriggerLimiter 创建Redis限流器
func NewRedisTriggerLimiter() (*RedisTriggerLimiter, error) {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		fmt.Sscanf(dbStr, "%d", &db)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis触发限流器初始化成功", "redis_host", host, "redis_port", port)
	return &RedisTriggerLimiter{client: client}, nil
}

// Check 实现 TriggerLimiter 接口，按优先级依次检查各层限流
func (r *RedisTriggerLimiter) Check(ctx context.Context, rules []Rule) (*Result, error) {
	sorted := sortRulesByPriority(rules)
	if len(sorted) == 0 {
		return allowAllResult(), nil
	}

	var last *Result
	for _, rule := range sorted {
		result, err := r.checkSingleRule(ctx, rule)
		if err != nil {
			return nil, err
		}
		if !result.Allowed {
			return result, nil
		}
		last = result
	}
	return last, nil
}

// checkSingleRule 检查单个限流规则
func (r *RedisTriggerLimiter) checkSingleRule(ctx context.Context, rule Rule) (*Result, error) {
	key := r.buildKey(rule)

	// Lua脚本保证检查与计数的原子性
	script := `
		local key = KEYS[1]
		local max_requests = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local current = redis.call('GET', key)
		if current == false then
			current = 0
		else
			current = tonumber(current)
		end

		if current >= max_requests then
			local ttl = redis.call('TTL', key)
			if ttl == -1 then
				ttl = window
			end
			return {0, current, ttl}
		end

		local new_count = redis.call('INCR', key)
		if new_count == 1 then
			redis.call('EXPIRE', key, window)
		end

		local ttl = redis.call('TTL', key)
		if ttl == -1 then
			ttl = window
		end
		return {1, new_count, ttl}
	`

	raw, err := r.client.Eval(ctx, script, []string{key}, rule.MaxRequests, rule.TimeWindow).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values := raw.([]interface{})
	allowed := values[0].(int64) == 1
	current := int(values[1].(int64))
	ttl := int(values[2].(int64))

	remaining := rule.MaxRequests - current
	if remaining < 0 {
		remaining = 0
	}

	message := "允许触发"
	if !allowed {
		message = fmt.Sprintf("超过%s触发频率限制", scopeName(rule.Scope))
	}

	return &Result{
		Allowed:   allowed,
		Limit:     rule.MaxRequests,
		Remaining: remaining,
		ResetAt:   time.Now().Add(time.Duration(ttl) * time.Second).Unix(),
		Scope:     rule.Scope,
		Message:   message,
	}, nil
}

// buildKey 构造限流计数key，按固定窗口切分
func (r *RedisTriggerLimiter) buildKey(rule Rule) string {
	window := time.Now().Unix() / int64(rule.TimeWindow)
	if rule.Scope == ScopeGlobal {
		return fmt.Sprintf("datagov:trigger_limit:%s:%d", rule.Scope, window)
	}
	return fmt.Sprintf("datagov:trigger_limit:%s:%s:%d", rule.Scope, rule.TargetID, window)
}

// Close 关闭Redis连接
func (r *RedisTriggerLimiter) Close() error {
	return r.client.Close()
}

// getEnvWithDefault 获取环境变量，不存在时返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
