/*
 * @module service/governance/errors
 * @description 数据治理错误分类定义，区分配置错误、执行错误、未找到和并发冲突
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 配置错误在规则创建时快速失败；执行错误转为ERROR执行记录
 * @rules 单条规则的执行错误不得中断批量检测，也不得污染其他规则的结果
 * @dependencies errors, fmt
 * @refs governance_service.go, executor.go
 */

package governance

import (
	"errors"
	"fmt"
)

var (
	// ErrRuleNotFound 质量规则不存在
	ErrRuleNotFound = errors.New("质量规则不存在")
	// ErrDatasetNotFound 数据集不存在
	ErrDatasetNotFound = errors.New("数据集不存在")
	// ErrExecutionNotFound 执行记录不存在
	ErrExecutionNotFound = errors.New("执行记录不存在")
	// ErrRuleAlreadyRunning 规则正在执行中，本次触发被拒绝
	ErrRuleAlreadyRunning = errors.New("规则正在执行中")
	// ErrLineageEdgeExists 同方向的血缘边已登记
	ErrLineageEdgeExists = errors.New("血缘边已存在")
	// ErrLineageSelfLoop 血缘边的源与目标为同一数据集
	ErrLineageSelfLoop = errors.New("血缘边不允许自环")
)

// ConfigurationError 规则配置错误，在规则创建或更新时快速失败
type ConfigurationError struct {
	RuleType string
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("规则配置无效 [%s] 字段 %s: %s", e.RuleType, e.Field, e.Reason)
	}
	return fmt.Sprintf("规则配置无效 [%s]: %s", e.RuleType, e.Reason)
}

// NewConfigurationError 创建规则配置错误
func NewConfigurationError(ruleType, field, reason string) *ConfigurationError {
	return &ConfigurationError{RuleType: ruleType, Field: field, Reason: reason}
}

// IsConfigurationError 判断是否为配置错误
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
