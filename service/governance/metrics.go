/*
 * @module service/governance/metrics
 * @description 质量检测的Prometheus指标定义
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 规则执行/审计写入时打点 -> /metrics 暴露
 * @rules 审计留痕失败必须计入 audit_emit_failures_total，便于合规告警
 * @dependencies github.com/prometheus/client_golang
 * @refs executor.go, recorder.go, scorer.go
 */

package governance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 规则执行总数，按执行状态分类
	metricRuleExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "datagov",
		Subsystem: "quality",
		Name:      "rule_executions_total",
		Help:      "质量规则执行总数，按执行状态分类",
	}, []string{"status", "rule_type"})

	// 敏感访问留痕失败总数
	metricAuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "datagov",
		Subsystem: "audit",
		Name:      "emit_failures_total",
		Help:      "敏感访问留痕失败总数（合规事件）",
	})

	// 并发冲突被跳过的规则执行数
	metricRunConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "datagov",
		Subsystem: "quality",
		Name:      "run_conflicts_total",
		Help:      "因规则正在执行而被跳过的触发次数",
	})

	// 最近一次批量检测的质量评分
	metricLastRunScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "datagov",
		Subsystem: "quality",
		Name:      "last_run_score",
		Help:      "最近一次全量质量评分（0-100）",
	})
)
