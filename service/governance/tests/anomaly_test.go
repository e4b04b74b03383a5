/*
 * @module service/governance/tests/anomaly_test
 * @description Z-score异常检测器测试，不依赖数据库
 * @architecture 测试层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 构造分组指标 -> 执行检测 -> 验证判定结果
 * @rules 覆盖阈值边界、零标准差、分组不足等退化场景
 * @dependencies testing, datagov-service/service/governance
 * @refs anomaly.go
 */

package tests

import (
	"testing"

	"datagov-service/service/governance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMetrics(values []float64) []governance.GroupMetric {
	metrics := make([]governance.GroupMetric, 0, len(values))
	for i, v := range values {
		metrics = append(metrics, governance.GroupMetric{
			Key:   string(rune('a' + i)),
			Value: v,
		})
	}
	return metrics
}

// TestDetectAnomalies_WeeklySessionCounts 周会话数场景：
// 一个值为50的离群组，z约2.998，阈值3.0时不判异常，阈值2.5时判异常
func TestDetectAnomalies_WeeklySessionCounts(t *testing.T) {
	values := []float64{2, 3, 2, 3, 2, 50, 3, 2, 3, 2}

	outcome := governance.DetectAnomalies(buildMetrics(values), 3.0)
	assert.Equal(t, 10, outcome.GroupCount)
	assert.Empty(t, outcome.Anomalies, "z约2.998未超过阈值3.0，不应判定异常")
	require.NotNil(t, outcome.MaxAbsZ)
	assert.InDelta(t, 2.998, *outcome.MaxAbsZ, 0.01)

	outcome = governance.DetectAnomalies(buildMetrics(values), 2.5)
	require.Len(t, outcome.Anomalies, 1)
	assert.Equal(t, 50.0, outcome.Anomalies[0].Value)
	assert.InDelta(t, 2.998, outcome.Anomalies[0].ZScore, 0.01)
}

// TestDetectAnomalies_ExactThresholdNotFlagged 恰好等于阈值的分组不算异常
func TestDetectAnomalies_ExactThresholdNotFlagged(t *testing.T) {
	// 两个值的序列，z恰好为±1
	metrics := buildMetrics([]float64{0, 2})

	outcome := governance.DetectAnomalies(metrics, 1.0)
	assert.Empty(t, outcome.Anomalies, "|z|==阈值时不应判定异常")
	require.NotNil(t, outcome.MaxAbsZ)
	assert.InDelta(t, 1.0, *outcome.MaxAbsZ, 1e-9)

	outcome = governance.DetectAnomalies(metrics, 0.99)
	assert.Len(t, outcome.Anomalies, 2)
}

// TestDetectAnomalies_ZeroStdDev 所有分组取值相同时标准差为0，全部z记0
func TestDetectAnomalies_ZeroStdDev(t *testing.T) {
	outcome := governance.DetectAnomalies(buildMetrics([]float64{5, 5, 5, 5}), 3.0)

	assert.Empty(t, outcome.Anomalies)
	assert.Equal(t, 0.0, outcome.StdDev)
	require.NotNil(t, outcome.MaxAbsZ)
	assert.Equal(t, 0.0, *outcome.MaxAbsZ)
}

// TestDetectAnomalies_TooFewGroups 分组数不足2时跳过判定
func TestDetectAnomalies_TooFewGroups(t *testing.T) {
	outcome := governance.DetectAnomalies(buildMetrics([]float64{42}), 3.0)
	assert.Equal(t, 1, outcome.GroupCount)
	assert.Nil(t, outcome.MaxAbsZ)
	assert.Empty(t, outcome.Anomalies)

	outcome = governance.DetectAnomalies(nil, 3.0)
	assert.Equal(t, 0, outcome.GroupCount)
	assert.Nil(t, outcome.MaxAbsZ)
}

// TestDetectAnomalies_SortedBySeverity 多个异常按离群度从高到低排序
func TestDetectAnomalies_SortedBySeverity(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 100, 60}
	outcome := governance.DetectAnomalies(buildMetrics(values), 1.0)

	require.GreaterOrEqual(t, len(outcome.Anomalies), 2)
	assert.Equal(t, 100.0, outcome.Anomalies[0].Value)
}
