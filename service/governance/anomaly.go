/*
 * @module service/governance/anomaly
 * @description 基于Z-score的统计异常检测器，对分组指标序列计算离群度
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 采集分组指标 -> 计算均值标准差 -> 逐组计算Z-score -> 超阈值判定异常
 * @rules 标准差为0时所有Z-score记0；分组数不足2时不判定；阈值比较为严格大于
 * @dependencies math
 * @refs rule_engine.go
 */

package governance

import (
	"fmt"
	"math"
	"sort"
)

// GroupMetric 单个分组的指标值
type GroupMetric struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// AnomalyFinding 判定为异常的分组
type AnomalyFinding struct {
	Key    string  `json:"key"`
	Value  float64 `json:"value"`
	ZScore float64 `json:"z_score"`
}

// AnomalyOutcome 一次异常检测的输出
type AnomalyOutcome struct {
	GroupCount int              `json:"group_count"`
	Mean       float64          `json:"mean"`
	StdDev     float64          `json:"std_dev"`
	MaxAbsZ    *float64         `json:"max_abs_z"` // 分组数不足2时为nil
	Anomalies  []AnomalyFinding `json:"anomalies"`
}

// DetectAnomalies 对分组指标执行Z-score异常检测。
// 标准差按总体口径计算（除以n）；|z| 严格大于阈值才计为异常，
// 恰好等于阈值的分组不算异常。分组数不足2时不做判定，MaxAbsZ 为 nil。
func DetectAnomalies(metrics []GroupMetric, threshold float64) *AnomalyOutcome {
	outcome := &AnomalyOutcome{GroupCount: len(metrics)}
	if len(metrics) < 2 {
		return outcome
	}

	var sum float64
	for _, m := range metrics {
		sum += m.Value
	}
	mean := sum / float64(len(metrics))

	var sqSum float64
	for _, m := range metrics {
		d := m.Value - mean
		sqSum += d * d
	}
	stdDev := math.Sqrt(sqSum / float64(len(metrics)))

	outcome.Mean = mean
	outcome.StdDev = stdDev

	maxAbsZ := 0.0
	for _, m := range metrics {
		z := 0.0
		if stdDev > 0 {
			z = (m.Value - mean) / stdDev
		}
		if math.Abs(z) > maxAbsZ {
			maxAbsZ = math.Abs(z)
		}
		if math.Abs(z) > threshold {
			outcome.Anomalies = append(outcome.Anomalies, AnomalyFinding{
				Key:    m.Key,
				Value:  m.Value,
				ZScore: z,
			})
		}
	}
	outcome.MaxAbsZ = &maxAbsZ

	// 按离群度从高到低排序，便于结果展示
	sort.Slice(outcome.Anomalies, func(i, j int) bool {
		return math.Abs(outcome.Anomalies[i].ZScore) > math.Abs(outcome.Anomalies[j].ZScore)
	})
	return outcome
}

// Summary 生成检测结果的简要描述
func (o *AnomalyOutcome) Summary(threshold float64) string {
	if o.GroupCount < 2 {
		return fmt.Sprintf("分组数不足（%d），跳过异常判定", o.GroupCount)
	}
	if len(o.Anomalies) == 0 {
		return fmt.Sprintf("共 %d 个分组，均值 %.2f，未发现超过阈值 %.2f 的异常", o.GroupCount, o.Mean, threshold)
	}
	top := o.Anomalies[0]
	return fmt.Sprintf("共 %d 个分组，发现 %d 个异常（阈值 %.2f），最大离群组 %s 值 %.2f z=%.2f",
		o.GroupCount, len(o.Anomalies), threshold, top.Key, top.Value, top.ZScore)
}
