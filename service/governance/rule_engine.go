/*
 * @module service/governance/rule_engine
 * @description 质量规则执行引擎，按规则类型分发到对应的检测逻辑并产出统一的检测结果
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 解析判定条件 -> 扫描数据行 -> 逐行/整体判定 -> 产出检测结果
 * @rules 单条规则的任何执行异常（含panic）都转为ERROR结果，不得中断批量检测
 * @dependencies gorm.io/gorm, github.com/spf13/cast, service/datasource
 * @refs anomaly.go, criteria.go, executor.go
 */

package governance

import (
	"context"
	"fmt"
	"sort"

	"datagov-service/service/datasource"
	"datagov-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// EvalResult 单条规则的检测结果
type EvalResult struct {
	Status         string   // PASS/FAIL/ERROR
	RecordsChecked int64
	FailuresFound  int64
	AnomalyScore   *float64
	Detail         string
}

// RuleEngine 质量规则执行引擎
type RuleEngine struct {
	db            *gorm.DB
	queryExecutor datasource.QueryExecutor
}

// NewRuleEngine 创建规则执行引擎
func NewRuleEngine(db *gorm.DB) *RuleEngine {
	return &RuleEngine{
		db:            db,
		queryExecutor: datasource.NewGormQueryExecutor(db),
	}
}

// SetQueryExecutor 替换标量查询执行器（测试或接入外部数据源时使用）
func (re *RuleEngine) SetQueryExecutor(executor datasource.QueryExecutor) {
	re.queryExecutor = executor
}

// Evaluate 执行单条质量规则。任何执行异常都被吸收为ERROR结果，
// 调用方永远会得到恰好一个结果。
func (re *RuleEngine) Evaluate(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) (result *EvalResult) {
	defer func() {
		if r := recover(); r != nil {
			result = &EvalResult{
				Status: models.ExecutionStatusError,
				Detail: fmt.Sprintf("规则执行发生panic: %v", r),
			}
		}
	}()

	switch rule.RuleType {
	case models.RuleTypeNullCheck:
		return re.evaluateNullCheck(ctx, rule, dataset)
	case models.RuleTypeRegexMatch:
		return re.evaluateRegexMatch(ctx, rule, dataset)
	case models.RuleTypeRangeCheck:
		return re.evaluateRangeCheck(ctx, rule, dataset)
	case models.RuleTypeCustomSQL:
		return re.evaluateCustomSQL(ctx, rule)
	case models.RuleTypeAnomalyDetection:
		return re.evaluateAnomalyDetection(ctx, rule, dataset)
	case models.RuleTypeForeignKey:
		return re.evaluateForeignKey(ctx, rule, dataset)
	default:
		return &EvalResult{
			Status: models.ExecutionStatusError,
			Detail: fmt.Sprintf("不支持的规则类型: %s", rule.RuleType),
		}
	}
}

// evaluateNullCheck 空值检查：统计字段为NULL或空字符串的行数
func (re *RuleEngine) evaluateNullCheck(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) *EvalResult {
	criteria, err := ParseNullCheckCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}

	var nullCount int64
	total, err := re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
		if isNullValue(row[*rule.FieldName]) {
			nullCount++
		}
	})
	if err != nil {
		return errorResult("扫描数据失败", err)
	}

	failures := nullCount
	if criteria.AllowNull {
		failures = 0
	}
	return verdictResult(total, failures,
		fmt.Sprintf("共检查 %d 行，字段 %s 存在 %d 个空值", total, *rule.FieldName, nullCount))
}

// evaluateRegexMatch 正则匹配检查：统计字段值不匹配模式的行数
func (re *RuleEngine) evaluateRegexMatch(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) *EvalResult {
	criteria, err := ParseRegexMatchCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}
	pattern, err := criteria.CompiledPattern()
	if err != nil {
		return errorResult("编译正则表达式失败", err)
	}

	var failures int64
	total, err := re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
		raw := row[*rule.FieldName]
		if isNullValue(raw) {
			if !criteria.AllowNull {
				failures++
			}
			return
		}
		if !pattern.MatchString(cast.ToString(normalizeValue(raw))) {
			failures++
		}
	})
	if err != nil {
		return errorResult("扫描数据失败", err)
	}

	return verdictResult(total, failures,
		fmt.Sprintf("共检查 %d 行，字段 %s 有 %d 行不匹配模式", total, *rule.FieldName, failures))
}

// evaluateRangeCheck 区间检查：边界为闭区间，恰好等于边界值视为通过
func (re *RuleEngine) evaluateRangeCheck(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) *EvalResult {
	criteria, err := ParseRangeCheckCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}

	var failures int64
	total, err := re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
		raw := row[*rule.FieldName]
		if isNullValue(raw) {
			if !criteria.AllowNull {
				failures++
			}
			return
		}
		value, convErr := cast.ToFloat64E(normalizeValue(raw))
		if convErr != nil {
			failures++
			return
		}

		min, max := criteria.Min, criteria.Max
		if len(criteria.Conditions) > 0 {
			cond := matchRangeCondition(criteria.Conditions, row)
			if cond == nil {
				// 判别字段取值没有命中任何条件分支，视为越界
				failures++
				return
			}
			min, max = cond.Min, cond.Max
		}

		if (min != nil && value < *min) || (max != nil && value > *max) {
			failures++
		}
	})
	if err != nil {
		return errorResult("扫描数据失败", err)
	}

	return verdictResult(total, failures,
		fmt.Sprintf("共检查 %d 行，字段 %s 有 %d 行越界", total, *rule.FieldName, failures))
}

// evaluateCustomSQL 自定义SQL检查：查询结果与期望值不一致即判定失败
func (re *RuleEngine) evaluateCustomSQL(ctx context.Context, rule *models.QualityRule) *EvalResult {
	criteria, err := ParseCustomSQLCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}

	value, err := re.queryExecutor.ScalarQuery(ctx, criteria.Query)
	if err != nil {
		return errorResult("执行自定义查询失败", err)
	}

	if value == criteria.ExpectedValue {
		return &EvalResult{
			Status: models.ExecutionStatusPass,
			Detail: fmt.Sprintf("查询结果 %.0f 与期望值一致", value),
		}
	}
	return &EvalResult{
		Status:        models.ExecutionStatusFail,
		FailuresFound: int64(value),
		Detail:        fmt.Sprintf("查询结果 %.0f 与期望值 %.0f 不一致", value, criteria.ExpectedValue),
	}
}

// evaluateAnomalyDetection 异常检测：采集分组指标后执行Z-score判定。
// 配置了 group_by 时指标为各分组的行数，否则直接取字段数值作为指标序列。
func (re *RuleEngine) evaluateAnomalyDetection(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) *EvalResult {
	criteria, err := ParseAnomalyCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}

	var metrics []GroupMetric
	var total int64
	if criteria.GroupBy != "" {
		counts := make(map[string]float64)
		total, err = re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
			key := row[criteria.GroupBy]
			if isNullValue(key) {
				return
			}
			counts[cast.ToString(normalizeValue(key))]++
		})
		if err != nil {
			return errorResult("扫描数据失败", err)
		}
		keys := make([]string, 0, len(counts))
		for k := range counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			metrics = append(metrics, GroupMetric{Key: k, Value: counts[k]})
		}
	} else {
		rowIndex := 0
		total, err = re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
			rowIndex++
			raw := row[*rule.FieldName]
			if isNullValue(raw) {
				return
			}
			value, convErr := cast.ToFloat64E(normalizeValue(raw))
			if convErr != nil {
				return
			}
			metrics = append(metrics, GroupMetric{Key: fmt.Sprintf("row_%d", rowIndex), Value: value})
		})
		if err != nil {
			return errorResult("扫描数据失败", err)
		}
	}

	outcome := DetectAnomalies(metrics, criteria.Threshold)
	result := &EvalResult{
		RecordsChecked: total,
		FailuresFound:  int64(len(outcome.Anomalies)),
		AnomalyScore:   outcome.MaxAbsZ,
		Detail:         outcome.Summary(criteria.Threshold),
	}
	if len(outcome.Anomalies) > 0 {
		result.Status = models.ExecutionStatusFail
	} else {
		result.Status = models.ExecutionStatusPass
	}
	return result
}

// evaluateForeignKey 外键一致性检查：统计引用不到目标记录的行数，空值不参与判定
func (re *RuleEngine) evaluateForeignKey(ctx context.Context, rule *models.QualityRule, dataset *models.Dataset) *EvalResult {
	criteria, err := ParseForeignKeyCriteria(rule.Criteria)
	if err != nil {
		return errorResult("解析判定条件失败", err)
	}

	referenced := make(map[string]struct{})
	if _, err := re.scanRows(ctx, criteria.ReferencedTable, func(row map[string]interface{}) {
		key := row[criteria.ReferencedField]
		if !isNullValue(key) {
			referenced[cast.ToString(normalizeValue(key))] = struct{}{}
		}
	}); err != nil {
		return errorResult("扫描引用表失败", err)
	}

	var dangling int64
	total, err := re.scanRows(ctx, dataset.Name, func(row map[string]interface{}) {
		raw := row[*rule.FieldName]
		if isNullValue(raw) {
			return
		}
		if _, ok := referenced[cast.ToString(normalizeValue(raw))]; !ok {
			dangling++
		}
	})
	if err != nil {
		return errorResult("扫描数据失败", err)
	}

	return verdictResult(total, dangling,
		fmt.Sprintf("共检查 %d 行，字段 %s 有 %d 行引用失效", total, *rule.FieldName, dangling))
}

// scanRows 流式扫描目标表的所有行，逐行回调，返回总行数
func (re *RuleEngine) scanRows(ctx context.Context, tableName string, fn func(row map[string]interface{})) (int64, error) {
	rows, err := re.db.WithContext(ctx).Table(tableName).Rows()
	if err != nil {
		return 0, fmt.Errorf("查询表 %s 失败: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("获取表 %s 列信息失败: %w", tableName, err)
	}

	var total int64
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if err := rows.Scan(pointers...); err != nil {
			return total, fmt.Errorf("读取表 %s 数据失败: %w", tableName, err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		total++
		fn(row)
	}
	if err := rows.Err(); err != nil {
		return total, fmt.Errorf("遍历表 %s 数据失败: %w", tableName, err)
	}
	return total, nil
}

// matchRangeCondition 按判别字段取值选择区间条件分支
func matchRangeCondition(conditions []RangeCondition, row map[string]interface{}) *RangeCondition {
	for i := range conditions {
		cond := &conditions[i]
		if cast.ToString(normalizeValue(row[cond.Field])) == cond.Equals {
			return cond
		}
	}
	return nil
}

// isNullValue 判断行值是否为NULL或空字符串
func isNullValue(raw interface{}) bool {
	if raw == nil {
		return true
	}
	switch v := raw.(type) {
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// normalizeValue 驱动可能以[]byte返回文本列，统一转成字符串
func normalizeValue(raw interface{}) interface{} {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw
}

// verdictResult 根据失败行数产出PASS/FAIL结果
func verdictResult(total, failures int64, detail string) *EvalResult {
	status := models.ExecutionStatusPass
	if failures > 0 {
		status = models.ExecutionStatusFail
	}
	return &EvalResult{
		Status:         status,
		RecordsChecked: total,
		FailuresFound:  failures,
		Detail:         detail,
	}
}

// errorResult 将执行异常包装为ERROR结果
func errorResult(prefix string, err error) *EvalResult {
	return &EvalResult{
		Status: models.ExecutionStatusError,
		Detail: fmt.Sprintf("%s: %v", prefix, err),
	}
}
