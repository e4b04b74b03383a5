/*
 * @module service/governance/criteria
 * @description 质量规则判定条件的强类型定义与解析校验，结构由规则类型决定
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 规则创建/更新时校验 -> 规则执行时解析
 * @rules 判定条件在规则落库前校验，格式错误在创建阶段快速失败而不是执行阶段
 * @dependencies github.com/spf13/cast, regexp
 * @refs rule_engine.go, governance_service.go
 */

package governance

import (
	"datagov-service/service/models"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

// 异常检测默认Z-score阈值
const DefaultAnomalyThreshold = 3.0

// NullCheckCriteria 空值检查判定条件
type NullCheckCriteria struct {
	AllowNull bool `json:"allow_null"`
}

// RegexMatchCriteria 正则匹配判定条件
type RegexMatchCriteria struct {
	Pattern   string `json:"pattern"`
	Flags     string `json:"flags"` // i/m/s 的组合
	AllowNull bool   `json:"allow_null"`
}

// CompiledPattern 按 flags 编译正则表达式
func (c *RegexMatchCriteria) CompiledPattern() (*regexp.Regexp, error) {
	pattern := c.Pattern
	if c.Flags != "" {
		var modes []string
		for _, f := range c.Flags {
			switch f {
			case 'i', 'm', 's':
				modes = append(modes, string(f))
			}
		}
		if len(modes) > 0 {
			pattern = "(?" + strings.Join(modes, "") + ")" + pattern
		}
	}
	return regexp.Compile(pattern)
}

// RangeCondition 条件化区间，按判别字段取值选择边界
type RangeCondition struct {
	Field  string   `json:"field"`
	Equals string   `json:"equals"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// RangeCheckCriteria 数值区间检查判定条件，边界为闭区间
type RangeCheckCriteria struct {
	Min        *float64         `json:"min"`
	Max        *float64         `json:"max"`
	AllowNull  bool             `json:"allow_null"`
	Conditions []RangeCondition `json:"conditions"`
}

// CustomSQLCriteria 自定义SQL检查判定条件，查询必须返回单个数值
type CustomSQLCriteria struct {
	Query         string  `json:"query"`
	ExpectedValue float64 `json:"expected_value"`
}

// AnomalyCriteria 异常检测判定条件
type AnomalyCriteria struct {
	GroupBy   string  `json:"group_by"`  // 为空时直接取字段数值作为组指标
	Threshold float64 `json:"threshold"` // Z-score阈值，默认3.0
}

// ForeignKeyCriteria 外键一致性检查判定条件
type ForeignKeyCriteria struct {
	ReferencedTable string `json:"referenced_table"`
	ReferencedField string `json:"referenced_field"`
}

// ValidateCriteria 校验规则判定条件，格式错误返回 ConfigurationError
func ValidateCriteria(ruleType string, fieldName *string, criteria models.JSONB) error {
	switch ruleType {
	case models.RuleTypeNullCheck:
		if fieldName == nil || *fieldName == "" {
			return NewConfigurationError(ruleType, "field_name", "空值检查必须指定字段")
		}
		_, err := ParseNullCheckCriteria(criteria)
		return err
	case models.RuleTypeRegexMatch:
		if fieldName == nil || *fieldName == "" {
			return NewConfigurationError(ruleType, "field_name", "正则匹配必须指定字段")
		}
		_, err := ParseRegexMatchCriteria(criteria)
		return err
	case models.RuleTypeRangeCheck:
		if fieldName == nil || *fieldName == "" {
			return NewConfigurationError(ruleType, "field_name", "区间检查必须指定字段")
		}
		_, err := ParseRangeCheckCriteria(criteria)
		return err
	case models.RuleTypeCustomSQL:
		_, err := ParseCustomSQLCriteria(criteria)
		return err
	case models.RuleTypeAnomalyDetection:
		c, err := ParseAnomalyCriteria(criteria)
		if err != nil {
			return err
		}
		if c.GroupBy == "" && (fieldName == nil || *fieldName == "") {
			return NewConfigurationError(ruleType, "field_name", "未配置 group_by 时必须指定数值字段")
		}
		return nil
	case models.RuleTypeForeignKey:
		if fieldName == nil || *fieldName == "" {
			return NewConfigurationError(ruleType, "field_name", "外键检查必须指定字段")
		}
		_, err := ParseForeignKeyCriteria(criteria)
		return err
	default:
		return NewConfigurationError(ruleType, "rule_type", "不支持的规则类型")
	}
}

// ParseNullCheckCriteria 解析空值检查判定条件
func ParseNullCheckCriteria(criteria models.JSONB) (*NullCheckCriteria, error) {
	return &NullCheckCriteria{
		AllowNull: cast.ToBool(criteria["allow_null"]),
	}, nil
}

// ParseRegexMatchCriteria 解析正则匹配判定条件
func ParseRegexMatchCriteria(criteria models.JSONB) (*RegexMatchCriteria, error) {
	c := &RegexMatchCriteria{
		Pattern:   cast.ToString(criteria["pattern"]),
		Flags:     cast.ToString(criteria["flags"]),
		AllowNull: cast.ToBool(criteria["allow_null"]),
	}
	if c.Pattern == "" {
		return nil, NewConfigurationError(models.RuleTypeRegexMatch, "pattern", "正则表达式不能为空")
	}
	if _, err := c.CompiledPattern(); err != nil {
		return nil, NewConfigurationError(models.RuleTypeRegexMatch, "pattern", "正则表达式编译失败: "+err.Error())
	}
	return c, nil
}

// ParseRangeCheckCriteria 解析区间检查判定条件
func ParseRangeCheckCriteria(criteria models.JSONB) (*RangeCheckCriteria, error) {
	c := &RangeCheckCriteria{
		Min:       toFloatPtr(criteria["min"]),
		Max:       toFloatPtr(criteria["max"]),
		AllowNull: cast.ToBool(criteria["allow_null"]),
	}

	if rawConditions, ok := criteria["conditions"]; ok && rawConditions != nil {
		items, err := cast.ToSliceE(rawConditions)
		if err != nil {
			return nil, NewConfigurationError(models.RuleTypeRangeCheck, "conditions", "条件列表格式错误")
		}
		for _, item := range items {
			m, err := cast.ToStringMapE(item)
			if err != nil {
				return nil, NewConfigurationError(models.RuleTypeRangeCheck, "conditions", "条件项必须是对象")
			}
			cond := RangeCondition{
				Field:  cast.ToString(m["field"]),
				Equals: cast.ToString(m["equals"]),
				Min:    toFloatPtr(m["min"]),
				Max:    toFloatPtr(m["max"]),
			}
			if cond.Field == "" {
				return nil, NewConfigurationError(models.RuleTypeRangeCheck, "conditions", "条件项缺少判别字段")
			}
			if cond.Min == nil && cond.Max == nil {
				return nil, NewConfigurationError(models.RuleTypeRangeCheck, "conditions", "条件项至少需要 min 或 max 之一")
			}
			c.Conditions = append(c.Conditions, cond)
		}
	}

	if c.Min == nil && c.Max == nil && len(c.Conditions) == 0 {
		return nil, NewConfigurationError(models.RuleTypeRangeCheck, "min/max", "至少需要 min、max 或 conditions 之一")
	}
	if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		return nil, NewConfigurationError(models.RuleTypeRangeCheck, "min/max", "下界不能大于上界")
	}
	return c, nil
}

// ParseCustomSQLCriteria 解析自定义SQL判定条件
func ParseCustomSQLCriteria(criteria models.JSONB) (*CustomSQLCriteria, error) {
	c := &CustomSQLCriteria{
		Query:         strings.TrimSpace(cast.ToString(criteria["query"])),
		ExpectedValue: cast.ToFloat64(criteria["expected_value"]),
	}
	if c.Query == "" {
		return nil, NewConfigurationError(models.RuleTypeCustomSQL, "query", "查询语句不能为空")
	}
	if !strings.HasPrefix(strings.ToUpper(c.Query), "SELECT") {
		return nil, NewConfigurationError(models.RuleTypeCustomSQL, "query", "仅允许 SELECT 查询")
	}
	if strings.Contains(strings.TrimRight(c.Query, ";"), ";") {
		return nil, NewConfigurationError(models.RuleTypeCustomSQL, "query", "不允许多条语句")
	}
	return c, nil
}

// ParseAnomalyCriteria 解析异常检测判定条件
func ParseAnomalyCriteria(criteria models.JSONB) (*AnomalyCriteria, error) {
	c := &AnomalyCriteria{
		GroupBy:   cast.ToString(criteria["group_by"]),
		Threshold: DefaultAnomalyThreshold,
	}
	if raw, ok := criteria["threshold"]; ok && raw != nil {
		threshold, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, NewConfigurationError(models.RuleTypeAnomalyDetection, "threshold", "阈值必须是数值")
		}
		if threshold <= 0 {
			return nil, NewConfigurationError(models.RuleTypeAnomalyDetection, "threshold", "阈值必须大于0")
		}
		c.Threshold = threshold
	}
	return c, nil
}

// ParseForeignKeyCriteria 解析外键检查判定条件
func ParseForeignKeyCriteria(criteria models.JSONB) (*ForeignKeyCriteria, error) {
	c := &ForeignKeyCriteria{
		ReferencedTable: cast.ToString(criteria["referenced_table"]),
		ReferencedField: cast.ToString(criteria["referenced_field"]),
	}
	if c.ReferencedTable == "" {
		return nil, NewConfigurationError(models.RuleTypeForeignKey, "referenced_table", "引用表不能为空")
	}
	if c.ReferencedField == "" {
		return nil, NewConfigurationError(models.RuleTypeForeignKey, "referenced_field", "引用字段不能为空")
	}
	return c, nil
}

// toFloatPtr 宽松地将JSON值转换为浮点指针，nil或转换失败时返回nil
func toFloatPtr(raw interface{}) *float64 {
	if raw == nil {
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return nil
	}
	return &v
}
