/*
 * @module service/datasource/query_executor
 * @description 受限SQL查询执行器，为自定义SQL质量检测提供窄接口的标量查询能力
 * @architecture 分层架构 - 数据访问层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 校验语句 -> 执行查询 -> 提取首行首列标量
 * @rules 仅允许单条SELECT语句，规则引擎不直接拼接SQL
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/governance/rule_engine.go
 */

package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// 查询语句校验错误
var (
	ErrEmptyQuery      = errors.New("查询语句为空")
	ErrNotSelectQuery  = errors.New("仅允许 SELECT 查询")
	ErrMultiStatements = errors.New("不允许多条语句")
	ErrNoRows          = errors.New("查询未返回任何行")
)

// QueryExecutor 标量查询执行器接口，自定义SQL检测的唯一数据出口
type QueryExecutor interface {
	// ScalarQuery 执行查询并返回首行首列的数值
	ScalarQuery(ctx context.Context, query string) (float64, error)
}

// GormQueryExecutor 基于gorm连接的查询执行器
type GormQueryExecutor struct {
	db *gorm.DB
}

// NewGormQueryExecutor 创建查询执行器
func NewGormQueryExecutor(db *gorm.DB) *GormQueryExecutor {
	return &GormQueryExecutor{db: db}
}

// ValidateQuery 校验查询语句，只放行单条SELECT
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return ErrNotSelectQuery
	}
	if strings.Contains(strings.TrimRight(trimmed, ";"), ";") {
		return ErrMultiStatements
	}
	return nil
}

// ScalarQuery 执行单条SELECT并提取首行首列的数值结果
func (e *GormQueryExecutor) ScalarQuery(ctx context.Context, query string) (float64, error) {
	if err := ValidateQuery(query); err != nil {
		return 0, err
	}

	rows, err := e.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return 0, fmt.Errorf("执行查询失败: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("读取查询结果失败: %w", err)
		}
		return 0, ErrNoRows
	}

	// 多列结果取首列，Scan的目标数必须与列数一致
	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("获取查询列信息失败: %w", err)
	}
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := rows.Scan(pointers...); err != nil {
		return 0, fmt.Errorf("读取查询结果失败: %w", err)
	}

	value, err := cast.ToFloat64E(normalizeScanned(values[0]))
	if err != nil {
		return 0, fmt.Errorf("查询结果不是数值: %w", err)
	}
	return value, nil
}

// normalizeScanned 驱动可能以[]byte返回数值列，统一转成字符串再做数值转换
func normalizeScanned(raw interface{}) interface{} {
	if b, ok := raw.([]byte); ok {
		return string(b)
	}
	return raw
}
