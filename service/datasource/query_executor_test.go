/*
 * @module service/datasource/query_executor_test
 * @description 受限SQL查询执行器测试
 * @architecture 测试层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 建表造数 -> 执行标量查询 -> 验证结果与拦截
 * @rules 非SELECT、多条语句、非数值结果都必须被拦截
 * @dependencies testing, gorm.io/driver/sqlite
 * @refs query_executor.go
 */

package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupExecutorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("CREATE TABLE orders (id INTEGER PRIMARY KEY, amount REAL, status TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO orders (amount, status) VALUES (10.5, 'paid'), (20, 'paid'), (5, 'cancelled')").Error)
	return db
}

func TestValidateQuery(t *testing.T) {
	assert.ErrorIs(t, ValidateQuery(""), ErrEmptyQuery)
	assert.ErrorIs(t, ValidateQuery("   "), ErrEmptyQuery)
	assert.ErrorIs(t, ValidateQuery("UPDATE orders SET amount = 0"), ErrNotSelectQuery)
	assert.ErrorIs(t, ValidateQuery("DROP TABLE orders"), ErrNotSelectQuery)
	assert.ErrorIs(t, ValidateQuery("SELECT 1; DELETE FROM orders"), ErrMultiStatements)

	assert.NoError(t, ValidateQuery("SELECT COUNT(*) FROM orders"))
	assert.NoError(t, ValidateQuery("  select count(*) from orders  "))
	assert.NoError(t, ValidateQuery("SELECT COUNT(*) FROM orders;"), "单条语句允许结尾分号")
}

func TestScalarQuery(t *testing.T) {
	db := setupExecutorDB(t)
	executor := NewGormQueryExecutor(db)
	ctx := context.Background()

	value, err := executor.ScalarQuery(ctx, "SELECT COUNT(*) FROM orders WHERE status = 'paid'")
	require.NoError(t, err)
	assert.Equal(t, 2.0, value)

	value, err = executor.ScalarQuery(ctx, "SELECT SUM(amount) FROM orders WHERE status = 'paid'")
	require.NoError(t, err)
	assert.InDelta(t, 30.5, value, 1e-9)

	// 多列查询只取首列
	value, err = executor.ScalarQuery(ctx, "SELECT COUNT(*), MAX(amount) FROM orders")
	require.NoError(t, err)
	assert.Equal(t, 3.0, value)
}

func TestScalarQuery_Rejections(t *testing.T) {
	db := setupExecutorDB(t)
	executor := NewGormQueryExecutor(db)
	ctx := context.Background()

	_, err := executor.ScalarQuery(ctx, "DELETE FROM orders")
	assert.ErrorIs(t, err, ErrNotSelectQuery)

	_, err = executor.ScalarQuery(ctx, "SELECT COUNT(*) FROM no_such_table")
	assert.Error(t, err)

	_, err = executor.ScalarQuery(ctx, "SELECT status FROM orders LIMIT 1")
	assert.Error(t, err, "非数值结果应报错")

	_, err = executor.ScalarQuery(ctx, "SELECT id FROM orders WHERE amount > 9999")
	assert.ErrorIs(t, err, ErrNoRows)
}
