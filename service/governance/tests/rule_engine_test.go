/*
 * @module service/governance/tests/rule_engine_test
 * @description 质量规则执行引擎测试，基于内存SQLite构造真实数据表
 * @architecture 测试层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 建表造数 -> 创建规则 -> 执行引擎 -> 验证检测结果
 * @rules 覆盖六种规则类型的通过/失败/异常路径与边界取值
 * @dependencies testing, datagov-service/service/governance, datagov-service/testutil
 * @refs rule_engine.go
 */

package tests

import (
	"context"
	"testing"

	"datagov-service/service/governance"
	"datagov-service/service/models"
	"datagov-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupEngine 构造测试数据库与规则引擎
func setupEngine(t *testing.T) (*gorm.DB, *governance.RuleEngine, *testutil.TestDataFactory) {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return tdb.DB, governance.NewRuleEngine(tdb.DB), testutil.NewTestDataFactory(tdb.DB)
}

// createMembersTable 造一张社区成员表
func createMembersTable(t *testing.T, db *gorm.DB, tableName string) {
	t.Helper()
	require.NoError(t, db.Exec("CREATE TABLE "+tableName+" (id TEXT PRIMARY KEY, email TEXT, age REAL, member_type TEXT, region_id TEXT)").Error)
}

func insertMember(t *testing.T, db *gorm.DB, tableName, id string, email interface{}, age interface{}, memberType, regionID interface{}) {
	t.Helper()
	require.NoError(t, db.Exec("INSERT INTO "+tableName+" (id, email, age, member_type, region_id) VALUES (?, ?, ?, ?, ?)",
		id, email, age, memberType, regionID).Error)
}

func stringPtr(s string) *string { return &s }

func TestRuleEngine_NullCheck(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_nc" })
	createMembersTable(t, db, dataset.Name)

	insertMember(t, db, dataset.Name, "1", "a@example.com", 30, "adult", "r1")
	insertMember(t, db, dataset.Name, "2", nil, 31, "adult", "r1")
	insertMember(t, db, dataset.Name, "3", "", 32, "adult", "r1")
	insertMember(t, db, dataset.Name, "4", "b@example.com", 33, "adult", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeNullCheck
		r.FieldName = stringPtr("email")
		r.Criteria = models.JSONB{"allow_null": false}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(4), result.RecordsChecked)
	assert.Equal(t, int64(2), result.FailuresFound, "NULL和空字符串都计为空值")

	// allow_null 时空值不计为失败
	rule.Criteria = models.JSONB{"allow_null": true}
	result = engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusPass, result.Status)
	assert.Equal(t, int64(0), result.FailuresFound)
}

func TestRuleEngine_RegexMatch(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_re" })
	createMembersTable(t, db, dataset.Name)

	insertMember(t, db, dataset.Name, "1", "good@example.com", 30, "adult", "r1")
	insertMember(t, db, dataset.Name, "2", "BAD-ADDRESS", 31, "adult", "r1")
	insertMember(t, db, dataset.Name, "3", "UPPER@EXAMPLE.COM", 32, "adult", "r1")
	insertMember(t, db, dataset.Name, "4", nil, 33, "adult", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRegexMatch
		r.FieldName = stringPtr("email")
		r.Criteria = models.JSONB{
			"pattern":    `^[\w.+-]+@[\w.-]+\.[a-z]{2,}$`,
			"flags":      "i",
			"allow_null": false,
		}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	// i 标志下大写邮箱匹配成功；格式错误和NULL各计1
	assert.Equal(t, int64(2), result.FailuresFound)
	assert.Equal(t, int64(4), result.RecordsChecked)
}

func TestRuleEngine_RegexMatch_CaseSensitivity(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_cs" })
	createMembersTable(t, db, dataset.Name)

	insertMember(t, db, dataset.Name, "1", "a@x.com", 30, "Low", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRegexMatch
		r.FieldName = stringPtr("member_type")
		r.Criteria = models.JSONB{"pattern": "^(low|medium|high|very_high)$"}
	})

	// 默认大小写敏感，"Low"不匹配
	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(1), result.FailuresFound)

	// i 标志下同一个值匹配成功
	rule.Criteria = models.JSONB{"pattern": "^(low|medium|high|very_high)$", "flags": "i"}
	result = engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusPass, result.Status)
	assert.Equal(t, int64(0), result.FailuresFound)
}

func TestRuleEngine_RangeCheck_InclusiveBounds(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_rc" })
	createMembersTable(t, db, dataset.Name)

	// 边界值0和150为闭区间端点，应当通过
	insertMember(t, db, dataset.Name, "1", "a@x.com", 0, "adult", "r1")
	insertMember(t, db, dataset.Name, "2", "b@x.com", 150, "adult", "r1")
	insertMember(t, db, dataset.Name, "3", "c@x.com", 151, "adult", "r1")
	insertMember(t, db, dataset.Name, "4", "d@x.com", -1, "adult", "r1")
	insertMember(t, db, dataset.Name, "5", "e@x.com", 42, "adult", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRangeCheck
		r.FieldName = stringPtr("age")
		r.Criteria = models.JSONB{"min": 0, "max": 150}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(2), result.FailuresFound, "恰好等于边界的值应当通过")
}

func TestRuleEngine_RangeCheck_Conditional(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_rcc" })
	createMembersTable(t, db, dataset.Name)

	insertMember(t, db, dataset.Name, "1", "a@x.com", 15, "minor", "r1")
	insertMember(t, db, dataset.Name, "2", "b@x.com", 30, "adult", "r1")
	insertMember(t, db, dataset.Name, "3", "c@x.com", 30, "minor", "r1") // minor越界
	insertMember(t, db, dataset.Name, "4", "d@x.com", 15, "adult", "r1") // adult越界
	insertMember(t, db, dataset.Name, "5", "e@x.com", 50, "unknown", "r1") // 未命中任何分支

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRangeCheck
		r.FieldName = stringPtr("age")
		r.Criteria = models.JSONB{
			"conditions": []interface{}{
				map[string]interface{}{"field": "member_type", "equals": "minor", "min": 0, "max": 17},
				map[string]interface{}{"field": "member_type", "equals": "adult", "min": 18, "max": 120},
			},
		}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(3), result.FailuresFound)
}

func TestRuleEngine_ForeignKey(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_fk" })
	createMembersTable(t, db, dataset.Name)
	require.NoError(t, db.Exec("CREATE TABLE regions_fk (id TEXT PRIMARY KEY, name TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO regions_fk (id, name) VALUES ('r1', '东区'), ('r2', '西区')").Error)

	insertMember(t, db, dataset.Name, "1", "a@x.com", 30, "adult", "r1")
	insertMember(t, db, dataset.Name, "2", "b@x.com", 31, "adult", "r9") // 引用失效
	insertMember(t, db, dataset.Name, "3", "c@x.com", 32, "adult", nil)  // 空值不参与判定

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeForeignKey
		r.FieldName = stringPtr("region_id")
		r.Criteria = models.JSONB{"referenced_table": "regions_fk", "referenced_field": "id"}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(1), result.FailuresFound)
	assert.Equal(t, int64(3), result.RecordsChecked)
}

func TestRuleEngine_CustomSQL(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_sql" })
	createMembersTable(t, db, dataset.Name)

	insertMember(t, db, dataset.Name, "1", nil, 30, "adult", "r1")
	insertMember(t, db, dataset.Name, "2", nil, 31, "adult", "r1")
	insertMember(t, db, dataset.Name, "3", "a@x.com", 32, "adult", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeCustomSQL
		r.FieldName = nil
		r.Criteria = models.JSONB{
			"query":          "SELECT COUNT(*) FROM members_sql WHERE email IS NULL",
			"expected_value": 0,
		}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(2), result.FailuresFound, "失败数取查询返回值")

	// 期望值一致时通过
	rule.Criteria = models.JSONB{
		"query":          "SELECT COUNT(*) FROM members_sql WHERE email IS NULL",
		"expected_value": 2,
	}
	result = engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusPass, result.Status)

	// 非SELECT语句转为ERROR结果
	rule.Criteria = models.JSONB{"query": "DELETE FROM members_sql", "expected_value": 0}
	result = engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusError, result.Status)
}

func TestRuleEngine_AnomalyDetection_GroupBy(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "events_ad" })
	require.NoError(t, db.Exec("CREATE TABLE events_ad (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT)").Error)

	// 10个用户的周事件数: 2,3,2,3,2,50,3,2,3,2
	counts := []int{2, 3, 2, 3, 2, 50, 3, 2, 3, 2}
	for i, n := range counts {
		for j := 0; j < n; j++ {
			require.NoError(t, db.Exec("INSERT INTO events_ad (user_id) VALUES (?)", string(rune('a'+i))).Error)
		}
	}

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeAnomalyDetection
		r.FieldName = nil
		r.Criteria = models.JSONB{"group_by": "user_id", "threshold": 3.0}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusPass, result.Status, "z约2.998不超过阈值3.0")
	assert.Equal(t, int64(0), result.FailuresFound)
	require.NotNil(t, result.AnomalyScore)
	assert.InDelta(t, 2.998, *result.AnomalyScore, 0.01)

	rule.Criteria = models.JSONB{"group_by": "user_id", "threshold": 2.5}
	result = engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusFail, result.Status)
	assert.Equal(t, int64(1), result.FailuresFound)
}

func TestRuleEngine_AnomalyDetection_TooFewGroups(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "events_ad2" })
	require.NoError(t, db.Exec("CREATE TABLE events_ad2 (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT)").Error)
	require.NoError(t, db.Exec("INSERT INTO events_ad2 (user_id) VALUES ('a'), ('a'), ('a')").Error)

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeAnomalyDetection
		r.FieldName = nil
		r.Criteria = models.JSONB{"group_by": "user_id"}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusPass, result.Status, "分组不足时不判定异常")
	assert.Nil(t, result.AnomalyScore)
}

func TestRuleEngine_MissingTableProducesError(t *testing.T) {
	_, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "no_such_table" })

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeNullCheck
		r.FieldName = stringPtr("email")
		r.Criteria = models.JSONB{}
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusError, result.Status)
	assert.NotEmpty(t, result.Detail)
}

func TestRuleEngine_UnsupportedRuleType(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_ut" })
	createMembersTable(t, db, dataset.Name)

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = "SOMETHING_ELSE"
	})

	result := engine.Evaluate(context.Background(), rule, dataset)
	assert.Equal(t, models.ExecutionStatusError, result.Status)
}

func TestRuleEngine_CancelledContextProducesError(t *testing.T) {
	db, engine, factory := setupEngine(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.Name = "members_ctx" })
	createMembersTable(t, db, dataset.Name)
	insertMember(t, db, dataset.Name, "1", "a@x.com", 30, "adult", "r1")

	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeNullCheck
		r.FieldName = stringPtr("email")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := engine.Evaluate(ctx, rule, dataset)
	assert.Equal(t, models.ExecutionStatusError, result.Status)
}
