/*
 * @module service/governance/tests/governance_service_test
 * @description 治理服务测试，覆盖数据集注册、规则生命周期与执行记录查询
 * @architecture 测试层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 注册数据集 -> 创建规则 -> 更新/停用 -> 查询执行记录
 * @rules 判定条件错误在落库前拦截；停用保留历史；查询按时间倒序
 * @dependencies testing, datagov-service/service/governance, datagov-service/testutil
 * @refs governance_service.go
 */

package tests

import (
	"context"
	"testing"
	"time"

	"datagov-service/service/distributed_lock"
	"datagov-service/service/governance"
	"datagov-service/service/models"
	"datagov-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupService 构造治理服务与数据工厂
func setupService(t *testing.T) (*gorm.DB, *governance.GovernanceService, *testutil.TestDataFactory) {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	svc := governance.NewGovernanceService(tdb.DB, distributed_lock.NewMemoryLock())
	return tdb.DB, svc, testutil.NewTestDataFactory(tdb.DB)
}

func TestCreateDataset(t *testing.T) {
	_, svc, _ := setupService(t)

	dataset, err := svc.CreateDataset(context.Background(), &governance.CreateDatasetRequest{
		Name:        "community_posts",
		DisplayName: "社区帖子",
		Domain:      "community",
		Sensitivity: models.SensitivityPII,
		OwnerTeam:   "data-platform",
		Tags:        []string{"ugc", "hot"},
		CreatedBy:   "admin",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, dataset.ID)
	assert.True(t, dataset.IsProtected())

	loaded, err := svc.GetDataset(context.Background(), dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, "community_posts", loaded.Name)
	assert.Equal(t, models.JSONBStringArray{"ugc", "hot"}, loaded.Tags)

	// 无效敏感级别
	_, err = svc.CreateDataset(context.Background(), &governance.CreateDatasetRequest{
		Name: "bad_ds", Sensitivity: "TOP_SECRET",
	})
	assert.Error(t, err)
}

func TestCreateQualityRule_InvalidCriteriaNotPersisted(t *testing.T) {
	db, svc, factory := setupService(t)
	dataset := factory.CreateDataset()

	_, err := svc.CreateQualityRule(context.Background(), &governance.CreateQualityRuleRequest{
		DatasetID: dataset.ID,
		Name:      "坏正则",
		RuleType:  models.RuleTypeRegexMatch,
		FieldName: stringPtr("email"),
		Criteria:  map[string]interface{}{"pattern": "([bad"},
	})
	require.Error(t, err)
	assert.True(t, governance.IsConfigurationError(err))

	var count int64
	require.NoError(t, db.Model(&models.QualityRule{}).Count(&count).Error)
	assert.Equal(t, int64(0), count, "校验失败的规则不应落库")
}

func TestCreateQualityRule_UnknownDataset(t *testing.T) {
	_, svc, _ := setupService(t)

	_, err := svc.CreateQualityRule(context.Background(), &governance.CreateQualityRuleRequest{
		DatasetID: "ds_not_exist",
		Name:      "规则",
		RuleType:  models.RuleTypeNullCheck,
		FieldName: stringPtr("email"),
		Criteria:  map[string]interface{}{"allow_null": false},
	})
	assert.ErrorIs(t, err, governance.ErrDatasetNotFound)
}

func TestCreateQualityRule_InvalidSeverity(t *testing.T) {
	_, svc, factory := setupService(t)
	dataset := factory.CreateDataset()

	_, err := svc.CreateQualityRule(context.Background(), &governance.CreateQualityRuleRequest{
		DatasetID: dataset.ID,
		Name:      "规则",
		RuleType:  models.RuleTypeNullCheck,
		FieldName: stringPtr("email"),
		Criteria:  map[string]interface{}{"allow_null": false},
		Severity:  "FATAL",
	})
	assert.True(t, governance.IsConfigurationError(err))
}

func TestUpdateQualityRule_Revalidates(t *testing.T) {
	_, svc, factory := setupService(t)
	dataset := factory.CreateDataset()
	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRangeCheck
		r.FieldName = stringPtr("age")
		r.Criteria = models.JSONB{"min": 0, "max": 150}
	})

	// 变更为非法判定条件被拦截
	_, err := svc.UpdateQualityRule(context.Background(), rule.ID, &governance.UpdateQualityRuleRequest{
		Criteria: map[string]interface{}{"min": 100, "max": 1},
	})
	assert.True(t, governance.IsConfigurationError(err))

	// 原判定条件未被破坏
	loaded, err := svc.GetQualityRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, loaded.Criteria["max"])

	// 合法更新生效
	updated, err := svc.UpdateQualityRule(context.Background(), rule.ID, &governance.UpdateQualityRuleRequest{
		Name:     "年龄区间",
		Criteria: map[string]interface{}{"min": 0, "max": 120},
		Severity: models.SeverityCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, "年龄区间", updated.Name)
	assert.Equal(t, models.SeverityCritical, updated.Severity)
}

func TestDeactivateQualityRule_KeepsHistory(t *testing.T) {
	db, svc, factory := setupService(t)
	dataset := factory.CreateDataset()
	rule := factory.CreateQualityRule(dataset.ID)
	factory.CreateExecution(rule.ID)
	factory.CreateExecution(rule.ID, func(e *models.QualityRuleExecution) {
		e.Status = models.ExecutionStatusFail
	})

	require.NoError(t, svc.DeactivateQualityRule(context.Background(), rule.ID, "admin"))

	loaded, err := svc.GetQualityRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsActive)

	var count int64
	require.NoError(t, db.Model(&models.QualityRuleExecution{}).Where("rule_id = ?", rule.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count, "停用不删除执行历史")

	assert.ErrorIs(t, svc.DeactivateQualityRule(context.Background(), "qr_not_exist", "admin"), governance.ErrRuleNotFound)
}

func TestCreateInactiveEntitiesPersistedAsInactive(t *testing.T) {
	db, svc, factory := setupService(t)
	dataset := factory.CreateDataset(func(d *models.Dataset) { d.IsActive = false })
	rule := factory.CreateQualityRule(dataset.ID, func(r *models.QualityRule) { r.IsActive = false })

	// 显式的false不能被数据库默认值吞掉
	var storedDataset models.Dataset
	require.NoError(t, db.First(&storedDataset, "id = ?", dataset.ID).Error)
	assert.False(t, storedDataset.IsActive)

	loadedRule, err := svc.GetQualityRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.False(t, loadedRule.IsActive)
}

func TestGetQualityRules_Filters(t *testing.T) {
	_, svc, factory := setupService(t)
	dsA := factory.CreateDataset()
	dsB := factory.CreateDataset()

	factory.CreateQualityRule(dsA.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeNullCheck
		r.Severity = models.SeverityCritical
	})
	factory.CreateQualityRule(dsA.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRangeCheck
		r.FieldName = stringPtr("age")
		r.Criteria = models.JSONB{"min": 0}
		r.IsActive = false
	})
	factory.CreateQualityRule(dsB.ID)

	rules, total, err := svc.GetQualityRules(context.Background(), governance.QualityRuleListQuery{DatasetID: dsA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rules, 2)

	_, total, err = svc.GetQualityRules(context.Background(), governance.QualityRuleListQuery{DatasetID: dsA.ID, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = svc.GetQualityRules(context.Background(), governance.QualityRuleListQuery{Severity: models.SeverityCritical})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListExecutions_FiltersAndOrder(t *testing.T) {
	_, svc, factory := setupService(t)
	dsA := factory.CreateDataset()
	dsB := factory.CreateDataset()
	ruleA := factory.CreateQualityRule(dsA.ID)
	ruleB := factory.CreateQualityRule(dsB.ID, func(r *models.QualityRule) {
		r.RuleType = models.RuleTypeRangeCheck
		r.FieldName = stringPtr("age")
		r.Criteria = models.JSONB{"min": 0}
	})

	factory.CreateExecution(ruleA.ID, func(e *models.QualityRuleExecution) {
		e.RunDate = time.Now().Add(-time.Hour)
	})
	newest := factory.CreateExecution(ruleA.ID, func(e *models.QualityRuleExecution) {
		e.Status = models.ExecutionStatusFail
		e.RunDate = time.Now()
	})
	factory.CreateExecution(ruleB.ID, func(e *models.QualityRuleExecution) {
		e.RunDate = time.Now().Add(-30 * time.Minute)
	})

	// 按数据集过滤并验证倒序
	executions, total, err := svc.ListExecutions(context.Background(), governance.ExecutionListQuery{DatasetID: dsA.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, executions, 2)
	assert.Equal(t, newest.ID, executions[0].ID, "最近一次执行排在最前")

	// 按状态过滤
	executions, _, err = svc.ListExecutions(context.Background(), governance.ExecutionListQuery{Status: models.ExecutionStatusFail})
	require.NoError(t, err)
	require.Len(t, executions, 1)
	assert.Equal(t, ruleA.ID, executions[0].RuleID)

	// 按规则类型过滤
	_, total, err = svc.ListExecutions(context.Background(), governance.ExecutionListQuery{RuleType: models.RuleTypeRangeCheck})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// 按规则ID过滤并限制返回条数
	executions, total, err = svc.ListExecutions(context.Background(), governance.ExecutionListQuery{RuleID: ruleA.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, executions, 1)
}
