/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"fmt"
	"time"

	"datagov-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.Dataset{},
		&models.LineageEdge{},
		&models.QualityRule{},
		&models.QualityRuleExecution{},
		&models.SensitiveAccessLog{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"datasets",
		"lineage_edges",
		"quality_rules",
		"quality_rule_executions",
		"sensitive_access_logs",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// DatasetOption 数据集选项函数类型
type DatasetOption func(*models.Dataset)

// CreateDataset 创建测试数据集
func (f *TestDataFactory) CreateDataset(opts ...DatasetOption) *models.Dataset {
	dataset := &models.Dataset{
		ID:          generateID("ds"),
		Name:        "test_table_" + generateSuffix(),
		DisplayName: "测试数据集",
		Description: "这是一个测试数据集",
		Domain:      "community",
		Sensitivity: models.SensitivityInternal,
		OwnerTeam:   "data-platform",
		IsActive:    true,
		CreatedBy:   "test",
		UpdatedBy:   "test",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(dataset)
	}

	err := f.DB.Create(dataset).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test dataset: %v", err))
	}

	return dataset
}

// QualityRuleOption 质量规则选项函数类型
type QualityRuleOption func(*models.QualityRule)

// CreateQualityRule 创建测试质量规则
func (f *TestDataFactory) CreateQualityRule(datasetID string, opts ...QualityRuleOption) *models.QualityRule {
	fieldName := "email"
	rule := &models.QualityRule{
		ID:          generateID("qr"),
		DatasetID:   datasetID,
		Name:        "测试质量规则",
		Description: "这是一个测试质量规则",
		RuleType:    models.RuleTypeNullCheck,
		FieldName:   &fieldName,
		Criteria:    models.JSONB{"allow_null": false},
		Severity:    models.SeverityWarning,
		IsActive:    true,
		CreatedBy:   "test",
		UpdatedBy:   "test",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(rule)
	}

	err := f.DB.Create(rule).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test quality rule: %v", err))
	}

	return rule
}

// ExecutionOption 执行记录选项函数类型
type ExecutionOption func(*models.QualityRuleExecution)

// CreateExecution 创建测试执行记录
func (f *TestDataFactory) CreateExecution(ruleID string, opts ...ExecutionOption) *models.QualityRuleExecution {
	execution := &models.QualityRuleExecution{
		ID:             generateID("ex"),
		RuleID:         ruleID,
		Status:         models.ExecutionStatusPass,
		RecordsChecked: 100,
		FailuresFound:  0,
		RunDate:        time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(execution)
	}

	err := f.DB.Create(execution).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test execution: %v", err))
	}

	return execution
}

// LineageEdgeOption 血缘边选项函数类型
type LineageEdgeOption func(*models.LineageEdge)

// CreateLineageEdge 创建测试血缘边
func (f *TestDataFactory) CreateLineageEdge(sourceID, targetID string, opts ...LineageEdgeOption) *models.LineageEdge {
	edge := &models.LineageEdge{
		ID:              generateID("le"),
		SourceDatasetID: sourceID,
		TargetDatasetID: targetID,
		TransformType:   models.TransformTypeETL,
		CreatedBy:       "test",
		CreatedAt:       time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(edge)
	}

	err := f.DB.Create(edge).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test lineage edge: %v", err))
	}

	return edge
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}
