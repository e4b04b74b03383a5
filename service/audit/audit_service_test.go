/*
 * @module service/audit/audit_service_test
 * @description 敏感访问审计服务测试
 * @architecture 测试层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 记录访问 -> 查询日志 -> 验证留痕与过滤
 * @rules 事件外发失败不影响访问日志落库
 * @dependencies testing, gorm.io/driver/sqlite
 * @refs audit_service.go, event_publisher.go
 */

package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"datagov-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// failingPublisher 始终外发失败的发布器桩
type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, event *AccessEvent) error {
	p.calls++
	return errors.New("broker不可用")
}

func (p *failingPublisher) Close() error { return nil }

// capturingPublisher 捕获外发事件的发布器桩
type capturingPublisher struct {
	events []*AccessEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, event *AccessEvent) error {
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func setupAuditDB(t *testing.T) (*gorm.DB, *models.Dataset) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Dataset{}, &models.SensitiveAccessLog{}))

	dataset := &models.Dataset{
		Name:        "health_records",
		DisplayName: "健康档案",
		Sensitivity: models.SensitivityPHI,
		IsActive:    true,
	}
	require.NoError(t, db.Create(dataset).Error)
	return db, dataset
}

func TestRecordAccess_Persists(t *testing.T) {
	db, dataset := setupAuditDB(t)
	svc := NewAuditService(db)

	entry, err := svc.RecordAccess(context.Background(), dataset, models.ActionQualityCheckRead, 120, "质量规则检测: 身份证号格式", "scheduler")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "scheduler", entry.Actor)

	var stored models.SensitiveAccessLog
	require.NoError(t, db.First(&stored, "id = ?", entry.ID).Error)
	assert.Equal(t, dataset.ID, stored.DatasetID)
	assert.Equal(t, models.ActionQualityCheckRead, stored.ActionType)
	assert.Equal(t, int64(120), stored.RecordCount)
}

func TestRecordAccess_DefaultActor(t *testing.T) {
	db, dataset := setupAuditDB(t)
	svc := NewAuditService(db)

	entry, err := svc.RecordAccess(context.Background(), dataset, models.ActionQuery, 1, "人工抽查", "")
	require.NoError(t, err)
	assert.Equal(t, "system", entry.Actor)
}

func TestRecordAccess_PublisherFailureDoesNotFailRecord(t *testing.T) {
	db, dataset := setupAuditDB(t)
	svc := NewAuditService(db)
	publisher := &failingPublisher{}
	svc.SetEventPublisher(publisher)

	entry, err := svc.RecordAccess(context.Background(), dataset, models.ActionExport, 10, "数据导出", "admin")
	require.NoError(t, err, "外发失败不影响落库")
	assert.Equal(t, 1, publisher.calls)

	var count int64
	require.NoError(t, db.Model(&models.SensitiveAccessLog{}).Where("id = ?", entry.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRecordAccess_PublishesEvent(t *testing.T) {
	db, dataset := setupAuditDB(t)
	svc := NewAuditService(db)
	publisher := &capturingPublisher{}
	svc.SetEventPublisher(publisher)

	entry, err := svc.RecordAccess(context.Background(), dataset, models.ActionQualityCheckRead, 55, "质量规则检测: 邮箱非空", "tester")
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, entry.ID, event.LogID)
	assert.Equal(t, dataset.ID, event.DatasetID)
	assert.Equal(t, models.SensitivityPHI, event.Sensitivity)
	assert.Equal(t, int64(55), event.RecordCount)
}

func TestListAccessLogs_FiltersAndOrder(t *testing.T) {
	db, dataset := setupAuditDB(t)
	svc := NewAuditService(db)

	other := &models.Dataset{Name: "user_profiles", Sensitivity: models.SensitivityPII, IsActive: true}
	require.NoError(t, db.Create(other).Error)

	old := &models.SensitiveAccessLog{
		DatasetID: dataset.ID, ActionType: models.ActionQualityCheckRead,
		AccessedAt: time.Now().Add(-2 * time.Hour),
	}
	recent := &models.SensitiveAccessLog{
		DatasetID: dataset.ID, ActionType: models.ActionExport,
		AccessedAt: time.Now().Add(-time.Minute),
	}
	otherLog := &models.SensitiveAccessLog{
		DatasetID: other.ID, ActionType: models.ActionQualityCheckRead,
		AccessedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(recent).Error)
	require.NoError(t, db.Create(otherLog).Error)

	logs, total, err := svc.ListAccessLogs(context.Background(), AccessLogQuery{DatasetID: dataset.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, logs, 2)
	assert.Equal(t, recent.ID, logs[0].ID, "按访问时间倒序")

	logs, _, err = svc.ListAccessLogs(context.Background(), AccessLogQuery{ActionType: models.ActionQualityCheckRead})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	since := time.Now().Add(-90 * time.Minute)
	logs, _, err = svc.ListAccessLogs(context.Background(), AccessLogQuery{Since: &since})
	require.NoError(t, err)
	assert.Len(t, logs, 2, "时间下限过滤掉更早的记录")
}
