/*
 * @module service/governance/scheduler
 * @description 质量检测调度器，按cron表达式周期性触发全量质量检测
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 启动调度器 -> cron触发 -> 分布式锁保护 -> 全量检测 -> 记录摘要
 * @rules cron表达式为6字段（含秒）；多实例部署时由分布式锁保证同一周期只有一个实例执行
 * @dependencies github.com/robfig/cron/v3, service/distributed_lock
 * @refs executor.go, governance_service.go
 */

package governance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"datagov-service/service/distributed_lock"

	"github.com/robfig/cron/v3"
)

// 调度器全量检测的锁TTL
const scheduledRunLockTTL = 30 * time.Minute

// QualityScheduler 质量检测调度器
type QualityScheduler struct {
	service         *GovernanceService
	cron            *cron.Cron
	cronExpr        string
	ctx             context.Context
	cancel          context.CancelFunc
	started         bool
	distributedLock distributed_lock.DistributedLock
}

// NewQualityScheduler 创建质量检测调度器
func NewQualityScheduler(service *GovernanceService, cronExpr string) *QualityScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &QualityScheduler{
		service:  service,
		cron:     cron.New(cron.WithSeconds()),
		cronExpr: cronExpr,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetDistributedLock 设置分布式锁
func (qs *QualityScheduler) SetDistributedLock(lock distributed_lock.DistributedLock) {
	qs.distributedLock = lock
	if lock != nil {
		slog.Info("质量检测调度器已启用分布式锁")
	}
}

// StartScheduler 启动调度器
func (qs *QualityScheduler) StartScheduler() error {
	if qs.started {
		return fmt.Errorf("调度器已经启动")
	}
	if qs.cronExpr == "" {
		slog.Info("未配置质量检测cron表达式，调度器不启动")
		return nil
	}

	if _, err := qs.cron.AddFunc(qs.cronExpr, qs.runScheduledChecks); err != nil {
		slog.Error("添加质量检测定时任务失败",
			"cron_expression", qs.cronExpr,
			"error", err,
			"help", "Cron表达式需要6个字段（秒 分 时 日 月 周），例如：0 0 2 * * *（每天凌晨2点）")
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	qs.cron.Start()
	qs.started = true
	slog.Info("质量检测调度器启动完成", "cron_expression", qs.cronExpr)
	return nil
}

// StopScheduler 停止调度器
func (qs *QualityScheduler) StopScheduler() {
	if !qs.started {
		return
	}
	slog.Info("停止质量检测调度器")
	qs.cancel()
	qs.cron.Stop()
	qs.started = false
}

// runScheduledChecks 执行一次调度触发的全量检测（带分布式锁）
func (qs *QualityScheduler) runScheduledChecks() {
	slog.Info("定时触发全量质量检测")

	if qs.distributedLock != nil {
		lockKey := "quality_scheduled_run"
		locked, err := qs.distributedLock.TryLock(qs.ctx, lockKey, scheduledRunLockTTL)
		if err != nil {
			slog.Error("获取调度锁失败", "error", err)
			return
		}
		if !locked {
			slog.Warn("全量检测正在其他实例执行，跳过本次调度")
			return
		}
		defer func() {
			if unlockErr := qs.distributedLock.Unlock(qs.ctx, lockKey); unlockErr != nil {
				slog.Error("释放调度锁失败", "error", unlockErr)
			}
		}()
	}

	summary, err := qs.service.RunChecks(qs.ctx, RunChecksRequest{TriggerBy: "scheduler"})
	if err != nil {
		slog.Error("定时全量质量检测失败", "error", err)
		return
	}

	// 刷新全目录评分指标
	if _, err := qs.service.GetCatalogScore(qs.ctx); err != nil {
		slog.Error("刷新全目录质量评分失败", "error", err)
	}

	slog.Info("定时全量质量检测完成",
		"triggered", summary.Triggered,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errors", summary.Errors)
}
