/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/backend_requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs ai_docs/model.md
 */

package api

import (
	"datagov-service/api/controllers"
	"datagov-service/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 数据治理
	governanceController := controllers.NewGovernanceController(service.GlobalGovernanceService)
	qualityCheckController := controllers.NewQualityCheckController(service.GlobalGovernanceService)
	qualityCheckController.SetTriggerLimiter(service.GlobalTriggerLimiter, service.TriggerGlobalPerMinute, service.TriggerActorPerMinute)
	lineageController := controllers.NewLineageController(service.GlobalGovernanceService)
	auditController := controllers.NewAuditController(service.GlobalGovernanceService.AuditService())

	r.Route("/governance", func(r chi.Router) {
		// 数据集目录
		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", governanceController.CreateDataset)
			r.Get("/", governanceController.GetDatasets)
			r.Get("/{id}", governanceController.GetDatasetByID)
		})

		// 质量规则管理
		r.Route("/quality-rules", func(r chi.Router) {
			r.Post("/", governanceController.CreateQualityRule)
			r.Get("/", governanceController.GetQualityRules)
			r.Get("/{id}", governanceController.GetQualityRuleByID)
			r.Put("/{id}", governanceController.UpdateQualityRule)
			r.Post("/{id}/deactivate", governanceController.DeactivateQualityRule)
		})

		// 质量检测
		r.Route("/quality-checks", func(r chi.Router) {
			r.Post("/run", qualityCheckController.RunChecks)
			r.Get("/results", qualityCheckController.ListResults)
			r.Get("/score", qualityCheckController.GetScore)
		})

		// 数据血缘
		r.Route("/lineage", func(r chi.Router) {
			r.Post("/edges", lineageController.AddEdge)
			r.Get("/{datasetId}", lineageController.GetLineage)
			r.Get("/{datasetId}/impact", lineageController.GetImpact)
		})

		// 审计日志
		r.Get("/access-logs", auditController.ListAccessLogs)
	})
}
