/*
 * @module api/controllers/quality_check_controller
 * @description 质量检测控制器，提供批量检测触发、执行记录查询与质量评分API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 批量检测同步返回摘要；执行记录查询按执行时间倒序
 * @dependencies datagov-service/service, github.com/go-chi/render
 * @refs governance_controller.go
 */

package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"datagov-service/service/governance"
	"datagov-service/service/rate_limiter"

	"github.com/go-chi/render"
)

// QualityCheckController 质量检测控制器
type QualityCheckController struct {
	governanceService *governance.GovernanceService
	triggerLimiter    rate_limiter.TriggerLimiter
	globalPerMinute   int
	actorPerMinute    int
}

// NewQualityCheckController 创建质量检测控制器实例
func NewQualityCheckController(governanceService *governance.GovernanceService) *QualityCheckController {
	return &QualityCheckController{
		governanceService: governanceService,
	}
}

// SetTriggerLimiter 设置检测触发限流器，额度为0的层级不启用
func (c *QualityCheckController) SetTriggerLimiter(limiter rate_limiter.TriggerLimiter, globalPerMinute, actorPerMinute int) {
	c.triggerLimiter = limiter
	c.globalPerMinute = globalPerMinute
	c.actorPerMinute = actorPerMinute
}

// checkTriggerLimit 手工触发限流检查，限流器故障时放行不阻断检测
func (c *QualityCheckController) checkTriggerLimit(r *http.Request, actor string) *rate_limiter.Result {
	if c.triggerLimiter == nil {
		return nil
	}

	var rules []rate_limiter.Rule
	if c.globalPerMinute > 0 {
		rules = append(rules, rate_limiter.Rule{
			Scope: rate_limiter.ScopeGlobal, TimeWindow: 60, MaxRequests: c.globalPerMinute,
		})
	}
	if c.actorPerMinute > 0 && actor != "" {
		rules = append(rules, rate_limiter.Rule{
			Scope: rate_limiter.ScopeActor, TargetID: actor, TimeWindow: 60, MaxRequests: c.actorPerMinute,
		})
	}
	if len(rules) == 0 {
		return nil
	}

	result, err := c.triggerLimiter.Check(r.Context(), rules)
	if err != nil {
		slog.Error("触发限流检查失败，本次放行", "error", err)
		return nil
	}
	if result.Allowed {
		return nil
	}
	return result
}

// RunChecks 触发批量质量检测
// @Summary 触发批量质量检测
// @Description 按数据集或规则ID过滤执行启用的质量规则，返回本次检测摘要
// @Tags 质量检测
// @Accept json
// @Produce json
// @Param request body governance.RunChecksRequest false "过滤条件，为空时执行全量检测"
// @Success 200 {object} APIResponse{data=governance.RunSummary} "检测完成"
// @Failure 404 {object} APIResponse "数据集或规则不存在"
// @Failure 429 {object} APIResponse "触发过于频繁"
// @Router /governance/quality-checks/run [post]
func (c *QualityCheckController) RunChecks(w http.ResponseWriter, r *http.Request) {
	var req governance.RunChecksRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.JSON(w, r, APIResponse{
				Status: http.StatusBadRequest,
				Msg:    "请求参数格式错误",
			})
			return
		}
	}

	if limited := c.checkTriggerLimit(r, req.TriggerBy); limited != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusTooManyRequests,
			Msg:    limited.Message,
			Data:   limited,
		})
		return
	}

	summary, err := c.governanceService.RunChecks(r.Context(), req)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "批量质量检测完成",
		Data:   summary,
	})
}

// ListResults 查询执行记录
// @Summary 查询执行记录
// @Description 查询质量规则执行记录，按执行时间倒序，支持按数据集、规则类型、状态过滤
// @Tags 质量检测
// @Produce json
// @Param dataset_id query string false "数据集ID"
// @Param rule_id query string false "规则ID"
// @Param rule_type query string false "规则类型"
// @Param status query string false "执行状态" Enums(PASS,FAIL,ERROR)
// @Param limit query int false "返回条数" default(50)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} PaginatedResponse{data=[]models.QualityRuleExecution} "查询成功"
// @Router /governance/quality-checks/results [get]
func (c *QualityCheckController) ListResults(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	query := governance.ExecutionListQuery{
		DatasetID: r.URL.Query().Get("dataset_id"),
		RuleID:    r.URL.Query().Get("rule_id"),
		RuleType:  r.URL.Query().Get("rule_type"),
		Status:    r.URL.Query().Get("status"),
		Limit:     limit,
		Offset:    offset,
	}

	executions, total, err := c.governanceService.ListExecutions(r.Context(), query)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "查询执行记录失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "查询执行记录成功",
		Data:   executions,
		Total:  total,
	})
}

// GetScore 获取质量评分
// @Summary 获取质量评分
// @Description 获取数据集或全目录的质量评分（0-100），基于各启用规则的最近一次执行结果
// @Tags 质量检测
// @Produce json
// @Param dataset_id query string false "数据集ID，为空时返回全目录评分"
// @Success 200 {object} APIResponse{data=governance.QualityScore} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /governance/quality-checks/score [get]
func (c *QualityCheckController) GetScore(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset_id")

	var score *governance.QualityScore
	var err error
	if datasetID != "" {
		score, err = c.governanceService.GetDatasetScore(r.Context(), datasetID)
	} else {
		score, err = c.governanceService.GetCatalogScore(r.Context())
	}
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取质量评分成功",
		Data:   score,
	})
}
