/*
 * @module api/controllers/governance_controller
 * @description 数据治理控制器，提供数据集目录与质量规则管理API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；规则判定条件格式错误返回400
 * @dependencies datagov-service/service, github.com/go-chi/chi/v5
 * @refs ai_docs/model.md
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"datagov-service/service/governance"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// GovernanceController 数据治理控制器
type GovernanceController struct {
	governanceService *governance.GovernanceService
}

// NewGovernanceController 创建数据治理控制器实例
func NewGovernanceController(governanceService *governance.GovernanceService) *GovernanceController {
	return &GovernanceController{
		governanceService: governanceService,
	}
}

// === 数据集目录管理 ===

// CreateDataset 注册数据集
// @Summary 注册数据集
// @Description 在目录中注册一个受管数据集
// @Tags 数据治理
// @Accept json
// @Produce json
// @Param dataset body governance.CreateDatasetRequest true "数据集信息"
// @Success 201 {object} APIResponse{data=models.Dataset} "注册成功"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /governance/datasets [post]
func (c *GovernanceController) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var req governance.CreateDatasetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	dataset, err := c.governanceService.CreateDataset(r.Context(), &req)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "注册数据集成功",
		Data:   dataset,
	})
}

// GetDatasets 获取数据集列表
// @Summary 获取数据集列表
// @Description 分页获取数据集列表，支持按业务域和敏感级别过滤
// @Tags 数据治理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Param domain query string false "业务域"
// @Param sensitivity query string false "敏感级别"
// @Success 200 {object} PaginatedResponse{data=[]models.Dataset} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /governance/datasets [get]
func (c *GovernanceController) GetDatasets(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	query := governance.DatasetListQuery{
		Domain:      r.URL.Query().Get("domain"),
		Sensitivity: r.URL.Query().Get("sensitivity"),
		ActiveOnly:  r.URL.Query().Get("active_only") == "true",
		Page:        page,
		Size:        size,
	}

	datasets, total, err := c.governanceService.GetDatasets(r.Context(), query)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取数据集列表失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取数据集列表成功",
		Data:   datasets,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetDatasetByID 获取数据集详情
// @Summary 获取数据集详情
// @Tags 数据治理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.Dataset} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /governance/datasets/{id} [get]
func (c *GovernanceController) GetDatasetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dataset, err := c.governanceService.GetDataset(r.Context(), id)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取数据集成功",
		Data:   dataset,
	})
}

// === 质量规则管理 ===

// CreateQualityRule 创建质量规则
// @Summary 创建质量规则
// @Description 创建新的数据质量规则，判定条件在创建时校验
// @Tags 数据治理
// @Accept json
// @Produce json
// @Param rule body governance.CreateQualityRuleRequest true "质量规则信息"
// @Success 201 {object} APIResponse{data=models.QualityRule} "创建成功"
// @Failure 400 {object} APIResponse "规则配置无效"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /governance/quality-rules [post]
func (c *GovernanceController) CreateQualityRule(w http.ResponseWriter, r *http.Request) {
	var req governance.CreateQualityRuleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	rule, err := c.governanceService.CreateQualityRule(r.Context(), &req)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "创建质量规则成功",
		Data:   rule,
	})
}

// GetQualityRules 获取质量规则列表
// @Summary 获取质量规则列表
// @Description 分页获取质量规则列表，支持按数据集、规则类型、严重级别过滤
// @Tags 数据治理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页数量" default(20)
// @Param dataset_id query string false "数据集ID"
// @Param rule_type query string false "规则类型"
// @Param severity query string false "严重级别"
// @Success 200 {object} PaginatedResponse{data=[]models.QualityRule} "获取成功"
// @Router /governance/quality-rules [get]
func (c *GovernanceController) GetQualityRules(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))

	query := governance.QualityRuleListQuery{
		DatasetID:  r.URL.Query().Get("dataset_id"),
		RuleType:   r.URL.Query().Get("rule_type"),
		Severity:   r.URL.Query().Get("severity"),
		ActiveOnly: r.URL.Query().Get("active_only") == "true",
		Page:       page,
		Size:       size,
	}

	rules, total, err := c.governanceService.GetQualityRules(r.Context(), query)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "获取质量规则列表失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取质量规则列表成功",
		Data:   rules,
		Total:  total,
		Page:   page,
		Size:   size,
	})
}

// GetQualityRuleByID 获取质量规则详情
// @Summary 获取质量规则详情
// @Tags 数据治理
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse{data=models.QualityRule} "获取成功"
// @Failure 404 {object} APIResponse "规则不存在"
// @Router /governance/quality-rules/{id} [get]
func (c *GovernanceController) GetQualityRuleByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := c.governanceService.GetQualityRule(r.Context(), id)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取质量规则成功",
		Data:   rule,
	})
}

// UpdateQualityRule 更新质量规则
// @Summary 更新质量规则
// @Description 更新质量规则，变更判定条件时重新校验
// @Tags 数据治理
// @Accept json
// @Produce json
// @Param id path string true "规则ID"
// @Param rule body governance.UpdateQualityRuleRequest true "更新内容"
// @Success 200 {object} APIResponse{data=models.QualityRule} "更新成功"
// @Failure 400 {object} APIResponse "规则配置无效"
// @Failure 404 {object} APIResponse "规则不存在"
// @Router /governance/quality-rules/{id} [put]
func (c *GovernanceController) UpdateQualityRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req governance.UpdateQualityRuleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	rule, err := c.governanceService.UpdateQualityRule(r.Context(), id, &req)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "更新质量规则成功",
		Data:   rule,
	})
}

// DeactivateQualityRule 停用质量规则
// @Summary 停用质量规则
// @Description 停用质量规则，执行历史保留，后续批量检测不再包含该规则
// @Tags 数据治理
// @Produce json
// @Param id path string true "规则ID"
// @Success 200 {object} APIResponse "停用成功"
// @Failure 404 {object} APIResponse "规则不存在"
// @Router /governance/quality-rules/{id}/deactivate [post]
func (c *GovernanceController) DeactivateQualityRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	updatedBy := r.URL.Query().Get("updated_by")

	if err := c.governanceService.DeactivateQualityRule(r.Context(), id, updatedBy); err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "停用质量规则成功",
	})
}

// statusForError 将服务层错误映射为HTTP状态码
func statusForError(err error) int {
	switch {
	case governance.IsConfigurationError(err):
		return http.StatusBadRequest
	case errors.Is(err, governance.ErrRuleNotFound),
		errors.Is(err, governance.ErrDatasetNotFound),
		errors.Is(err, governance.ErrExecutionNotFound):
		return http.StatusNotFound
	case errors.Is(err, governance.ErrRuleAlreadyRunning),
		errors.Is(err, governance.ErrLineageEdgeExists):
		return http.StatusConflict
	case errors.Is(err, governance.ErrLineageSelfLoop):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
