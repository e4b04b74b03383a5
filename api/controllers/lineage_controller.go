/*
 * @module api/controllers/lineage_controller
 * @description 数据血缘控制器，提供血缘边登记、上下游追溯与影响分析API接口
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 血缘边登记前校验数据集存在；遍历深度超出上限时按上限截断
 * @dependencies datagov-service/service, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs governance_controller.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"datagov-service/service/governance"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// LineageController 数据血缘控制器
type LineageController struct {
	governanceService *governance.GovernanceService
}

// NewLineageController 创建数据血缘控制器实例
func NewLineageController(governanceService *governance.GovernanceService) *LineageController {
	return &LineageController{governanceService: governanceService}
}

// AddEdge 登记血缘边
// @Summary 登记血缘边
// @Description 登记一条数据集之间的血缘边，源与目标数据集必须已注册且不允许自环
// @Tags 数据血缘
// @Accept json
// @Produce json
// @Param request body governance.AddLineageEdgeRequest true "血缘边信息"
// @Success 201 {object} APIResponse{data=models.LineageEdge} "登记成功"
// @Failure 400 {object} APIResponse "请求参数错误或自环"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Failure 409 {object} APIResponse "血缘边已存在"
// @Router /governance/lineage/edges [post]
func (c *LineageController) AddEdge(w http.ResponseWriter, r *http.Request) {
	var req governance.AddLineageEdgeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusBadRequest,
			Msg:    "请求参数格式错误",
		})
		return
	}

	edge, err := c.governanceService.AddLineageEdge(r.Context(), &req)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusCreated,
		Msg:    "登记血缘边成功",
		Data:   edge,
	})
}

// GetLineage 获取数据集血缘视图
// @Summary 获取数据集血缘视图
// @Description 按方向返回数据集的上游和/或下游血缘节点，深度默认3层、最多10层
// @Tags 数据血缘
// @Produce json
// @Param datasetId path string true "数据集ID"
// @Param direction query string false "遍历方向" Enums(upstream,downstream,both) default(both)
// @Param depth query int false "遍历深度" default(3)
// @Success 200 {object} APIResponse{data=governance.LineageGraph} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /governance/lineage/{datasetId} [get]
func (c *LineageController) GetLineage(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetId")
	direction := r.URL.Query().Get("direction")
	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))

	graph, err := c.governanceService.GetLineage(r.Context(), datasetID, direction, depth)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取血缘视图成功",
		Data:   graph,
	})
}

// GetImpact 获取影响分析
// @Summary 获取影响分析
// @Description 汇总数据集变更波及的全部下游数据集、受影响的启用规则数与受保护数据集
// @Tags 数据血缘
// @Produce json
// @Param datasetId path string true "数据集ID"
// @Success 200 {object} APIResponse{data=governance.LineageImpact} "获取成功"
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /governance/lineage/{datasetId}/impact [get]
func (c *LineageController) GetImpact(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetId")

	impact, err := c.governanceService.GetLineageImpact(r.Context(), datasetID)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: statusForError(err),
			Msg:    err.Error(),
		})
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取影响分析成功",
		Data:   impact,
	})
}
