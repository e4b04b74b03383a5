/*
 * @module api/controllers/audit_controller
 * @description 审计控制器，提供敏感数据访问日志查询API接口，用于合规审查
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow HTTP请求处理流程
 * @rules 访问日志只读，按访问时间倒序返回
 * @dependencies datagov-service/service/audit, github.com/go-chi/render
 * @refs governance_controller.go
 */

package controllers

import (
	"net/http"
	"strconv"
	"time"

	"datagov-service/service/audit"

	"github.com/go-chi/render"
)

// AuditController 审计控制器
type AuditController struct {
	auditService *audit.AuditService
}

// NewAuditController 创建审计控制器实例
func NewAuditController(auditService *audit.AuditService) *AuditController {
	return &AuditController{auditService: auditService}
}

// ListAccessLogs 查询敏感访问日志
// @Summary 查询敏感访问日志
// @Description 查询PII/PHI数据集的访问留痕记录，按访问时间倒序
// @Tags 审计
// @Produce json
// @Param dataset_id query string false "数据集ID"
// @Param action_type query string false "动作类型" Enums(QUALITY_CHECK_READ,EXPORT,QUERY)
// @Param since query string false "起始时间（RFC3339）"
// @Param limit query int false "返回条数" default(50)
// @Param offset query int false "偏移量" default(0)
// @Success 200 {object} PaginatedResponse{data=[]models.SensitiveAccessLog} "查询成功"
// @Router /governance/access-logs [get]
func (c *AuditController) ListAccessLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	query := audit.AccessLogQuery{
		DatasetID:  r.URL.Query().Get("dataset_id"),
		ActionType: r.URL.Query().Get("action_type"),
		Limit:      limit,
		Offset:     offset,
	}
	if sinceRaw := r.URL.Query().Get("since"); sinceRaw != "" {
		since, err := time.Parse(time.RFC3339, sinceRaw)
		if err != nil {
			render.JSON(w, r, APIResponse{
				Status: http.StatusBadRequest,
				Msg:    "since 参数格式错误，需要RFC3339时间",
			})
			return
		}
		query.Since = &since
	}

	logs, total, err := c.auditService.ListAccessLogs(r.Context(), query)
	if err != nil {
		render.JSON(w, r, APIResponse{
			Status: http.StatusInternalServerError,
			Msg:    "查询访问日志失败",
		})
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "查询访问日志成功",
		Data:   logs,
		Total:  total,
	})
}
