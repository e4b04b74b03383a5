/*
 * @module api/controllers/response
 * @description 治理接口统一响应结构，status=0表示成功，非0为业务错误码
 * @architecture 分层架构 - 控制器层
 * @documentReference ai_docs/data_governance_req.md
 * @stateFlow 控制器处理完成 -> 包装响应结构 -> render.JSON输出
 * @rules 所有治理接口统一走这两个结构返回，分页接口额外携带total/page/size
 * @dependencies 无
 * @refs governance_controller.go, quality_check_controller.go, audit_controller.go
 */

package controllers

// APIResponse 单对象接口的响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 列表接口的分页响应结构，total为过滤后的总条数
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}
