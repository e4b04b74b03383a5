/*
 * @module service/models/lineage
 * @description 数据血缘模型定义，记录数据集之间的加工流向
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/model.md
 * @stateFlow 血缘边登记 -> 上下游追溯 -> 影响分析
 * @rules 同一对数据集之间同方向只允许一条血缘边，不允许自环
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs catalog.go, service/governance
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 血缘边加工类型
const (
	TransformTypeETL         = "ETL"
	TransformTypeAggregation = "AGGREGATION"
	TransformTypeCopy        = "COPY"
	TransformTypeExport      = "EXPORT"
)

// LineageEdge 数据血缘边模型，表示数据从源数据集流向目标数据集
type LineageEdge struct {
	ID              string    `gorm:"type:uuid;primary_key" json:"id"`
	SourceDatasetID string    `gorm:"not null;index;uniqueIndex:idx_lineage_source_target" json:"source_dataset_id"`
	TargetDatasetID string    `gorm:"not null;index;uniqueIndex:idx_lineage_source_target" json:"target_dataset_id"`
	SourceDataset   *Dataset  `gorm:"foreignKey:SourceDatasetID" json:"source_dataset,omitempty"`
	TargetDataset   *Dataset  `gorm:"foreignKey:TargetDatasetID" json:"target_dataset,omitempty"`
	TransformType   string    `gorm:"not null;default:'ETL';size:30" json:"transform_type"` // ETL/AGGREGATION/COPY/EXPORT
	Description     string    `gorm:"type:text" json:"description"`                         // 加工逻辑说明
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy       string    `gorm:"not null;default:'system';size:100" json:"created_by"`
}

// BeforeCreate 创建前钩子
func (e *LineageEdge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.TransformType == "" {
		e.TransformType = TransformTypeETL
	}
	if e.CreatedBy == "" {
		e.CreatedBy = "system"
	}
	return nil
}

// TableName 指定表名
func (LineageEdge) TableName() string {
	return "lineage_edges"
}
